package engine

import (
	"strings"
	"unicode"
)

// ValidateGuess проверяет догадку лжеца против загаданного слова:
// точное совпадение после нормализации, вхождение одной строки в другую
// или близость по расстоянию редактирования.
func ValidateGuess(guess, answer string) bool {
	g := normalizeAnswer(guess)
	a := normalizeAnswer(answer)
	if g == "" || a == "" {
		return false
	}
	if g == a {
		return true
	}
	if strings.Contains(g, a) || strings.Contains(a, g) {
		return true
	}
	return similarity(g, a) >= 0.7
}

// normalizeAnswer опускает регистр и выкидывает всё, кроме букв и цифр
func normalizeAnswer(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similarity = 1 - dist/maxLen, по рунам
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(editDistance(ra, rb))/float64(maxLen)
}

func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
