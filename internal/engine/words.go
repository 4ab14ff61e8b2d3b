package engine

import "math/rand"

// wordPairs - пары (слово граждан, слово лжеца) для режима с разными
// словами; в режиме общего слова второй элемент не используется.
var wordPairs = [][2]string{
	{"apple", "pear"},
	{"cat", "tiger"},
	{"coffee", "tea"},
	{"guitar", "violin"},
	{"beach", "desert"},
	{"pizza", "pancake"},
	{"library", "museum"},
	{"winter", "autumn"},
	{"football", "hockey"},
	{"airplane", "helicopter"},
	{"doctor", "nurse"},
	{"mountain", "volcano"},
}

func randomWordPair() (string, string) {
	p := wordPairs[rand.Intn(len(wordPairs))]
	return p[0], p[1]
}

// randomWordExcept подбирает слово из словаря, отличное от заданного
func randomWordExcept(except string) string {
	for {
		c, l := randomWordPair()
		if c != except {
			return c
		}
		if l != except {
			return l
		}
	}
}
