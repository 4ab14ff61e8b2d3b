package engine

import "testing"

func TestValidateGuess(t *testing.T) {
	cases := []struct {
		name   string
		guess  string
		answer string
		want   bool
	}{
		{"exact", "lighthouse", "lighthouse", true},
		{"case and punctuation", "Light-House!", "lighthouse", true},
		{"guess contains answer", "the lighthouse keeper", "lighthouse", true},
		{"answer contains guess", "light", "lighthouse", true},
		{"one typo", "lighthouze", "lighthouse", true},
		{"two typos still close", "lighthouz", "lighthouse", true},
		{"unrelated", "submarine", "lighthouse", false},
		{"empty guess", "", "lighthouse", false},
		{"whitespace only", "   ", "lighthouse", false},
		{"cyrillic exact", "маяк", "Маяк", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateGuess(tc.guess, tc.answer); got != tc.want {
				t.Fatalf("ValidateGuess(%q, %q) = %v, want %v", tc.guess, tc.answer, got, tc.want)
			}
		})
	}
}

func TestSimilarityBounds(t *testing.T) {
	if s := similarity("abc", "abc"); s != 1 {
		t.Fatalf("identical strings must score 1, got %f", s)
	}
	if s := similarity("abc", "xyz"); s != 0 {
		t.Fatalf("disjoint strings must score 0, got %f", s)
	}
}
