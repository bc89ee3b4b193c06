package similarity

import (
	"strings"
	"unicode"
)

// matchThreshold is the minimum score at which two titles are considered
// the same work. Tuned for metadata provider results, which differ from the
// stored title mostly in punctuation and articles.
const matchThreshold = 0.85

// Score returns the similarity between two titles as a value between 0.0
// (completely different) and 1.0 (identical), based on Levenshtein distance
// over normalized forms.
func Score(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)

	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1.0 - float64(distance(a, b))/float64(longest)
}

// TitleMatches reports whether two titles are close enough to refer to the
// same work.
func TitleMatches(a, b string) bool {
	return Score(a, b) >= matchThreshold
}

// normalize lowercases, maps "&" to "and", strips punctuation and collapses
// separator runs so "Spider-Man: No Way Home" and "spider man no way home"
// compare equal.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_' || r == ':':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// distance computes the Levenshtein edit distance using two rolling rows.
func distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minOf(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
