package usecase

import "strings"

// scoreEpsilon absorbs float rounding so that a score sitting exactly on
// the threshold counts as reaching it.
const scoreEpsilon = 1e-9

// phoneticKey maps a token to a Latin transliteration so that Cyrillic,
// Latin and OCR-damaged spellings of the same word compare closely.
func phoneticKey(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if mapped, ok := transliteration[r]; ok {
			b.WriteString(mapped)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// partialRatio scores how well the shorter string fits somewhere inside the
// longer one, in [0,1]: one minus the edit distance to the best-fitting
// substring of the longer string, relative to the shorter string's length.
func partialRatio(s1, s2 string) float64 {
	short, long := []rune(s1), []rune(s2)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	dist := substringDistance(short, long)
	return 1 - float64(dist)/float64(len(short))
}

// substringDistance is the smallest edit distance between needle and any
// substring of haystack. It is the usual Levenshtein recurrence with a
// free starting point and a free end in haystack.
func substringDistance(needle, haystack []rune) int {
	m := len(needle)
	n := len(haystack)
	if m == 0 {
		return 0
	}
	if n == 0 {
		return m
	}

	// Use two rows instead of full matrix for space efficiency.
	// Row zero stays all zeros: a match may start anywhere.
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if needle[i-1] != haystack[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	best := prev[0]
	for _, d := range prev[1:] {
		best = min(best, d)
	}
	return best
}
