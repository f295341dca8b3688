package service

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) measured in
// runes. Two empty strings are identical.
func similarity(a, b string) float64 {
	maxlen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxlen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxlen)
}

// partial reports whether the stored first and last names contain the
// queried ones, as with "smith-jones, john" or "smith, johnathan" for
// "john smith". Query parts shorter than two runes never match.
func partial(qFirst, qLast, first, last string) bool {
	if utf8.RuneCountInString(qFirst) < 2 || utf8.RuneCountInString(qLast) < 2 {
		return false
	}
	return strings.Contains(first, qFirst) && strings.Contains(last, qLast)
}
