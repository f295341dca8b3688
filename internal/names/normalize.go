// Package names canonicalizes contributor name strings and derives the
// person keys used to group contributions belonging to the same individual.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizedName is the comparable form of a contributor name.
type NormalizedName struct {
	First          string
	Middle         string
	Last           string
	FirstIsInitial bool
	// Confident is false when the input could not be split into both a
	// first and a last name; the remaining fields are best effort.
	Confident bool
}

var titles = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "mx": {},
	"dr": {}, "prof": {}, "rev": {}, "hon": {}, "sir": {},
}

// "v" is left out on purpose: it is far more often a middle initial.
var suffixes = map[string]struct{}{
	"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {},
	"2nd": {}, "3rd": {}, "esq": {}, "phd": {}, "md": {},
}

// Normalize canonicalizes a raw name. Input containing a comma is read as the
// stored "LAST, GIVEN NAMES" form; anything else as "GIVEN NAMES LAST".
// Normalize never fails.
func Normalize(raw string) NormalizedName {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		last := stripTrailing(tokens(raw[:i]), suffixes)
		given := dropAll(tokens(raw[i+1:]), titles, suffixes)
		return build(given, strings.Join(last, " "))
	}

	toks := stripTrailing(stripLeading(tokens(raw), titles), suffixes)
	if len(toks) == 0 {
		return NormalizedName{}
	}
	last := toks[len(toks)-1]
	return build(dropAll(toks[:len(toks)-1], titles, suffixes), last)
}

func build(given []string, last string) NormalizedName {
	n := NormalizedName{Last: last}
	if len(given) > 0 {
		n.First = given[0]
		n.Middle = strings.Join(given[1:], " ")
	}
	n.FirstIsInitial = isInitial(n.First)
	n.Confident = n.First != "" && n.Last != ""
	return n
}

// Display renders the name in the stored "last, first middle" form.
// Normalize(n.Display()) == n for any n produced by Normalize.
func (n NormalizedName) Display() string {
	given := strings.TrimSpace(n.First + " " + n.Middle)
	if given == "" {
		return n.Last + ","
	}
	return n.Last + ", " + given
}

// FullName is the "first last" string compared by the fuzzy tier.
func (n NormalizedName) FullName() string {
	return strings.TrimSpace(n.First + " " + n.Last)
}

// Initial returns the first letter of the first name, or "" when there is none.
func (n NormalizedName) Initial() string {
	for _, r := range n.First {
		return string(r)
	}
	return ""
}

// Fold lowercases s, strips diacritics, drops apostrophes, turns any other
// punctuation into whitespace and collapses runs of whitespace. Inner hyphens
// survive. Fold is idempotent.
func Fold(s string) string {
	return strings.Join(tokens(s), " ")
}

func tokens(s string) []string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r == '\'' || r == '’' || r == '`':
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func stripLeading(toks []string, set map[string]struct{}) []string {
	for len(toks) > 0 {
		if _, ok := set[toks[0]]; !ok {
			break
		}
		toks = toks[1:]
	}
	return toks
}

func stripTrailing(toks []string, set map[string]struct{}) []string {
	for len(toks) > 0 {
		if _, ok := set[toks[len(toks)-1]]; !ok {
			break
		}
		toks = toks[:len(toks)-1]
	}
	return toks
}

func dropAll(toks []string, sets ...map[string]struct{}) []string {
	out := make([]string, 0, len(toks))
next:
	for _, t := range toks {
		for _, set := range sets {
			if _, ok := set[t]; ok {
				continue next
			}
		}
		out = append(out, t)
	}
	return out
}

func isInitial(s string) bool {
	rs := []rune(s)
	return len(rs) == 1 && unicode.IsLetter(rs[0])
}
