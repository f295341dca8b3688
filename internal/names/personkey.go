package names

import (
	"strings"

	"github.com/google/uuid"
)

// PersonKey groups contributions believed to belong to one individual.
// It is a name-based (SHA-1) UUID over the normalized name and location, so
// the same inputs always map to the same key in every process.
type PersonKey string

// unknownLocation stands in for a missing city or state. Folded values never
// contain it, so it cannot collide with a real location.
const unknownLocation = "?"

var keyNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("contribsearch:person"))

// Key derives the person key for a normalized name at a location.
func Key(n NormalizedName, city, state string) PersonKey {
	data := strings.Join([]string{
		Fold(n.First),
		Fold(n.Last),
		location(city),
		location(state),
	}, "|")
	return PersonKey(uuid.NewSHA1(keyNamespace, []byte(data)).String())
}

// KeyForRaw normalizes raw and derives its key in one step. The ingest path
// uses it so stored keys and query-time keys share one derivation.
func KeyForRaw(raw, city, state string) (NormalizedName, PersonKey) {
	n := Normalize(raw)
	return n, Key(n, city, state)
}

// ParseKey reports whether s is a person key literal.
func ParseKey(s string) (PersonKey, bool) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || u.Version() != 5 {
		return "", false
	}
	return PersonKey(u.String()), true
}

func (k PersonKey) String() string { return string(k) }

func location(v string) string {
	v = Fold(v)
	if v == "" {
		return unknownLocation
	}
	return v
}
