package repository

import (
	"strings"
	"time"

	"github.com/jask/contribsearch/internal/names"
)

// Contribution represents one itemized contribution row. Rows are written
// once at ingest and never updated.
type Contribution struct {
	// TransactionID is unique across the corpus (FEC SUB_ID).
	TransactionID string
	// FilerTransactionID is the filer-assigned id (FEC TRAN_ID); only unique per filer.
	FilerTransactionID string
	CommitteeID        string
	NameRaw            string
	FirstName          string
	LastName           string
	City               string
	State              string
	Zip                string
	Employer           string
	Occupation         string
	AmountCents        int64
	Date               time.Time // zero when the filing carried no date
	PersonKey          names.PersonKey
}

// SamplePolicy selects which rows a bounded sample contains.
type SamplePolicy string

const (
	// SampleHead takes the first rows in storage order.
	SampleHead SamplePolicy = "head"
	// SampleBlock takes rows whose last name shares a prefix with the query,
	// falling back to SampleHead when no prefix is given.
	SampleBlock SamplePolicy = "block"
	// SampleRandom takes a contiguous window starting at a random row.
	// Results differ between calls.
	SampleRandom SamplePolicy = "random"
)

// Valid reports whether p names a known policy.
func (p SamplePolicy) Valid() bool {
	switch p {
	case SampleHead, SampleBlock, SampleRandom:
		return true
	}
	return false
}

// SampleSpec bounds a sample request.
type SampleSpec struct {
	Size           int
	Policy         SamplePolicy
	LastNamePrefix string
	City           string
}

// RawNameKey is the comparison form for raw-name lookups: upper case with
// whitespace collapsed.
func RawNameKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// CityKey is the comparison form for city filters.
func CityKey(s string) string {
	return names.Fold(s)
}

// PrefixUpperBound returns the smallest string greater than every string
// with the given prefix, for index range scans. It returns "" when prefix is
// empty.
func PrefixUpperBound(prefix string) string {
	if prefix == "" {
		return ""
	}
	rs := []rune(prefix)
	rs[len(rs)-1]++
	return string(rs)
}

// Less orders contributions by amount desc, then date desc, then
// transaction id for a total order.
func Less(a, b Contribution) bool {
	if a.AmountCents != b.AmountCents {
		return a.AmountCents > b.AmountCents
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.TransactionID < b.TransactionID
}
