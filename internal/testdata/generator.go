// Package testdata generates synthetic FEC contribution data for demos and
// load tests.
package testdata

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/names"
)

// Sink stores generated rows.
type Sink interface {
	InsertBatch(ctx context.Context, rows []repository.Contribution) (inserted, skipped int, err error)
}

var (
	firstNames = []string{"JOHN", "JANE", "MARY", "ROBERT", "PATRICIA", "MICHAEL", "LINDA", "DAVID", "SUSAN", "JAMES", "KAREN", "VICTOR", "PAUL", "MARIA", "JOSE"}
	lastNames  = []string{"SMITH", "JOHNSON", "WILLIAMS", "BROWN", "JONES", "GARCIA", "MILLER", "DAVIS", "RODRIGUEZ", "MARTINEZ", "TATE", "O'BRIEN", "VAN DYKE", "NGUYEN", "SMYTHE"}
	places     = [][2]string{
		{"NEW YORK", "NY"}, {"BROOKLYN", "NY"}, {"ALBANY", "NY"}, {"BOSTON", "MA"}, {"CHICAGO", "IL"},
		{"AUSTIN", "TX"}, {"HOUSTON", "TX"}, {"SEATTLE", "WA"}, {"DENVER", "CO"}, {"MIAMI", "FL"},
	}
	employers   = []string{"SELF-EMPLOYED", "RETIRED", "ACME CORP", "CITY OF NEW YORK", "NONE", "STATE UNIVERSITY"}
	occupations = []string{"ATTORNEY", "RETIRED", "ENGINEER", "PHYSICIAN", "TEACHER", "NOT EMPLOYED"}
	committees  = []string{"C00401224", "C00694323", "C00580100", "C00000935"}
)

// Contributions returns n synthetic rows. The same seed yields the same rows.
// Names vary the way filings do: optional middle initials, suffixes and the
// odd dropped letter.
func Contributions(n int, seed uint64) []repository.Contribution {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]repository.Contribution, 0, n)
	for i := range n {
		place := places[rng.IntN(len(places))]
		raw := rawName(rng, firstNames[rng.IntN(len(firstNames))], lastNames[rng.IntN(len(lastNames))])
		parsed, key := names.KeyForRaw(raw, place[0], place[1])
		c := repository.Contribution{
			TransactionID:      fmt.Sprintf("%019d", 4000000000000000000+uint64(seed%1000)*1000000+uint64(i)),
			FilerTransactionID: fmt.Sprintf("SA11AI_%d", i+1),
			CommitteeID:        committees[rng.IntN(len(committees))],
			NameRaw:            raw,
			FirstName:          parsed.First,
			LastName:           parsed.Last,
			City:               place[0],
			State:              place[1],
			Zip:                fmt.Sprintf("%05d", rng.IntN(100000)),
			Employer:           employers[rng.IntN(len(employers))],
			Occupation:         occupations[rng.IntN(len(occupations))],
			AmountCents:        int64(rng.IntN(500)+1) * 500,
			PersonKey:          key,
		}
		if rng.IntN(20) != 0 {
			c.Date = start.AddDate(0, 0, rng.IntN(730))
		}
		out = append(out, c)
	}
	return out
}

func rawName(rng *rand.Rand, first, last string) string {
	if rng.IntN(25) == 0 && len(last) > 4 {
		i := 1 + rng.IntN(len(last)-2)
		last = last[:i] + last[i+1:]
	}
	var b strings.Builder
	b.WriteString(last)
	b.WriteString(", ")
	b.WriteString(first)
	switch rng.IntN(6) {
	case 0:
		fmt.Fprintf(&b, " %c", 'A'+rune(rng.IntN(26)))
	case 1:
		fmt.Fprintf(&b, " %c.", 'A'+rune(rng.IntN(26)))
	case 2:
		if rng.IntN(3) == 0 {
			b.WriteString(" JR")
		}
	}
	return b.String()
}

// WriteItcont renders rows in the FEC itcont pipe-delimited layout.
func WriteItcont(w io.Writer, rows []repository.Contribution) error {
	bw := bufio.NewWriter(w)
	for _, c := range rows {
		date := ""
		if !c.Date.IsZero() {
			date = c.Date.Format("01022006")
		}
		amount := fmt.Sprintf("%d", c.AmountCents/100)
		if c.AmountCents%100 != 0 {
			amount = fmt.Sprintf("%d.%02d", c.AmountCents/100, c.AmountCents%100)
		}
		fields := []string{
			c.CommitteeID, "N", "M6", "P", "2024" + c.TransactionID[len(c.TransactionID)-14:], "15", "IND",
			c.NameRaw, c.City, c.State, c.Zip, c.Employer, c.Occupation, date, amount, "",
			c.FilerTransactionID, "1173291", "", "", c.TransactionID,
		}
		if _, err := bw.WriteString(strings.Join(fields, "|") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Seed inserts n synthetic rows into sink.
func Seed(ctx context.Context, sink Sink, n int, seed uint64) (int, error) {
	inserted, _, err := sink.InsertBatch(ctx, Contributions(n, seed))
	return inserted, err
}
