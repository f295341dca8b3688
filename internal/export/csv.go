// Package export writes search results as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jask/contribsearch/internal/service"
)

// Header is the CSV header row.
var Header = []string{
	"search_term", "matched_name", "city", "state", "amount", "date", "recipient_id", "person_key",
}

// WriteCSV writes the header and one line per row. Amounts are written in
// dollars with two decimals.
func WriteCSV(w io.Writer, rows []service.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		rec := []string{
			r.SearchTerm,
			r.MatchedName,
			r.City,
			r.State,
			FormatCents(r.AmountCents),
			r.Date,
			r.RecipientID,
			string(r.PersonKey),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatCents renders cents as a plain decimal dollar amount, e.g. -1234 -> "-12.34".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
}
