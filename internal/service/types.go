package service

import (
	"time"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/names"
)

// MatchResult is a contribution matched for a search term.
type MatchResult struct {
	repository.Contribution
	SearchTerm string
	Tier       Tier
	// Score is the similarity in [0, 1] for fuzzy matches and 1 otherwise.
	Score float64
}

// SearchSummary aggregates the results for one input name.
type SearchSummary struct {
	SearchTerm       string `json:"search_term"`
	MatchesFound     int    `json:"matches_found"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	Error            string `json:"error,omitempty"`
}

// BulkRequest is the input to BulkSearch. Limit applies per name.
type BulkRequest struct {
	Names []string
	City  string
	Limit int
}

// BulkResponse holds one summary per input name, in input order, and all
// matches concatenated in the same order.
type BulkResponse struct {
	Summary []SearchSummary
	Results []MatchResult
}

// ExportRow is the flat form of a match used by CSV and JSON output.
type ExportRow struct {
	SearchTerm  string          `json:"search_term"`
	MatchedName string          `json:"matched_name"`
	City        string          `json:"city"`
	State       string          `json:"state"`
	AmountCents int64           `json:"amount_cents"`
	Date        string          `json:"date,omitempty"`
	RecipientID string          `json:"recipient_id"`
	PersonKey   names.PersonKey `json:"person_key"`
	Tier        string          `json:"tier"`
}

// ExportRows flattens the results.
func (r *BulkResponse) ExportRows() []ExportRow {
	if r == nil {
		return nil
	}
	rows := make([]ExportRow, 0, len(r.Results))
	for _, m := range r.Results {
		row := ExportRow{
			SearchTerm:  m.SearchTerm,
			MatchedName: m.NameRaw,
			City:        m.City,
			State:       m.State,
			AmountCents: m.AmountCents,
			RecipientID: m.CommitteeID,
			PersonKey:   m.PersonKey,
			Tier:        string(m.Tier),
		}
		if !m.Date.IsZero() {
			row.Date = m.Date.Format(time.DateOnly)
		}
		rows = append(rows, row)
	}
	return rows
}
