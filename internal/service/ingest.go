package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/metrics"
	"github.com/jask/contribsearch/internal/names"
)

// FEC itcont column positions.
const (
	colCommitteeID = 0
	colName        = 7
	colCity        = 8
	colState       = 9
	colZip         = 10
	colEmployer    = 11
	colOccupation  = 12
	colDate        = 13
	colAmount      = 14
	colFilerTranID = 16
	colSubID       = 20
	itcontColumns  = 21
	defaultBatch   = 1000
	fecDateLayout  = "01022006"
)

// ContributionSink stores parsed rows. Rows whose transaction id already
// exists are skipped, not overwritten.
type ContributionSink interface {
	InsertBatch(ctx context.Context, rows []repository.Contribution) (inserted, skipped int, err error)
}

// RunRecorder persists the outcome of an ingest.
type RunRecorder interface {
	RecordIngestRun(ctx context.Context, id, source string, imported, skipped, failed int) error
}

// IngestService loads FEC individual contribution files.
type IngestService struct {
	Sink ContributionSink
	// Runs is optional.
	Runs      RunRecorder
	BatchSize int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

type IngestResult struct {
	Imported int
	Skipped  int
	Errors   []error
}

// ImportFile ingests one itcont file and records the run.
func (s *IngestService) ImportFile(ctx context.Context, path string) (IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return IngestResult{}, err
	}
	defer f.Close()

	res, err := s.ImportFEC(ctx, f)
	if err != nil {
		return res, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if s.Runs != nil {
		if err := s.Runs.RecordIngestRun(ctx, uuid.NewString(), filepath.Base(path), res.Imported, res.Skipped, len(res.Errors)); err != nil {
			return res, fmt.Errorf("record ingest run: %w", err)
		}
	}
	return res, nil
}

// ImportFEC reads pipe-delimited itcont rows without a header. Malformed rows
// are reported in the result and skipped; a sink failure stops the import.
func (s *IngestService) ImportFEC(ctx context.Context, r io.Reader) (IngestResult, error) {
	if s.Sink == nil {
		return IngestResult{}, errors.New("ingest: sink not configured")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatch
	}

	res := IngestResult{}
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.Comma = '|'
	csvr.LazyQuotes = true
	csvr.FieldsPerRecord = -1
	csvr.ReuseRecord = true

	batch := make([]repository.Contribution, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ins, skip, err := s.Sink.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		res.Imported += ins
		res.Skipped += skip
		s.Metrics.AddIngest(ins, skip, 0)
		batch = batch[:0]
		return nil
	}

	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			s.Metrics.AddIngest(0, 0, 1)
			continue
		}
		c, err := parseItcont(rec)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			s.Metrics.AddIngest(0, 0, 1)
			continue
		}
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return res, fmt.Errorf("insert batch ending line %d: %w", line, err)
			}
			logger.DebugContext(ctx, "ingest batch stored", "line", line, "imported", res.Imported)
		}
	}
	if err := flush(); err != nil {
		return res, fmt.Errorf("insert final batch: %w", err)
	}
	logger.InfoContext(ctx, "ingest complete",
		"imported", res.Imported,
		"skipped", res.Skipped,
		"failed", len(res.Errors),
	)
	return res, nil
}

func parseItcont(rec []string) (repository.Contribution, error) {
	if len(rec) < itcontColumns {
		return repository.Contribution{}, fmt.Errorf("expected %d columns, got %d", itcontColumns, len(rec))
	}
	field := func(i int) string { return strings.TrimSpace(rec[i]) }

	id := field(colSubID)
	if id == "" {
		return repository.Contribution{}, errors.New("missing SUB_ID")
	}
	raw := field(colName)
	if raw == "" {
		return repository.Contribution{}, errors.New("missing NAME")
	}
	amount, err := dollarsToCents(field(colAmount))
	if err != nil {
		return repository.Contribution{}, fmt.Errorf("amount: %w", err)
	}
	date, err := parseFECDate(field(colDate))
	if err != nil {
		return repository.Contribution{}, fmt.Errorf("date: %w", err)
	}

	city, state := field(colCity), field(colState)
	n, key := names.KeyForRaw(raw, city, state)
	return repository.Contribution{
		TransactionID:      id,
		FilerTransactionID: field(colFilerTranID),
		CommitteeID:        field(colCommitteeID),
		NameRaw:            raw,
		FirstName:          n.First,
		LastName:           n.Last,
		City:               city,
		State:              state,
		Zip:                field(colZip),
		Employer:           field(colEmployer),
		Occupation:         field(colOccupation),
		AmountCents:        amount,
		Date:               date,
		PersonKey:          key,
	}, nil
}

func dollarsToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, errors.New("empty amount")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(f * 100)), nil
}

// parseFECDate parses MMDDYYYY. An empty value is the zero time.
func parseFECDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if len(s) == 7 {
		// Leading zero dropped by spreadsheet round-trips.
		s = "0" + s
	}
	return time.Parse(fecDateLayout, s)
}
