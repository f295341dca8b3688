package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/contribsearch/internal/metrics"
	"github.com/jask/contribsearch/internal/names"
)

// SearchService runs bulk searches against a record store.
type SearchService struct {
	store    RecordStore
	resolver *Resolver
	maxLimit int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewSearchService wires a service. maxLimit <= 0 disables the upper bound.
func NewSearchService(store RecordStore, resolver *Resolver, maxLimit int, logger *slog.Logger, m *metrics.Metrics) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		store:    store,
		resolver: resolver,
		maxLimit: maxLimit,
		logger:   logger,
		metrics:  m,
	}
}

// BulkSearch resolves every name in req on one store session, in input order.
//
// A failure resolving one name is reported in that name's summary and the
// remaining names still run. Failing to acquire the session fails the whole
// call. If ctx is canceled between names, the response so far is returned
// together with ctx.Err().
func (s *SearchService) BulkSearch(ctx context.Context, req BulkRequest) (*BulkResponse, error) {
	start := time.Now()
	if err := s.validate(req); err != nil {
		s.metrics.IncrementBulk("invalid", time.Since(start))
		return nil, err
	}

	log := s.logger.With("request_id", uuid.NewString())
	sess, err := s.store.Acquire(ctx)
	if err != nil {
		s.metrics.IncrementBulk("unavailable", time.Since(start))
		log.ErrorContext(ctx, "acquire session failed", "error", err)
		return nil, fmt.Errorf("%w: acquire session: %w", ErrStorageUnavailable, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.WarnContext(ctx, "release session failed", "error", err)
		}
	}()

	city := strings.TrimSpace(req.City)
	resp := &BulkResponse{Summary: make([]SearchSummary, 0, len(req.Names))}
	for _, name := range req.Names {
		if err := ctx.Err(); err != nil {
			s.metrics.IncrementBulk("canceled", time.Since(start))
			log.InfoContext(ctx, "bulk search canceled",
				"completed", len(resp.Summary),
				"total", len(req.Names),
			)
			return resp, err
		}

		term := strings.TrimSpace(name)
		matches, err := s.resolver.Resolve(ctx, sess, term, city, req.Limit)
		summary := SearchSummary{SearchTerm: term}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				s.metrics.IncrementBulk("canceled", time.Since(start))
				return resp, ctxErr
			}
			s.metrics.IncrementName("error")
			log.WarnContext(ctx, "search term failed", "search_term", term, "error", err)
			summary.Error = err.Error()
			resp.Summary = append(resp.Summary, summary)
			continue
		}

		summary.MatchesFound = len(matches)
		for _, m := range matches {
			summary.TotalAmountCents += m.AmountCents
		}
		resp.Summary = append(resp.Summary, summary)
		resp.Results = append(resp.Results, matches...)
		if len(matches) == 0 {
			s.metrics.IncrementName("empty")
		} else {
			s.metrics.IncrementName("matched")
		}

		// A result cut at the limit may hide rows of other people.
		if city != "" && len(matches) < req.Limit {
			if key, ok := soleKey(matches); ok {
				s.resolver.remember(ctx, term, city, key)
			}
		}
	}

	s.metrics.IncrementBulk("ok", time.Since(start))
	log.InfoContext(ctx, "bulk search complete",
		"names", len(req.Names),
		"matches", len(resp.Results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (s *SearchService) validate(req BulkRequest) error {
	if len(req.Names) == 0 {
		return fmt.Errorf("%w: no names given", ErrInvalidInput)
	}
	for i, n := range req.Names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: name %d is empty", ErrInvalidInput, i)
		}
	}
	if req.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}
	if s.maxLimit > 0 && req.Limit > s.maxLimit {
		return fmt.Errorf("%w: limit %d exceeds maximum %d", ErrInvalidInput, req.Limit, s.maxLimit)
	}
	return nil
}

// soleKey reports the person key shared by every match. Fuzzy matches never
// confirm a key.
func soleKey(matches []MatchResult) (names.PersonKey, bool) {
	if len(matches) == 0 {
		return "", false
	}
	key := matches[0].PersonKey
	for _, m := range matches {
		if m.PersonKey != key || m.Tier == TierFuzzy {
			return "", false
		}
	}
	return key, key != ""
}
