package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/metrics"
	"github.com/jask/contribsearch/internal/names"
)

// FuzzyConfig bounds the fuzzy tier.
type FuzzyConfig struct {
	// SampleSize is the most rows one fuzzy tier reads.
	SampleSize int
	// Threshold is the lowest similarity kept, in [0, 1].
	Threshold float64
	Policy    repository.SamplePolicy
	// PrefixLen is the last-name prefix length for SampleBlock.
	PrefixLen int
}

// DefaultFuzzy is used for zero-valued resolver configs.
var DefaultFuzzy = FuzzyConfig{
	SampleSize: 5000,
	Threshold:  0.8,
	Policy:     repository.SampleBlock,
	PrefixLen:  2,
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Tiers []Tier
	Fuzzy FuzzyConfig
}

// Resolver runs the tier cascade for one search term.
type Resolver struct {
	tiers   []Tier
	fuzzy   FuzzyConfig
	keys    KeyDirectory
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewResolver builds a resolver. keys and m may be nil.
func NewResolver(cfg ResolverConfig, keys KeyDirectory, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	fuzzy := cfg.Fuzzy
	if fuzzy == (FuzzyConfig{}) {
		fuzzy = DefaultFuzzy
	}
	if !fuzzy.Policy.Valid() {
		fuzzy.Policy = repository.SampleHead
	}
	return &Resolver{
		tiers:   tiers,
		fuzzy:   fuzzy,
		keys:    keys,
		logger:  logger,
		metrics: m,
	}
}

// Resolve returns at most limit distinct contributions for term. Results are
// grouped by the tier that found them, in cascade order. Later tiers are not
// queried once limit distinct rows are collected.
func (r *Resolver) Resolve(ctx context.Context, sess Session, term, city string, limit int) ([]MatchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty search term", ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	q := query{term: term, city: strings.TrimSpace(city)}
	if k, ok := names.ParseKey(term); ok {
		// A key literal is not a name; only the person_key and raw tiers apply.
		q.key = k
	} else {
		q.name = names.Normalize(term)
		if !q.name.Confident {
			r.logger.DebugContext(ctx, "low confidence normalization",
				"search_term", term,
				"first", q.name.First,
				"last", q.name.Last,
			)
		}
		q.key = r.directoryKey(ctx, q)
	}

	seen := make(map[string]struct{}, limit)
	var out []MatchResult
	for _, t := range r.tiers {
		remaining := limit - len(out)
		if remaining <= 0 {
			break
		}
		fn := r.strategy(t)
		if fn == nil {
			continue
		}

		// Rows already returned may come back; ask for enough to still fill
		// the remainder.
		budget := min(remaining+len(seen), limit)
		start := time.Now()
		rows, err := fn(ctx, sess, q, budget)
		if err != nil {
			r.metrics.ObserveTier(string(t), "error", 0, time.Since(start))
			// A store timeout under a live ctx is a storage failure.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s lookup: %w", ErrStorageUnavailable, t, err)
		}

		added := 0
		for _, c := range rows {
			if len(out) == limit {
				break
			}
			if _, dup := seen[c.TransactionID]; dup {
				continue
			}
			seen[c.TransactionID] = struct{}{}
			out = append(out, MatchResult{
				Contribution: c.Contribution,
				SearchTerm:   term,
				Tier:         t,
				Score:        c.score,
			})
			added++
		}
		r.metrics.ObserveTier(string(t), "ok", added, time.Since(start))
		r.logger.DebugContext(ctx, "tier complete",
			"search_term", term,
			"tier", string(t),
			"rows", len(rows),
			"added", added,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return out, nil
}

// directoryKey returns the key remembered for the name and city, or "".
// Directory failures degrade to "".
func (r *Resolver) directoryKey(ctx context.Context, q query) names.PersonKey {
	if r.keys == nil || q.city == "" || !q.name.Confident {
		return ""
	}
	k, ok, err := r.keys.Lookup(ctx, q.name.First, q.name.Last, q.city)
	if err != nil {
		r.logger.WarnContext(ctx, "person key directory lookup failed",
			"search_term", q.term,
			"error", err,
		)
		return ""
	}
	if !ok {
		return ""
	}
	return k
}

// remember stores key for a confirmed (name, city) pairing.
func (r *Resolver) remember(ctx context.Context, term, city string, key names.PersonKey) {
	if r.keys == nil || key == "" {
		return
	}
	n := names.Normalize(term)
	if !n.Confident {
		return
	}
	if err := r.keys.Remember(ctx, n.First, n.Last, city, key); err != nil {
		r.logger.WarnContext(ctx, "person key directory update failed",
			"search_term", term,
			"error", err,
		)
	}
}
