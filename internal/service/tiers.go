package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/names"
)

// Tier names one matching strategy.
type Tier string

const (
	TierPersonKey  Tier = "person_key"
	TierNormalized Tier = "normalized"
	TierRaw        Tier = "raw"
	TierInitials   Tier = "initials"
	TierFuzzy      Tier = "fuzzy"
)

// DefaultTiers is the cascade order used when none is configured.
var DefaultTiers = []Tier{TierPersonKey, TierNormalized, TierRaw, TierInitials, TierFuzzy}

// ParseTiers validates a configured tier order. Empty input yields
// DefaultTiers.
func ParseTiers(in []string) ([]Tier, error) {
	if len(in) == 0 {
		return slices.Clone(DefaultTiers), nil
	}
	out := make([]Tier, 0, len(in))
	for _, s := range in {
		t := Tier(strings.ToLower(strings.TrimSpace(s)))
		if !slices.Contains(DefaultTiers, t) {
			return nil, fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, s)
		}
		if slices.Contains(out, t) {
			return nil, fmt.Errorf("%w: tier %q listed twice", ErrInvalidInput, s)
		}
		out = append(out, t)
	}
	return out, nil
}

// query is the per-term state every tier reads.
type query struct {
	term string
	name names.NormalizedName
	city string
	// key is set when the term is a person key literal or the directory
	// knows one for this name and city.
	key names.PersonKey
}

// candidate is a row a tier produced, with its fuzzy score.
type candidate struct {
	repository.Contribution
	score float64
}

// tierFunc issues at most one store query. It returns nil, nil when the tier
// does not apply to q.
type tierFunc func(ctx context.Context, sess Session, q query, budget int) ([]candidate, error)

func (r *Resolver) strategy(t Tier) tierFunc {
	switch t {
	case TierPersonKey:
		return personKeyTier
	case TierNormalized:
		return normalizedTier
	case TierRaw:
		return rawTier
	case TierInitials:
		return initialsTier
	case TierFuzzy:
		return r.fuzzyTier
	}
	return nil
}

func personKeyTier(ctx context.Context, sess Session, q query, budget int) ([]candidate, error) {
	if q.key == "" {
		return nil, nil
	}
	return exact(sess.LookupByPersonKey(ctx, q.key, budget))
}

func normalizedTier(ctx context.Context, sess Session, q query, budget int) ([]candidate, error) {
	if q.name.First == "" || q.name.Last == "" {
		return nil, nil
	}
	return exact(sess.LookupByNormalizedName(ctx, q.name.First, q.name.Last, q.city, budget))
}

func rawTier(ctx context.Context, sess Session, q query, budget int) ([]candidate, error) {
	return exact(sess.LookupByRawName(ctx, q.term, q.city, budget))
}

func initialsTier(ctx context.Context, sess Session, q query, budget int) ([]candidate, error) {
	if !q.name.FirstIsInitial || q.name.Last == "" {
		return nil, nil
	}
	return exact(sess.LookupByInitial(ctx, q.name.Initial(), q.name.Last, q.city, budget))
}

// fuzzyTier scores a bounded sample against the normalized full name. Rows
// whose names contain the queried first and last name are kept at the
// threshold score. The sample, not the corpus, bounds its cost, so matches
// outside the sample are never found.
func (r *Resolver) fuzzyTier(ctx context.Context, sess Session, q query, budget int) ([]candidate, error) {
	target := q.name.FullName()
	if target == "" || r.fuzzy.SampleSize <= 0 {
		return nil, nil
	}
	spec := repository.SampleSpec{
		Size:   r.fuzzy.SampleSize,
		Policy: r.fuzzy.Policy,
		City:   q.city,
	}
	if spec.Policy == repository.SampleBlock {
		spec.LastNamePrefix = prefix(q.name.Last, r.fuzzy.PrefixLen)
	}
	rows, err := sess.Sample(ctx, spec)
	if err != nil {
		return nil, err
	}

	var out []candidate
	for _, c := range rows {
		score := similarity(target, strings.TrimSpace(c.FirstName+" "+c.LastName))
		if score < r.fuzzy.Threshold && partial(q.name.First, q.name.Last, c.FirstName, c.LastName) {
			// Partial matches rank after every closer spelling.
			score = r.fuzzy.Threshold
		}
		if score < r.fuzzy.Threshold {
			continue
		}
		out = append(out, candidate{Contribution: c, score: score})
	}
	slices.SortFunc(out, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case repository.Less(a.Contribution, b.Contribution):
			return -1
		case repository.Less(b.Contribution, a.Contribution):
			return 1
		}
		return 0
	})
	if len(out) > budget {
		out = out[:budget]
	}
	return out, nil
}

func exact(rows []repository.Contribution, err error) ([]candidate, error) {
	if err != nil {
		return nil, err
	}
	out := make([]candidate, len(rows))
	for i, c := range rows {
		out[i] = candidate{Contribution: c, score: 1}
	}
	slices.SortStableFunc(out, func(a, b candidate) int {
		switch {
		case repository.Less(a.Contribution, b.Contribution):
			return -1
		case repository.Less(b.Contribution, a.Contribution):
			return 1
		}
		return 0
	})
	return out, nil
}

func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
