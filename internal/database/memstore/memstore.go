// Package memstore is an in-memory contribution store with the same lookup
// surface as the SQLite and PostgreSQL stores. It indexes rows on insert and
// suits tests, small corpora, and running without a database file.
package memstore

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/names"
)

// ErrSessionClosed is returned by lookups on a closed session.
var ErrSessionClosed = errors.New("memstore: session closed")

// Store holds contributions and their lookup indexes.
type Store struct {
	mu     sync.RWMutex
	rows   []repository.Contribution
	byID   map[string]int
	byKey  map[names.PersonKey][]int
	byName map[string][]int // last|first
	byRaw  map[string][]int
	byLast map[string][]int
	sorted []int // rows ordered by last, first; rebuilt lazily
	dirty  bool
	rngMu  sync.Mutex
	rng    *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

// WithSeed makes random sampling reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Store) { s.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		byID:   make(map[string]int),
		byKey:  make(map[names.PersonKey][]int),
		byName: make(map[string][]int),
		byRaw:  make(map[string][]int),
		byLast: make(map[string][]int),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// InsertBatch adds rows, skipping transaction ids already present.
func (s *Store) InsertBatch(_ context.Context, rows []repository.Contribution) (inserted, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range rows {
		if _, ok := s.byID[c.TransactionID]; ok {
			skipped++
			continue
		}
		i := len(s.rows)
		s.rows = append(s.rows, c)
		s.byID[c.TransactionID] = i
		s.byKey[c.PersonKey] = append(s.byKey[c.PersonKey], i)
		nk := nameIndexKey(c.LastName, c.FirstName)
		s.byName[nk] = append(s.byName[nk], i)
		rk := repository.RawNameKey(c.NameRaw)
		s.byRaw[rk] = append(s.byRaw[rk], i)
		s.byLast[c.LastName] = append(s.byLast[c.LastName], i)
		inserted++
	}
	if inserted > 0 {
		s.dirty = true
	}
	return inserted, skipped, nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Acquire returns a session. Sessions hold no resources beyond a closed flag.
func (s *Store) Acquire(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Session{store: s}, nil
}

// Session reads from the store until closed.
type Session struct {
	store  *Store
	mu     sync.Mutex
	closed bool
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) check(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	return ctx.Err()
}

func (s *Session) LookupByPersonKey(ctx context.Context, key names.PersonKey, limit int) ([]repository.Contribution, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.store.collect(s.store.byKey[key], "", limit, nil), nil
}

func (s *Session) LookupByNormalizedName(ctx context.Context, first, last, city string, limit int) ([]repository.Contribution, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.store.collect(s.store.byName[nameIndexKey(last, first)], city, limit, nil), nil
}

func (s *Session) LookupByRawName(ctx context.Context, raw, city string, limit int) ([]repository.Contribution, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.store.collect(s.store.byRaw[repository.RawNameKey(raw)], city, limit, nil), nil
}

func (s *Session) LookupByInitial(ctx context.Context, initial, last, city string, limit int) ([]repository.Contribution, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if initial == "" {
		return nil, nil
	}
	return s.store.collect(s.store.byLast[last], city, limit, func(c repository.Contribution) bool {
		return strings.HasPrefix(c.FirstName, initial)
	}), nil
}

func (s *Session) Sample(ctx context.Context, spec repository.SampleSpec) ([]repository.Contribution, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if spec.Size <= 0 {
		return nil, nil
	}
	return s.store.sample(spec), nil
}

func (s *Store) collect(idx []int, city string, limit int, keep func(repository.Contribution) bool) []repository.Contribution {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cityKey := repository.CityKey(city)
	var out []repository.Contribution
	for _, i := range idx {
		c := s.rows[i]
		if cityKey != "" && repository.CityKey(c.City) != cityKey {
			continue
		}
		if keep != nil && !keep(c) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, compare)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) sample(spec repository.SampleSpec) []repository.Contribution {
	s.mu.Lock()
	if s.dirty {
		s.rebuildSorted()
	}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make([]int, len(s.rows))
	for i := range order {
		order[i] = i
	}
	switch {
	case spec.Policy == repository.SampleBlock && spec.LastNamePrefix != "":
		lo := sort.Search(len(s.sorted), func(i int) bool {
			return s.rows[s.sorted[i]].LastName >= spec.LastNamePrefix
		})
		hi := lo
		for hi < len(s.sorted) && strings.HasPrefix(s.rows[s.sorted[hi]].LastName, spec.LastNamePrefix) {
			hi++
		}
		order = s.sorted[lo:hi]
	case spec.Policy == repository.SampleRandom && len(order) > 0:
		s.rngMu.Lock()
		start := s.rng.IntN(len(order))
		s.rngMu.Unlock()
		order = order[start:]
	}

	cityKey := repository.CityKey(spec.City)
	out := make([]repository.Contribution, 0, min(spec.Size, len(order)))
	for _, i := range order {
		if len(out) == spec.Size {
			break
		}
		c := s.rows[i]
		if cityKey != "" && repository.CityKey(c.City) != cityKey {
			continue
		}
		out = append(out, c)
	}
	return out
}

// rebuildSorted must be called with mu held for writing.
func (s *Store) rebuildSorted() {
	s.sorted = make([]int, len(s.rows))
	for i := range s.sorted {
		s.sorted[i] = i
	}
	sort.SliceStable(s.sorted, func(a, b int) bool {
		ra, rb := s.rows[s.sorted[a]], s.rows[s.sorted[b]]
		if ra.LastName != rb.LastName {
			return ra.LastName < rb.LastName
		}
		return ra.FirstName < rb.FirstName
	})
	s.dirty = false
}

func compare(a, b repository.Contribution) int {
	switch {
	case repository.Less(a, b):
		return -1
	case repository.Less(b, a):
		return 1
	}
	return 0
}

func nameIndexKey(last, first string) string {
	return last + "|" + first
}
