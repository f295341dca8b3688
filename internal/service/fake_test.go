package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jask/contribsearch/internal/database/memstore"
	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/names"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// countingSession wraps a memstore session, counting calls per method and
// failing any call for which fail returns an error.
type countingSession struct {
	*memstore.Session
	mu     sync.Mutex
	calls  map[string]int
	fail   func(method string, args ...string) error
	before func(method string)
	closed bool
}

func (s *countingSession) hit(method string, args ...string) error {
	s.mu.Lock()
	s.calls[method]++
	s.mu.Unlock()
	if s.before != nil {
		s.before(method)
	}
	if s.fail != nil {
		return s.fail(method, args...)
	}
	return nil
}

func (s *countingSession) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *countingSession) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *countingSession) LookupByPersonKey(ctx context.Context, key names.PersonKey, limit int) ([]repository.Contribution, error) {
	if err := s.hit("person_key", string(key)); err != nil {
		return nil, err
	}
	return s.Session.LookupByPersonKey(ctx, key, limit)
}

func (s *countingSession) LookupByNormalizedName(ctx context.Context, first, last, city string, limit int) ([]repository.Contribution, error) {
	if err := s.hit("normalized", first, last, city); err != nil {
		return nil, err
	}
	return s.Session.LookupByNormalizedName(ctx, first, last, city, limit)
}

func (s *countingSession) LookupByRawName(ctx context.Context, raw, city string, limit int) ([]repository.Contribution, error) {
	if err := s.hit("raw", raw, city); err != nil {
		return nil, err
	}
	return s.Session.LookupByRawName(ctx, raw, city, limit)
}

func (s *countingSession) LookupByInitial(ctx context.Context, initial, last, city string, limit int) ([]repository.Contribution, error) {
	if err := s.hit("initials", initial, last, city); err != nil {
		return nil, err
	}
	return s.Session.LookupByInitial(ctx, initial, last, city, limit)
}

func (s *countingSession) Sample(ctx context.Context, spec repository.SampleSpec) ([]repository.Contribution, error) {
	if err := s.hit("sample", spec.LastNamePrefix, spec.City); err != nil {
		return nil, err
	}
	return s.Session.Sample(ctx, spec)
}

func (s *countingSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Session.Close()
}

// fakeStore hands out counting sessions over one memstore.
type fakeStore struct {
	mem      *memstore.Store
	acquires int
	err      error
	sessions []*countingSession
	fail     func(method string, args ...string) error
	before   func(method string)
}

func (f *fakeStore) Acquire(ctx context.Context) (Session, error) {
	f.acquires++
	if f.err != nil {
		return nil, f.err
	}
	inner, err := f.mem.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	s := &countingSession{Session: inner, calls: map[string]int{}, fail: f.fail, before: f.before}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// memDirectory is an in-test KeyDirectory.
type memDirectory struct {
	mu      sync.Mutex
	keys    map[string]names.PersonKey
	lookups int
}

func newMemDirectory() *memDirectory {
	return &memDirectory{keys: map[string]names.PersonKey{}}
}

func (d *memDirectory) Lookup(_ context.Context, first, last, city string) (names.PersonKey, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	k, ok := d.keys[first+"|"+last+"|"+repository.CityKey(city)]
	return k, ok, nil
}

func (d *memDirectory) Remember(_ context.Context, first, last, city string, key names.PersonKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[first+"|"+last+"|"+repository.CityKey(city)] = key
	return nil
}

func row(id, raw, city, state string, cents int64, date string) repository.Contribution {
	n, key := names.KeyForRaw(raw, city, state)
	c := repository.Contribution{
		TransactionID: id,
		CommitteeID:   "C" + id,
		NameRaw:       raw,
		FirstName:     n.First,
		LastName:      n.Last,
		City:          city,
		State:         state,
		AmountCents:   cents,
		PersonKey:     key,
	}
	if date != "" {
		c.Date, _ = time.Parse(time.DateOnly, date)
	}
	return c
}

// corpus is shared by resolver and bulk tests.
func corpus(t *testing.T) *memstore.Store {
	t.Helper()
	mem := memstore.New(memstore.WithSeed(1))
	_, _, err := mem.InsertBatch(context.Background(), []repository.Contribution{
		row("1", "SMITH, JOHN", "NEW YORK", "NY", 5000, "2024-01-02"),
		row("2", "SMITH, JOHN", "NEW YORK", "NY", 5000, "2024-03-01"),
		row("3", "SMITH, JOHN A", "NEW YORK", "NY", 25000, "2023-11-11"),
		row("4", "SMITH, JOHN", "BOSTON", "MA", 100000, "2024-02-02"),
		row("5", "SMITH, J", "NEW YORK", "NY", 700, "2024-04-04"),
		row("6", "SMITH, JANE", "NEW YORK", "NY", 1500, ""),
		row("7", "SMYTHE, JON", "NEW YORK", "NY", 300, "2024-05-05"),
		row("8", "JONES, MARY", "ALBANY", "NY", 100, "2022-01-01"),
		row("9", "DOE, JANE", "NEW YORK", "NY", 2500, "2024-06-06"),
	})
	require.NoError(t, err)
	return mem
}

func ids(ms []MatchResult) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.TransactionID)
	}
	return out
}
