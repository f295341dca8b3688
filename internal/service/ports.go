package service

import (
	"context"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/names"
)

// Session is one storage session. Lookups return rows in rank order (amount
// desc, date desc, transaction id asc) and an empty slice when nothing
// matches. A session is used by one goroutine at a time.
type Session interface {
	LookupByPersonKey(ctx context.Context, key names.PersonKey, limit int) ([]repository.Contribution, error)
	LookupByNormalizedName(ctx context.Context, first, last, city string, limit int) ([]repository.Contribution, error)
	LookupByRawName(ctx context.Context, raw, city string, limit int) ([]repository.Contribution, error)
	LookupByInitial(ctx context.Context, initial, last, city string, limit int) ([]repository.Contribution, error)
	Sample(ctx context.Context, spec repository.SampleSpec) ([]repository.Contribution, error)
	Close() error
}

// RecordStore hands out sessions.
type RecordStore interface {
	Acquire(ctx context.Context) (Session, error)
}

// AcquireFunc adapts a function to RecordStore.
type AcquireFunc func(ctx context.Context) (Session, error)

func (f AcquireFunc) Acquire(ctx context.Context) (Session, error) { return f(ctx) }

// Sessions adapts a store whose Acquire returns a concrete session type.
//
//	store := service.Sessions(repo.Acquire)
func Sessions[S Session](acquire func(context.Context) (S, error)) RecordStore {
	return AcquireFunc(func(ctx context.Context) (Session, error) {
		s, err := acquire(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// KeyDirectory remembers person keys confirmed by earlier searches.
type KeyDirectory interface {
	// Lookup returns the key stored for (first, last, city). ok is false
	// when none is known.
	Lookup(ctx context.Context, first, last, city string) (key names.PersonKey, ok bool, err error)
	Remember(ctx context.Context, first, last, city string, key names.PersonKey) error
}
