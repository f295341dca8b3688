// Package pgstore provides PostgreSQL storage for contributions.
package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jask/contribsearch/internal/database/repository"
	"github.com/jask/contribsearch/internal/names"
)

const selectColumns = `transaction_id, filer_transaction_id, committee_id, name_raw,
 first_name, last_name, city, state, zip, employer, occupation, amount_cents, transaction_date, person_key`

const rankOrder = ` ORDER BY amount_cents DESC, transaction_date DESC NULLS LAST, transaction_id ASC`

var copyColumns = []string{
	"transaction_id", "filer_transaction_id", "committee_id", "name_raw", "name_key",
	"first_name", "last_name", "city", "city_key", "state", "zip", "employer", "occupation",
	"amount_cents", "transaction_date", "person_key",
}

// Store wraps a PostgreSQL connection pool
type Store struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool. maxConns bounds concurrent sessions;
// zero keeps the pgxpool default.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates tables and indexes that do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// InsertBatch copies rows into a staging table and moves them into
// contributions, skipping transaction ids that already exist.
func (s *Store) InsertBatch(ctx context.Context, rows []repository.Contribution) (inserted, skipped int, err error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `CREATE TEMP TABLE contributions_stage ON COMMIT DROP AS
		SELECT `+strings.Join(copyColumns, ", ")+` FROM contributions WITH NO DATA`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create staging table: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"contributions_stage"}, copyColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			c := rows[i]
			return []any{
				c.TransactionID, c.FilerTransactionID, c.CommitteeID, c.NameRaw, repository.RawNameKey(c.NameRaw),
				c.FirstName, c.LastName, c.City, repository.CityKey(c.City), c.State, c.Zip, c.Employer, c.Occupation,
				c.AmountCents, nullableDate(c.Date), string(c.PersonKey),
			}, nil
		}))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to copy rows: %w", err)
	}

	cols := strings.Join(copyColumns, ", ")
	tag, err := tx.Exec(ctx, `INSERT INTO contributions (`+cols+`)
		SELECT `+cols+` FROM contributions_stage
		ON CONFLICT (transaction_id) DO NOTHING`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit ingest: %w", err)
	}
	inserted = int(tag.RowsAffected())
	return inserted, len(rows) - inserted, nil
}

// RecordIngestRun stores the outcome of one ingest.
func (s *Store) RecordIngestRun(ctx context.Context, id, source string, imported, skipped, failed int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, source, imported, skipped, failed) VALUES ($1, $2, $3, $4, $5)`,
		id, source, imported, skipped, failed,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	return nil
}

// Count returns the number of stored contributions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contributions`).Scan(&n)
	return n, err
}

// Reset removes every contribution and ingest run. The schema is kept.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE contributions, ingest_runs RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to reset tables: %w", err)
	}
	return nil
}

// Acquire checks one connection out of the pool. Close returns it.
func (s *Store) Acquire(ctx context.Context) (*Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Session runs lookups on one pooled connection.
type Session struct {
	conn *pgxpool.Conn
}

func (s *Session) Close() error {
	s.conn.Release()
	return nil
}

func (s *Session) LookupByPersonKey(ctx context.Context, key names.PersonKey, limit int) ([]repository.Contribution, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM contributions WHERE person_key = $1`+rankOrder+` LIMIT $2`,
		string(key), limit)
}

func (s *Session) LookupByNormalizedName(ctx context.Context, first, last, city string, limit int) ([]repository.Contribution, error) {
	w := where{args: []any{last, first}}
	w.add("last_name = $1 AND first_name = $2")
	w.city(city)
	q := w.build(rankOrder, limit)
	return s.query(ctx, q, w.args...)
}

func (s *Session) LookupByRawName(ctx context.Context, raw, city string, limit int) ([]repository.Contribution, error) {
	w := where{args: []any{repository.RawNameKey(raw)}}
	w.add("name_key = $1")
	w.city(city)
	q := w.build(rankOrder, limit)
	return s.query(ctx, q, w.args...)
}

func (s *Session) LookupByInitial(ctx context.Context, initial, last, city string, limit int) ([]repository.Contribution, error) {
	if initial == "" {
		return nil, nil
	}
	w := where{args: []any{last, likePrefix(initial)}}
	w.add("last_name = $1 AND first_name LIKE $2")
	w.city(city)
	q := w.build(rankOrder, limit)
	return s.query(ctx, q, w.args...)
}

func (s *Session) Sample(ctx context.Context, spec repository.SampleSpec) ([]repository.Contribution, error) {
	if spec.Size <= 0 {
		return nil, nil
	}
	var w where
	w.city(spec.City)
	order := " ORDER BY seq"
	switch {
	case spec.Policy == repository.SampleBlock && spec.LastNamePrefix != "":
		w.args = append(w.args, likePrefix(spec.LastNamePrefix))
		w.add(fmt.Sprintf("last_name LIKE $%d", len(w.args)))
		order = " ORDER BY last_name, first_name, seq"
	case spec.Policy == repository.SampleRandom:
		w.add("seq >= (SELECT floor(random() * (COALESCE(MAX(seq), 0) + 1))::bigint FROM contributions)")
	}
	q := w.build(order, spec.Size)
	return s.query(ctx, q, w.args...)
}

func (s *Session) query(ctx context.Context, sql string, args ...any) ([]repository.Contribution, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Contribution
	for rows.Next() {
		var c repository.Contribution
		var date *time.Time
		var key string
		if err := rows.Scan(&c.TransactionID, &c.FilerTransactionID, &c.CommitteeID, &c.NameRaw,
			&c.FirstName, &c.LastName, &c.City, &c.State, &c.Zip, &c.Employer, &c.Occupation,
			&c.AmountCents, &date, &key); err != nil {
			return nil, err
		}
		if date != nil {
			c.Date = *date
		}
		c.PersonKey = names.PersonKey(key)
		out = append(out, c)
	}
	return out, rows.Err()
}

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string) { w.conds = append(w.conds, cond) }

func (w *where) city(city string) {
	if key := repository.CityKey(city); key != "" {
		w.args = append(w.args, key)
		w.add(fmt.Sprintf("city_key = $%d", len(w.args)))
	}
}

// build renders the select and appends the limit argument, so it must run
// before w.args is read.
func (w *where) build(order string, limit int) string {
	q := `SELECT ` + selectColumns + ` FROM contributions`
	if len(w.conds) > 0 {
		q += " WHERE " + strings.Join(w.conds, " AND ")
	}
	w.args = append(w.args, limit)
	return q + order + fmt.Sprintf(" LIMIT $%d", len(w.args))
}

func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
