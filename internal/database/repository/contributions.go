package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jask/contribsearch/internal/database"
	"github.com/jask/contribsearch/internal/names"
)

const contributionColumns = `transaction_id, filer_transaction_id, committee_id, name_raw,
 first_name, last_name, city, state, zip, employer, occupation, amount_cents, transaction_date, person_key`

const rankOrder = ` ORDER BY amount_cents DESC, transaction_date DESC, transaction_id ASC LIMIT ?`

const dateLayout = "2006-01-02"

// ContributionRepo is the SQLite-backed contribution store.
type ContributionRepo struct {
	db *sql.DB
}

func NewContributionRepo(db *sql.DB) *ContributionRepo { return &ContributionRepo{db: db} }

// InsertBatch writes rows in one transaction. Rows whose transaction id is
// already stored are skipped.
func (r *ContributionRepo) InsertBatch(ctx context.Context, rows []Contribution) (inserted, skipped int, err error) {
	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO contributions(
		 transaction_id, filer_transaction_id, committee_id, name_raw, name_key, first_name, last_name,
		 city, city_key, state, zip, employer, occupation, amount_cents, transaction_date, person_key)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range rows {
			res, err := stmt.ExecContext(ctx,
				c.TransactionID, c.FilerTransactionID, c.CommitteeID, c.NameRaw, RawNameKey(c.NameRaw),
				c.FirstName, c.LastName, c.City, CityKey(c.City), c.State, c.Zip, c.Employer, c.Occupation,
				c.AmountCents, nullableDate(c.Date), string(c.PersonKey))
			if err != nil {
				return fmt.Errorf("insert %s: %w", c.TransactionID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				skipped++
				continue
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, skipped, nil
}

// RecordIngestRun stores the outcome of one ingest.
func (r *ContributionRepo) RecordIngestRun(ctx context.Context, id, source string, imported, skipped, failed int) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO ingest_runs(id, source, imported, skipped, failed, finished_at)
	VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`, id, source, imported, skipped, failed)
	return err
}

// Count returns the number of stored contributions.
func (r *ContributionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contributions`).Scan(&n)
	return n, err
}

// Acquire pins one pooled connection for the caller. The session must be
// closed to return the connection.
func (r *ContributionRepo) Acquire(ctx context.Context) (*Session, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sqlite conn: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Session runs read-only lookups on a single connection.
type Session struct {
	conn *sql.Conn
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) LookupByPersonKey(ctx context.Context, key names.PersonKey, limit int) ([]Contribution, error) {
	return s.query(ctx, `SELECT `+contributionColumns+` FROM contributions WHERE person_key = ?`+rankOrder,
		string(key), limit)
}

func (s *Session) LookupByNormalizedName(ctx context.Context, first, last, city string, limit int) ([]Contribution, error) {
	q, args := withCity(`SELECT `+contributionColumns+` FROM contributions WHERE last_name = ? AND first_name = ?`,
		[]any{last, first}, city)
	return s.query(ctx, q+rankOrder, append(args, limit)...)
}

func (s *Session) LookupByRawName(ctx context.Context, raw, city string, limit int) ([]Contribution, error) {
	q, args := withCity(`SELECT `+contributionColumns+` FROM contributions WHERE name_key = ?`,
		[]any{RawNameKey(raw)}, city)
	return s.query(ctx, q+rankOrder, append(args, limit)...)
}

func (s *Session) LookupByInitial(ctx context.Context, initial, last, city string, limit int) ([]Contribution, error) {
	if initial == "" {
		return nil, nil
	}
	q, args := withCity(`SELECT `+contributionColumns+` FROM contributions
	 WHERE last_name = ? AND first_name >= ? AND first_name < ?`,
		[]any{last, initial, PrefixUpperBound(initial)}, city)
	return s.query(ctx, q+rankOrder, append(args, limit)...)
}

func (s *Session) Sample(ctx context.Context, spec SampleSpec) ([]Contribution, error) {
	if spec.Size <= 0 {
		return nil, nil
	}
	var where []string
	var args []any
	if city := CityKey(spec.City); city != "" {
		where = append(where, "city_key = ?")
		args = append(args, city)
	}

	order := " ORDER BY rowid"
	switch {
	case spec.Policy == SampleBlock && spec.LastNamePrefix != "":
		where = append(where, "last_name >= ? AND last_name < ?")
		args = append(args, spec.LastNamePrefix, PrefixUpperBound(spec.LastNamePrefix))
		order = " ORDER BY last_name, first_name, rowid"
	case spec.Policy == SampleRandom:
		where = append(where, "rowid >= (SELECT abs(random()) % (COALESCE(MAX(rowid), 0) + 1) FROM contributions)")
	}

	query := `SELECT ` + contributionColumns + ` FROM contributions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += order + " LIMIT ?"
	return s.query(ctx, query, append(args, spec.Size)...)
}

func (s *Session) query(ctx context.Context, query string, args ...any) ([]Contribution, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func withCity(query string, args []any, city string) (string, []any) {
	if key := CityKey(city); key != "" {
		return query + " AND city_key = ?", append(args, key)
	}
	return query, args
}

// scanner handles both Row and Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanContribution(row scanner) (Contribution, error) {
	var c Contribution
	var date sql.NullString
	var key string
	if err := row.Scan(&c.TransactionID, &c.FilerTransactionID, &c.CommitteeID, &c.NameRaw,
		&c.FirstName, &c.LastName, &c.City, &c.State, &c.Zip, &c.Employer, &c.Occupation,
		&c.AmountCents, &date, &key); err != nil {
		return Contribution{}, err
	}
	c.PersonKey = names.PersonKey(key)
	if date.Valid && date.String != "" {
		d, err := time.Parse(dateLayout, date.String)
		if err != nil {
			return Contribution{}, fmt.Errorf("parse transaction_date %q: %w", date.String, err)
		}
		c.Date = d
	}
	return c, nil
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}
