package pgstore

// schema is applied by EnsureSchema. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS contributions (
		transaction_id       TEXT PRIMARY KEY,
		seq                  BIGSERIAL NOT NULL,
		filer_transaction_id TEXT NOT NULL DEFAULT '',
		committee_id         TEXT NOT NULL DEFAULT '',
		name_raw             TEXT NOT NULL,
		name_key             TEXT NOT NULL,
		first_name           TEXT NOT NULL DEFAULT '',
		last_name            TEXT NOT NULL DEFAULT '',
		city                 TEXT NOT NULL DEFAULT '',
		city_key             TEXT NOT NULL DEFAULT '',
		state                TEXT NOT NULL DEFAULT '',
		zip                  TEXT NOT NULL DEFAULT '',
		employer             TEXT NOT NULL DEFAULT '',
		occupation           TEXT NOT NULL DEFAULT '',
		amount_cents         BIGINT NOT NULL,
		transaction_date     DATE,
		person_key           TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_name
		ON contributions (last_name text_pattern_ops, first_name text_pattern_ops, city_key)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_name_key ON contributions (name_key, city_key)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_person_key ON contributions (person_key)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_city_key ON contributions (city_key)`,
	`CREATE INDEX IF NOT EXISTS idx_contributions_seq ON contributions (seq)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		id          TEXT PRIMARY KEY,
		source      TEXT NOT NULL,
		imported    INTEGER NOT NULL,
		skipped     INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
