package sqlite

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customer_lists (
		id                      TEXT PRIMARY KEY,
		name                    TEXT NOT NULL,
		weekday                 INTEGER NOT NULL,
		weekday_for_pickup      INTEGER,
		days_pickup_to_delivery INTEGER NOT NULL DEFAULT 0,
		created_at              TEXT NOT NULL,
		updated_at              TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS list_terms (
		list_id   TEXT NOT NULL REFERENCES customer_lists(id) ON DELETE CASCADE,
		position  INTEGER NOT NULL,
		term_date TEXT NOT NULL,
		term_type TEXT NOT NULL,
		PRIMARY KEY (list_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		city              TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL,
		preferred_weekday INTEGER,
		pickup_weekdays   TEXT NOT NULL DEFAULT '',
		delivery_weekdays TEXT NOT NULL DEFAULT '',
		list_id           TEXT REFERENCES customer_lists(id) ON DELETE SET NULL,
		rescheduled_to    TEXT,
		pickup_done       INTEGER NOT NULL DEFAULT 0,
		pickup_done_at    TEXT,
		delivery_done     INTEGER NOT NULL DEFAULT 0,
		delivery_done_at  TEXT,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customer_intervals (
		id              TEXT PRIMARY KEY,
		customer_id     TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		pickup_base     TEXT,
		delivery_base   TEXT,
		repeats         INTEGER NOT NULL DEFAULT 0,
		step_days       INTEGER NOT NULL DEFAULT 0,
		max_occurrences INTEGER NOT NULL DEFAULT 0,
		source_rule_id  TEXT,
		created_at      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customer_vacations (
		customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		from_day    TEXT NOT NULL,
		to_day      TEXT NOT NULL,
		PRIMARY KEY (customer_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS customer_terms (
		customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		term_date   TEXT NOT NULL,
		term_type   TEXT NOT NULL,
		PRIMARY KEY (customer_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS rules (
		id                   TEXT PRIMARY KEY,
		name                 TEXT NOT NULL,
		weekday_based        INTEGER NOT NULL DEFAULT 0,
		pickup_weekday       INTEGER NOT NULL DEFAULT 0,
		delivery_weekday     INTEGER,
		delivery_offset_days INTEGER NOT NULL DEFAULT 0,
		pickup_date          TEXT,
		delivery_date        TEXT,
		repeats              INTEGER NOT NULL DEFAULT 0,
		step_days            INTEGER NOT NULL DEFAULT 0,
		max_occurrences      INTEGER NOT NULL DEFAULT 0,
		usage_count          INTEGER NOT NULL DEFAULT 0,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tour_slots (
		id           TEXT PRIMARY KEY,
		weekday      INTEGER NOT NULL,
		city         TEXT NOT NULL,
		window_start TEXT NOT NULL,
		window_end   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_customers_list_id ON customers(list_id)`,
	`CREATE INDEX IF NOT EXISTS idx_customer_intervals_customer ON customer_intervals(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tour_slots_city ON tour_slots(city)`,
}

// Migrate creates the schema. Statements are idempotent, so running it on an
// already initialised database is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}
