// Package sqlite implements the persistence repositories on an embedded
// SQLite database driven by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/persistence"
)

var (
	_ persistence.CustomerRepository     = (*CustomerRepository)(nil)
	_ persistence.CustomerListRepository = (*CustomerListRepository)(nil)
	_ persistence.RuleRepository         = (*RuleRepository)(nil)
	_ persistence.TourSlotRepository     = (*TourSlotRepository)(nil)
)

// Store owns the database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn and applies the pragmas the
// repositories rely on. SQLite serializes writers, so the pool is capped at
// a single connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTransaction runs fn inside a transaction, rolling back when fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// ErrorMapper translates driver errors into the persistence sentinels so
// callers can match with errors.Is.
type ErrorMapper struct{}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

// --- Column codecs ---

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse timestamp %q: %w", value, err)
	}
	return t.In(calendar.DefaultLocation()), nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// optionalTime treats the zero time as NULL, matching the domain convention
// that an unset base date is the zero value.
func optionalTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func scanNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanOptionalTime(value sql.NullString) (time.Time, error) {
	if !value.Valid {
		return time.Time{}, nil
	}
	return parseTime(value.String)
}

func nullableWeekday(w *calendar.Weekday) sql.NullInt64 {
	if w == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*w), Valid: true}
}

func scanNullableWeekday(value sql.NullInt64) *calendar.Weekday {
	if !value.Valid {
		return nil
	}
	w := calendar.Weekday(value.Int64)
	return &w
}

func encodeWeekdays(days []calendar.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, day := range days {
		parts[i] = strconv.Itoa(int(day))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(value string) ([]calendar.Weekday, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	days := make([]calendar.Weekday, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse weekday list %q: %w", value, err)
		}
		days = append(days, calendar.Weekday(n))
	}
	return days, nil
}
