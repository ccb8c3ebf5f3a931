package sensorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

// placeholderStyle lets the same query-building logic serve both SQLite's
// "?" placeholders and Postgres's "$1" style.
type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// sqlStore implements domain.SensorStore over a database/sql connection.
// Both SQLiteStore and PostgresStore are thin wrappers that open the
// connection and delegate to this shared implementation, the way the
// teacher's repository package shares query logic across drivers.
type sqlStore struct {
	db          *sql.DB
	placeholder placeholderStyle
}

func newSQLStore(db *sql.DB, style placeholderStyle) (*sqlStore, error) {
	if _, err := db.Exec(schemaSensorReadings); err != nil {
		db.Close()
		return nil, fmt.Errorf("sensorstore: failed to apply schema: %w", err)
	}
	return &sqlStore{db: db, placeholder: style}, nil
}

func (s *sqlStore) ph(n int) string {
	if s.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// GetMany returns readings for the requested sensor names; names with no
// row are simply absent from the result, per spec.md §6.
func (s *sqlStore) GetMany(ctx context.Context, names []string) (map[string]domain.SensorReading, error) {
	out := make(map[string]domain.SensorReading, len(names))
	if len(names) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		placeholders[i] = s.ph(i + 1)
		args[i] = n
	}

	query := fmt.Sprintf(
		"SELECT name, value, timestamp FROM sensor_readings WHERE name IN (%s)",
		strings.Join(placeholders, ", "),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sensorstore: get many: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var value float64
		var ts time.Time
		if err := rows.Scan(&name, &value, &ts); err != nil {
			return nil, fmt.Errorf("sensorstore: scan reading: %w", err)
		}
		out[name] = domain.SensorReading{Value: value, Timestamp: ts}
	}
	return out, rows.Err()
}

// SetMany writes (value, timestamp=now) atomically per key inside a single
// transaction, upserting each sensor name.
func (s *sqlStore) SetMany(ctx context.Context, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sensorstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	upsert := fmt.Sprintf(
		`INSERT INTO sensor_readings (name, value, timestamp) VALUES (%s, %s, %s)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp`,
		s.ph(1), s.ph(2), s.ph(3),
	)

	for name, value := range values {
		if _, err := tx.ExecContext(ctx, upsert, name, value, now); err != nil {
			return fmt.Errorf("sensorstore: upsert %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// Ping verifies the underlying connection, used by the reference runtime's
// health endpoint.
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
