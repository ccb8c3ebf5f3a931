package sensorstore

import (
	"database/sql"
	"fmt"

	"github.com/pulsar-rules/pulsar/internal/domain"
	_ "github.com/lib/pq"
)

// PostgresStore is the Pro-tier durable SensorStore, grounded on the
// teacher's internal/repository Postgres adapter.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore opens a Postgres-backed sensor store.
func NewPostgresStore(cfg domain.StoreConfig) (*PostgresStore, error) {
	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}
	dbname := cfg.PostgresDB
	if dbname == "" {
		dbname = "pulsar"
	}
	sslmode := cfg.PostgresSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, cfg.PostgresUser, cfg.PostgresPassword, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sensorstore: failed to open postgres database: %w", err)
	}

	store, err := newSQLStore(db, placeholderDollar)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{sqlStore: store}, nil
}
