package sensorstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pulsar-rules/pulsar/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the Community-tier SensorStore, backed by a pure-Go SQLite
// driver (no CGO), grounded on the teacher's internal/repository SQLite
// adapter.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed sensor
// store.
func NewSQLiteStore(cfg domain.StoreConfig) (*SQLiteStore, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "./pulsar.db"
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sensorstore: failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sensorstore: failed to open sqlite database: %w", err)
	}

	store, err := newSQLStore(db, placeholderQuestion)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: store}, nil
}
