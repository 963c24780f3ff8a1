package database

import (
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row addressed by id or user does not exist.
var ErrNotFound = errors.New("not found")

// dateLayout keeps dates sortable as text.
const dateLayout = "2006-01-02"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		quantity REAL NOT NULL CHECK (quantity > 0),
		price REAL NOT NULL CHECK (price > 0),
		date TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions (user_id, date);`,
	`CREATE TABLE IF NOT EXISTS price_alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		target_price REAL NOT NULL,
		direction TEXT NOT NULL CHECK (direction IN ('above', 'below')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS scheduled_reports (
		user_id INTEGER PRIMARY KEY,
		time TEXT NOT NULL,
		frequency TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`,
}

// Store is the ledger: transactions, price alerts, report subscriptions and persisted metrics.
type Store struct {
	db *sql.DB
}

// New opens the sqlite database at path and creates missing tables.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// one connection serializes every statement between the command loop and the scheduler,
	// and keeps an in-memory database alive
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	log.Debugf("Database initialized at %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
