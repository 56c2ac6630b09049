package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database. It is the only shared mutable
// resource between pipeline stages; every stage commits its writes
// before the next stage reads.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the SQLite database at path and initializes the
// schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for read concurrency between the API and pipeline runs.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'rss',
		url TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		last_fetched_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS raw_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER REFERENCES sources(id),
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		url TEXT UNIQUE,
		author TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'scored', 'discarded')),
		fetched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_raw_status ON raw_items(status);
	CREATE INDEX IF NOT EXISTS idx_raw_published ON raw_items(published_at);

	CREATE TABLE IF NOT EXISTS processed_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		raw_item_id INTEGER NOT NULL REFERENCES raw_items(id),
		relevance INTEGER NOT NULL DEFAULT 5,
		quality INTEGER NOT NULL DEFAULT 5,
		timeliness INTEGER NOT NULL DEFAULT 5,
		total_score INTEGER NOT NULL DEFAULT 15,
		category TEXT NOT NULL DEFAULT 'other',
		keywords TEXT NOT NULL DEFAULT '[]',
		title_zh TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		approved INTEGER NOT NULL DEFAULT 0,
		processed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_processed_raw ON processed_items(raw_item_id);
	CREATE INDEX IF NOT EXISTS idx_processed_score ON processed_items(total_score);

	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_date TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		highlights TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft', 'published')),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		published_at TIMESTAMP,
		UNIQUE (report_date, version)
	);

	CREATE TABLE IF NOT EXISTS report_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL REFERENCES reports(id),
		processed_item_id INTEGER NOT NULL REFERENCES processed_items(id),
		order_index INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_report_items ON report_items(report_id, order_index);
	`

	_, err := s.db.Exec(schema)
	return err
}
