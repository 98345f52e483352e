package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever the layout of the cache tables or the
// meaning of a stored row changes. A mismatch invalidates every entry.
const SchemaVersion = "2"

// Store is the SQLite data access layer for the incremental type cache.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled. An empty
// dbPath opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	dsn := dbPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"
	if dbPath == "" {
		dsn = "file::memory:?_foreign_keys=ON"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == "" {
		// Every new connection to :memory: is a distinct database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS modules (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  package_id      TEXT NOT NULL,
  fingerprint     TEXT NOT NULL,
  analyzed_at     TIMESTAMP
);

CREATE TABLE IF NOT EXISTS expr_types (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  start_offset    INTEGER NOT NULL,
  end_offset      INTEGER NOT NULL,
  type_string     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
  position        TEXT,
  message         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_expr_types_module ON expr_types(module_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_module ON diagnostics(module_id);
`

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// Reset drops every cached module with its expression types and diagnostics.
// Metadata is kept.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("reset: begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM diagnostics"); err != nil {
		return fmt.Errorf("reset: diagnostics: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM expr_types"); err != nil {
		return fmt.Errorf("reset: expr_types: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM modules"); err != nil {
		return fmt.Errorf("reset: modules: %w", err)
	}
	return tx.Commit()
}
