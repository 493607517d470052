// Package store persists built modules to SQLite so that documentation
// queries can be answered without re-reading and re-parsing the archive.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested module does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the SQLite data access layer for autodoc's four tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
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

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
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
  root            TEXT NOT NULL,
  hash            TEXT NOT NULL,
  root_file       INTEGER NOT NULL,
  file_count      INTEGER NOT NULL,
  decl_count      INTEGER NOT NULL,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS files (
  module_id       INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
  idx             INTEGER NOT NULL,
  path            TEXT NOT NULL,
  status          TEXT NOT NULL,
  root_decl       INTEGER,
  source          BLOB NOT NULL,
  PRIMARY KEY (module_id, idx)
);

CREATE TABLE IF NOT EXISTS decls (
  module_id       INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
  idx             INTEGER NOT NULL,
  file_idx        INTEGER NOT NULL,
  parent          INTEGER NOT NULL,
  node            INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  category        TEXT NOT NULL,
  children        INTEGER NOT NULL,
  name            TEXT NOT NULL,
  path            TEXT NOT NULL,
  public          BOOLEAN NOT NULL,
  summary         TEXT NOT NULL,
  doc             TEXT NOT NULL,
  PRIMARY KEY (module_id, idx)
);

CREATE TABLE IF NOT EXISTS extra (
  module_id       INTEGER PRIMARY KEY REFERENCES modules(id) ON DELETE CASCADE,
  words           BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_modules_hash ON modules(hash);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(module_id, path);
CREATE INDEX IF NOT EXISTS idx_decls_parent ON decls(module_id, parent);
`
