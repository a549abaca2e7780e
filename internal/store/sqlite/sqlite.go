package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Store is the durable persistence layer for lists, entries,
// collaborators and the activity ledger.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS lists (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	public      INTEGER NOT NULL DEFAULT 0,
	owner_id    TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS collaborators (
	list_id TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
	email   TEXT NOT NULL,
	role    TEXT NOT NULL DEFAULT '',
	legacy  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (list_id, email)
);

CREATE TABLE IF NOT EXISTS url_entries (
	id          TEXT PRIMARY KEY,
	list_id     TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
	address     TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	category    TEXT NOT NULL DEFAULT '',
	favorite    INTEGER NOT NULL DEFAULT 0,
	pinned      INTEGER NOT NULL DEFAULT 0,
	clicks      INTEGER NOT NULL DEFAULT 0,
	health      TEXT NOT NULL DEFAULT 'unknown',
	position    INTEGER,
	archived    INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_url_entries_list ON url_entries(list_id);

CREATE TABLE IF NOT EXISTS activities (
	id          TEXT PRIMARY KEY,
	list_id     TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
	actor_id    TEXT NOT NULL DEFAULT '',
	actor_email TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	details     BLOB,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_list_created ON activities(list_id, created_at DESC);
`

// Open opens (or creates) the database at path and applies the schema.
// Pass ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single writer keeps last-write-wins semantics simple and avoids
	// SQLITE_BUSY under concurrent mutations.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
