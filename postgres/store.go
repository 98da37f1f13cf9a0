// Package postgres provides Postgres-backed implementations of the
// checkpoint, profile, application, and obligation stores for multi-process
// deployments.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
    thread_id     TEXT PRIMARY KEY,
    state         JSONB NOT NULL,
    pending_node  TEXT NOT NULL,
    version       BIGINT NOT NULL,
    checkpoint_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
    user_id           TEXT PRIMARY KEY,
    name              TEXT NOT NULL DEFAULT '',
    major             TEXT NOT NULL DEFAULT '',
    state             TEXT NOT NULL DEFAULT '',
    gpa               DOUBLE PRECISION NOT NULL DEFAULT 0,
    financial_index   TEXT,
    pell_status       TEXT NOT NULL DEFAULT 'unknown',
    household_size    INTEGER NOT NULL DEFAULT 0,
    number_in_college INTEGER NOT NULL DEFAULT 0,
    updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    program      TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    submitted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_applications_status_submitted
    ON applications(status, submitted_at);

CREATE TABLE IF NOT EXISTS obligations (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL,
    application_id TEXT NOT NULL,
    due_at         TIMESTAMPTZ NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending',
    created_at     TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, application_id)
);
`

// Store provides durable storage on a Postgres database.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres with the given DSN and applies the schema.
// Idempotent and safe to call repeatedly.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
