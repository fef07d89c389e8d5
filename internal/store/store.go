// Package store persists cases, volumes, extraction runs and documents in
// SQLite. The driver is modernc.org/sqlite (pure Go, no cgo); write
// transactions retry on SQLITE_BUSY so concurrent extraction requests for
// the same volume serialize instead of interleaving.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	case_number    TEXT NOT NULL,
	title          TEXT NOT NULL,
	article        TEXT NOT NULL DEFAULT '',
	defendant_name TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'active',
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS volumes (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id           INTEGER NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
	volume_number     INTEGER NOT NULL,
	file_name         TEXT NOT NULL,
	file_size         INTEGER NOT NULL DEFAULT 0,
	page_count        INTEGER NOT NULL DEFAULT 0,
	processing_status TEXT NOT NULL DEFAULT 'pending',
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_volumes_case ON volumes(case_id);

CREATE TABLE IF NOT EXISTS extraction_runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	volume_id       INTEGER NOT NULL REFERENCES volumes(id) ON DELETE CASCADE,
	version         INTEGER NOT NULL,
	documents_count INTEGER NOT NULL DEFAULT 0,
	total_pages     INTEGER NOT NULL DEFAULT 0,
	crop_ratio      REAL NOT NULL DEFAULT 0.9,
	model_used      TEXT NOT NULL DEFAULT '',
	is_current      INTEGER NOT NULL DEFAULT 1,
	created_at      TEXT NOT NULL,
	UNIQUE(volume_id, version)
);
CREATE INDEX IF NOT EXISTS idx_runs_volume ON extraction_runs(volume_id);

CREATE TABLE IF NOT EXISTS documents (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id           INTEGER NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
	volume_id         INTEGER NOT NULL REFERENCES volumes(id) ON DELETE CASCADE,
	extraction_run_id INTEGER NOT NULL REFERENCES extraction_runs(id) ON DELETE CASCADE,
	doc_type          TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL,
	start_page        INTEGER NOT NULL,
	end_page          INTEGER NOT NULL,
	document_date     TEXT,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(extraction_run_id);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Tests should use a file in a temp dir; a ":memory:" DSN gives each
// pooled connection its own empty database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn inside a transaction, retrying on SQLITE_BUSY so that
// concurrent writers for the same volume queue instead of failing.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return retry.Do(
		func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin transaction: %w", err)
			}
			if err := fn(tx); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit transaction: %w", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
	)
}

// isBusy reports whether err is a transient SQLite lock contention error.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// now returns the UTC timestamp format stored in created_at columns.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
