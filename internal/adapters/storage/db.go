package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB initializes the local database schema.
// PRE: db is a valid database connection
// POST: setting and audit_event tables exist, WAL mode enabled
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS setting (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'info',
		actor_id TEXT NOT NULL DEFAULT '',
		identity TEXT NOT NULL DEFAULT '',
		row_index INTEGER NOT NULL DEFAULT 0,
		revision INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_event_identity ON audit_event(identity);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Open opens the SQLite file at path and applies the schema.
// PRE: path is a writable file path or ":memory:"
// POST: Returns an initialised connection; caller closes it
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// each new connection would otherwise see an empty database
		db.SetMaxOpenConns(1)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
