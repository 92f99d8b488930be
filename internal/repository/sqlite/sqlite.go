// Package sqlite implements the repository interfaces on an embedded
// SQLite database.
//
// modernc.org/sqlite is a pure-Go translation of SQLite: no CGo, no
// external database server, a single file (or ":memory:" in tests). WAL
// mode allows concurrent reads while a write is in flight, which matters
// for a web server where list queries and notification inserts overlap.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and carries the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway database in tests.
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection there.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			registration_number TEXT NOT NULL UNIQUE,
			name                TEXT NOT NULL,
			password_hash       TEXT NOT NULL,
			security_code_hash  TEXT NOT NULL,
			security_code_hint  TEXT NOT NULL DEFAULT '',
			email               TEXT NOT NULL DEFAULT '',
			phone               TEXT NOT NULL DEFAULT '',
			reset_token         TEXT NOT NULL DEFAULT '',
			reset_token_expiry  DATETIME,
			created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One table for all five listing kinds: a shared envelope plus a JSON
	// payload holding the kind-specific fields. Payload filters go through
	// json_extract, so no per-kind columns are needed.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id                 TEXT PRIMARY KEY,
			kind               TEXT NOT NULL,
			status             TEXT NOT NULL DEFAULT '',
			owner_id           TEXT NOT NULL REFERENCES users(id),
			owner_name         TEXT NOT NULL DEFAULT '',
			owner_registration TEXT NOT NULL DEFAULT '',
			attachment         TEXT NOT NULL DEFAULT '',
			payload            TEXT NOT NULL DEFAULT '{}',
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_listings_kind_created_at ON listings(kind, created_at);
		CREATE INDEX IF NOT EXISTS idx_listings_owner_id ON listings(owner_id);
	`)
	if err != nil {
		return fmt.Errorf("creating listings table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			item_id    TEXT NOT NULL DEFAULT '',
			item_kind  TEXT NOT NULL DEFAULT '',
			read       INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read);
	`)
	if err != nil {
		return fmt.Errorf("creating notifications table: %w", err)
	}

	return nil
}
