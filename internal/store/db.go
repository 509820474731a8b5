// Package store opens the SQLite database that backs the astrogator tool
// and bootstraps its schema on first run. Schema upgrades between released
// versions are handled by the standalone migration tool, not here.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps the shared SQLite connection. All packages that persist data
// (galaxy, roster, fleet, settings) run their SQL through it.
type DB struct {
	*sqlx.DB
}

// Open opens or creates the database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{DB: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS worlds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		ei INTEGER NOT NULL DEFAULT 0,
		rer INTEGER NOT NULL DEFAULT 0,
		scanner_id TEXT
	);

	CREATE TABLE IF NOT EXISTS worlds_history (
		world_id TEXT NOT NULL,
		turn INTEGER NOT NULL CHECK (turn >= 1),
		owner TEXT NOT NULL DEFAULT '',
		firepower REAL NOT NULL DEFAULT 0,
		labour INTEGER NOT NULL DEFAULT 0,
		capital INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (world_id, turn)
	);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		color TEXT NOT NULL DEFAULT '',
		team TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		scan_range INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_turn ON worlds_history(turn);
	CREATE INDEX IF NOT EXISTS idx_history_owner ON worlds_history(owner);
	`
	_, err := db.Exec(schema)
	return err
}
