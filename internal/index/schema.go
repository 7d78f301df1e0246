// Package index persists review state and a searchable copy of every
// attribution in SQLite, with optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS inputs (
	path       TEXT PRIMARY KEY,
	project_id TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	loaded_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS attributions (
	kind         TEXT NOT NULL,
	id           TEXT NOT NULL,
	package_name TEXT NOT NULL DEFAULT '',
	license_name TEXT NOT NULL DEFAULT '',
	copyright    TEXT NOT NULL DEFAULT '',
	purl         TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (kind, id)
);

CREATE TABLE IF NOT EXISTS attribution_resources (
	kind           TEXT NOT NULL,
	attribution_id TEXT NOT NULL,
	path           TEXT NOT NULL,
	UNIQUE(kind, attribution_id, path)
);

CREATE TABLE IF NOT EXISTS resolved (
	attribution_id TEXT PRIMARY KEY
);

CREATE INDEX IF NOT EXISTS idx_attribution_resources_id ON attribution_resources(kind, attribution_id);
CREATE INDEX IF NOT EXISTS idx_attributions_license ON attributions(license_name);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
