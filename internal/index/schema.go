// Package index provides a SQLite-backed index of project sections with
// optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	name       TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	sections   INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sections (
	project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
	ord     INTEGER NOT NULL,
	date    TEXT NOT NULL DEFAULT '',
	header  TEXT NOT NULL DEFAULT '',
	tags    TEXT NOT NULL DEFAULT '[]',
	content TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project, ord)
);

CREATE TABLE IF NOT EXISTS block_tags (
	project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
	tag     TEXT NOT NULL,
	UNIQUE(project, tag)
);

CREATE INDEX IF NOT EXISTS idx_sections_date ON sections(date);
CREATE INDEX IF NOT EXISTS idx_block_tags_tag ON block_tags(tag);
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
