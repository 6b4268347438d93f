// Package index provides a SQLite-backed catalog of observed files with a
// suggestion cache and optional FTS5 full-text search over previews.
package index

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path             TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	size             INTEGER NOT NULL DEFAULT 0,
	modified_at      DATETIME,
	fingerprint      TEXT NOT NULL DEFAULT '',
	preview          TEXT NOT NULL DEFAULT '',
	suggested_name   TEXT,
	suggested_folder TEXT,
	suggest_delete   INTEGER NOT NULL DEFAULT 0,
	keep_folder      INTEGER NOT NULL DEFAULT 0,
	suggested_at     DATETIME,
	seen_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_files_name ON files(name);
CREATE INDEX IF NOT EXISTS idx_files_seen ON files(seen_at);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Memory is the DSN of a process-local catalog that is gone on exit.
const Memory = ":memory:"

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	conn, err := sql.Open("sqlite3", dsn+sep+"_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if dsn == Memory {
		// Every new connection would get its own empty database.
		conn.SetMaxOpenConns(1)
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
