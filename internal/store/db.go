// Package store is the daemon's SQLite archive of what the session has shown
// it: chats, contacts, messages, group events and the credential blob.
package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the archive database.
type DB struct {
	*sql.DB
	path string
}

// dsn enables WAL, waits on a busy database instead of failing, and takes the
// write lock when a transaction begins so that batched upserts never deadlock
// against a concurrent reader upgrading to a writer.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Open connects to the archive at path, creating the file if needed. Call
// Migrate before use.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &DB{DB: db, path: path}, nil
}

// OpenExisting is Open for readers: a missing archive is an error matching
// fs.ErrNotExist instead of a new empty file.
func OpenExisting(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return Open(path)
}

// Path returns the file the archive lives in.
func (db *DB) Path() string { return db.path }
