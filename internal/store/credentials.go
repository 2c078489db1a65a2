package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SaveCredentials replaces the stored session credential blob.
func (db *DB) SaveCredentials(blob json.RawMessage) error {
	_, err := db.Exec(`
		INSERT INTO credentials (id, blob, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		string(blob), time.Now().UnixMilli())
	return err
}

// LoadCredentials returns the stored credential blob, or nil if none was saved.
func (db *DB) LoadCredentials() (json.RawMessage, error) {
	var blob string
	err := db.QueryRow(`SELECT blob FROM credentials WHERE id = 1`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(blob), nil
}

// ClearCredentials forgets the stored blob, for example after a logout.
func (db *DB) ClearCredentials() error {
	_, err := db.Exec(`DELETE FROM credentials`)
	return err
}
