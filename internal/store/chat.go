package store

import (
	"database/sql"
	"errors"
	"time"
)

// UpsertChat inserts or updates a chat record.
func (db *DB) UpsertChat(c *Chat) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (id, name, is_group, archived, pinned, unread_count, timestamp, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
			is_group = excluded.is_group,
			archived = excluded.archived,
			pinned = excluded.pinned,
			unread_count = excluded.unread_count,
			timestamp = MAX(chats.timestamp, excluded.timestamp),
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.IsGroup, c.Archived, c.Pinned, c.UnreadCount, c.Timestamp, now)
	return err
}

// ListChats returns chats sorted by last activity descending.
// Names fall back to the contact's names, then to the chat id.
func (db *DB) ListChats(limit, offset int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT c.id,
			COALESCE(NULLIF(c.name,''), NULLIF(ct.push_name,''), NULLIF(ct.name,''), c.id) AS display_name,
			c.is_group, c.archived, c.pinned, c.unread_count, c.timestamp
		FROM chats c
		LEFT JOIN contacts ct ON c.id = ct.id
		ORDER BY c.pinned DESC, c.timestamp DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.IsGroup, &c.Archived, &c.Pinned, &c.UnreadCount, &c.Timestamp); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by id, or nil if it is not archived.
func (db *DB) GetChat(id string) (*Chat, error) {
	var c Chat
	err := db.QueryRow(`
		SELECT c.id,
			COALESCE(NULLIF(c.name,''), NULLIF(ct.push_name,''), NULLIF(ct.name,''), c.id) AS display_name,
			c.is_group, c.archived, c.pinned, c.unread_count, c.timestamp
		FROM chats c
		LEFT JOIN contacts ct ON c.id = ct.id
		WHERE c.id = ?`, id).
		Scan(&c.ID, &c.Name, &c.IsGroup, &c.Archived, &c.Pinned, &c.UnreadCount, &c.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ChatCount returns the total number of chats.
func (db *DB) ChatCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&count)
	return count, err
}
