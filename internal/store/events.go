package store

import (
	"strings"
)

// InsertGroupEvent archives a group notification. Replays are ignored.
func (db *DB) InsertGroupEvent(e *GroupEvent) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO group_events (id, chat_id, type, author_id, recipients, body, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ChatID, e.Type, e.AuthorID, strings.Join(e.Recipients, ","), e.Body, e.Timestamp)
	return err
}

// ListGroupEvents returns a group's archived notifications, oldest first.
func (db *DB) ListGroupEvents(chatID string) ([]GroupEvent, error) {
	rows, err := db.Query(`
		SELECT id, chat_id, type, author_id, recipients, body, timestamp
		FROM group_events
		WHERE chat_id = ?
		ORDER BY timestamp, id`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []GroupEvent
	for rows.Next() {
		var e GroupEvent
		var recipients string
		if err := rows.Scan(&e.ID, &e.ChatID, &e.Type, &e.AuthorID, &recipients, &e.Body, &e.Timestamp); err != nil {
			return nil, err
		}
		if recipients != "" {
			e.Recipients = strings.Split(recipients, ",")
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
