package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const messageColumns = `id, chat_id, sender_id, type, body, from_me, has_media, ack, revoked, timestamp`

// UpsertMessage inserts or updates a message (idempotent on its id). The chat
// row is created or bumped in the same transaction. Ack never goes backwards.
func (db *DB) UpsertMessage(m *Message) error {
	return db.UpsertMessages([]*Message{m})
}

// UpsertMessages is UpsertMessage for a batch, in a single transaction.
func (db *DB) UpsertMessages(msgs []*Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, m := range msgs {
		if err := upsertMessage(tx, m, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertMessage(tx *sql.Tx, m *Message, now int64) error {
	if _, err := tx.Exec(`
		INSERT INTO messages (`+messageColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			body = CASE WHEN messages.revoked = 1 THEN '' ELSE excluded.body END,
			has_media = excluded.has_media,
			ack = MAX(messages.ack, excluded.ack),
			revoked = MAX(messages.revoked, excluded.revoked)`,
		m.ID, m.ChatID, m.SenderID, m.Type, m.Body, m.FromMe, m.HasMedia, m.Ack, m.Revoked, m.Timestamp, now); err != nil {
		return fmt.Errorf("upsert message %s: %w", m.ID, err)
	}
	if _, err := tx.Exec(`
		INSERT INTO chats (id, timestamp, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET timestamp = MAX(chats.timestamp, excluded.timestamp)`,
		m.ChatID, m.Timestamp, now); err != nil {
		return fmt.Errorf("touch chat %s: %w", m.ChatID, err)
	}
	return nil
}

// SetAck raises a message's delivery state. It reports false if the message is
// not archived.
func (db *DB) SetAck(id string, ack int) (bool, error) {
	res, err := db.Exec(`UPDATE messages SET ack = MAX(ack, ?) WHERE id = ?`, ack, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkRevoked flags a message as deleted for everyone and clears its body.
func (db *DB) MarkRevoked(id string) (bool, error) {
	res, err := db.Exec(`UPDATE messages SET revoked = 1, body = '' WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetMessage returns a message by id, or nil if it is not archived.
func (db *DB) GetMessage(id string) (*Message, error) {
	row := db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns messages for a chat using keyset pagination by
// timestamp, newest first.
func (db *DB) ListMessages(chatID string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().Unix() + 1
	}
	rows, err := db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE chat_id = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`, chatID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (Message, error) {
	var m Message
	err := s.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Type, &m.Body, &m.FromMe, &m.HasMedia, &m.Ack, &m.Revoked, &m.Timestamp)
	return m, err
}

func collectMessages(rows *sql.Rows) ([]Message, error) {
	defer func() { _ = rows.Close() }()
	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
