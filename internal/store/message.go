package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InsertMessage stores a message and returns its id.
func (db *DB) InsertMessage(ctx context.Context, m *Message) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO messages (thread_id, author, timestamp, body, server_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ThreadID, m.Author, m.Timestamp, m.Body, m.ServerID, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetMessage returns a message by id, or nil.
func (db *DB) GetMessage(ctx context.Context, id int64) (*Message, error) {
	var m Message
	err := db.QueryRowContext(ctx, `
		SELECT id, thread_id, author, timestamp, body, server_id FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ThreadID, &m.Author, &m.Timestamp, &m.Body, &m.ServerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetServerID records the channel-assigned id of a message.
func (db *DB) SetServerID(ctx context.Context, messageID, serverID int64) error {
	_, err := db.ExecContext(ctx, `UPDATE messages SET server_id = ? WHERE id = ?`, serverID, messageID)
	return err
}

// QuoteServerID returns the server id of the message a quote refers to. A
// quote id is the quoted message's timestamp. Zero means unknown.
func (db *DB) QuoteServerID(ctx context.Context, quoteID uint64, author string) (int64, error) {
	var serverID int64
	err := db.QueryRowContext(ctx, `
		SELECT server_id FROM messages WHERE timestamp = ? AND author = ?
		ORDER BY id DESC LIMIT 1`, int64(quoteID), author).Scan(&serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return serverID, err
}
