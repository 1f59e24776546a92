package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/diogocavaiar/session-android/internal/message"
)

// ThreadID returns the thread of identifier, creating it on first use.
func (db *DB) ThreadID(ctx context.Context, identifier string) (int64, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO threads (identifier, created_at) VALUES (?, ?)
		ON CONFLICT(identifier) DO NOTHING`,
		identifier, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM threads WHERE identifier = ?`, identifier).Scan(&id)
	return id, err
}

// PublicChat returns the public chat bound to a thread, or nil.
func (db *DB) PublicChat(ctx context.Context, threadID int64) (*message.PublicChat, error) {
	var c message.PublicChat
	err := db.QueryRowContext(ctx, `
		SELECT server, channel, display_name FROM public_chats WHERE thread_id = ?`, threadID).
		Scan(&c.Server, &c.Channel, &c.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetPublicChat binds the thread of identifier to a public chat.
func (db *DB) SetPublicChat(ctx context.Context, identifier string, c message.PublicChat) error {
	threadID, err := db.ThreadID(ctx, identifier)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO public_chats (thread_id, server, channel, display_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			server = excluded.server,
			channel = excluded.channel,
			display_name = excluded.display_name`,
		threadID, c.Server, c.Channel, c.DisplayName)
	return err
}

// PublicChats returns every joined public chat, ordered by server and channel.
func (db *DB) PublicChats(ctx context.Context) ([]message.PublicChat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT server, channel, display_name FROM public_chats ORDER BY server, channel`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []message.PublicChat
	for rows.Next() {
		var c message.PublicChat
		if err := rows.Scan(&c.Server, &c.Channel, &c.DisplayName); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
