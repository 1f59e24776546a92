package store

import (
	"database/sql"
	"errors"
	"time"
)

// QueueOutbox adds a text message to the send outbox.
func (db *DB) QueueOutbox(clientMsgID, recipient, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, recipient, body, status, created_at, updated_at)
		VALUES (?, ?, ?, 'queued', ?, ?)`,
		clientMsgID, recipient, body, now, now)
	return err
}

// MarkOutboxSending updates an outbox entry to 'sending' and records the
// local message it was stored as.
func (db *DB) MarkOutboxSending(clientMsgID string, messageID int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sending', message_id = ?, updated_at = ? WHERE client_msg_id = ?`, messageID, now, clientMsgID)
	return err
}

// MarkOutboxSent updates an outbox entry to 'sent'.
func (db *DB) MarkOutboxSent(clientMsgID, resultKind string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sent', result_kind = ?, updated_at = ? WHERE client_msg_id = ?`, resultKind, now, clientMsgID)
	return err
}

// MarkOutboxFailed updates an outbox entry to 'failed' with the result kind
// and an error message.
func (db *DB) MarkOutboxFailed(clientMsgID, resultKind, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'failed', result_kind = ?, error_message = ?, updated_at = ? WHERE client_msg_id = ?`, resultKind, errMsg, now, clientMsgID)
	return err
}

// PendingOutbox returns outbox entries that are still queued.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, recipient, body, status, result_kind, error_message, message_id
		FROM outbox WHERE status = 'queued' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.Recipient, &e.Body, &e.Status, &e.ResultKind, &e.ErrorMessage, &e.MessageID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetOutboxEntry returns an outbox entry by client message id, or nil.
func (db *DB) GetOutboxEntry(clientMsgID string) (*OutboxEntry, error) {
	var e OutboxEntry
	err := db.QueryRow(`
		SELECT id, client_msg_id, recipient, body, status, result_kind, error_message, message_id
		FROM outbox WHERE client_msg_id = ?`, clientMsgID).
		Scan(&e.ID, &e.ClientMsgID, &e.Recipient, &e.Body, &e.Status, &e.ResultKind, &e.ErrorMessage, &e.MessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
