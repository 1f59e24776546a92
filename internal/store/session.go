package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/diogocavaiar/session-android/internal/message"
)

// SetSessionEstablished records whether a session with publicKey exists.
func (db *DB) SetSessionEstablished(ctx context.Context, publicKey string, established bool) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session_state (public_key, established, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(public_key) DO UPDATE SET
			established = excluded.established,
			updated_at = excluded.updated_at`,
		publicKey, established, time.Now().UnixMilli())
	return err
}

// UsesFallbackEncryption reports whether content to publicKey must use the
// fallback cipher: session requests always do, as does anything sent
// before a session was established.
func (db *DB) UsesFallbackEncryption(ctx context.Context, c message.Content, publicKey string) (bool, error) {
	if dm, ok := c.(*message.DataMessage); ok && dm.EndSession {
		return true, nil
	}
	var established bool
	err := db.QueryRowContext(ctx, `SELECT established FROM session_state WHERE public_key = ?`, publicKey).Scan(&established)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !established, nil
}

// MarkSessionResetInProgress records that a session reset was sent to r.
func (db *DB) MarkSessionResetInProgress(ctx context.Context, r message.Recipient) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session_state (public_key, reset_status, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(public_key) DO UPDATE SET
			reset_status = excluded.reset_status,
			updated_at = excluded.updated_at`,
		r.PublicKey, ResetInProgress, time.Now().UnixMilli())
	return err
}

// SessionResetStatus returns the reset status of publicKey.
func (db *DB) SessionResetStatus(ctx context.Context, publicKey string) (string, error) {
	var status string
	err := db.QueryRowContext(ctx, `SELECT reset_status FROM session_state WHERE public_key = ?`, publicKey).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ResetNone, nil
	}
	return status, err
}
