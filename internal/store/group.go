package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoGroupKey is returned for a closed group without an encryption key.
var ErrNoGroupKey = errors.New("closed group has no encryption key")

// AddClosedGroup records a closed group.
func (db *DB) AddClosedGroup(ctx context.Context, publicKey, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO closed_groups (public_key, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(public_key) DO UPDATE SET name = excluded.name`,
		publicKey, name, time.Now().UnixMilli())
	return err
}

// AddClosedGroupKey records a new shared encryption key for a group. The
// newest key is the current one.
func (db *DB) AddClosedGroupKey(ctx context.Context, groupKey, encryptionKey string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO closed_group_keys (group_key, encryption_key, created_at) VALUES (?, ?, ?)`,
		groupKey, encryptionKey, time.Now().UnixNano())
	return err
}

// IsClosedGroup reports whether identifier is a known closed group.
func (db *DB) IsClosedGroup(ctx context.Context, identifier string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM closed_groups WHERE public_key = ?`, identifier).Scan(&n)
	return n > 0, err
}

// CurrentEncryptionKey returns the newest encryption key of a closed group.
func (db *DB) CurrentEncryptionKey(ctx context.Context, identifier string) (string, error) {
	var key string
	err := db.QueryRowContext(ctx, `
		SELECT encryption_key FROM closed_group_keys
		WHERE group_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, identifier).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", identifier, ErrNoGroupKey)
	}
	return key, err
}
