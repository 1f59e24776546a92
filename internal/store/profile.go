package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SetProfile inserts or updates a profile.
func (db *DB) SetProfile(ctx context.Context, p *Profile) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (public_key, display_name, picture_url, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(public_key) DO UPDATE SET
			display_name = excluded.display_name,
			picture_url = excluded.picture_url,
			updated_at = excluded.updated_at`,
		p.PublicKey, p.DisplayName, p.PictureURL, time.Now().UnixMilli())
	return err
}

// Profile returns the profile of publicKey, or nil.
func (db *DB) Profile(ctx context.Context, publicKey string) (*Profile, error) {
	var (
		p             = Profile{PublicKey: publicKey}
		name, picture sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT display_name, picture_url FROM profiles WHERE public_key = ?`, publicKey).
		Scan(&name, &picture)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if name.Valid {
		p.DisplayName = &name.String
	}
	if picture.Valid {
		p.PictureURL = &picture.String
	}
	return &p, nil
}
