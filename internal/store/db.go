// Package store persists the client state the send pipeline reads and
// writes in one SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const pingTimeout = 5 * time.Second

// DB wraps the SQLite connection of the app database: threads, channels,
// closed groups, linked devices, messages, profiles, sessions and outbox.
type DB struct {
	*sql.DB
}

// Open opens the database at path in WAL mode with foreign keys enforced.
// Writers wait up to five seconds for a competing writer.
func Open(path string) (*DB, error) {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")

	db, err := sql.Open("sqlite3", path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db %s: %w", path, err)
	}
	return &DB{db}, nil
}
