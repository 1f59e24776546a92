package store

import (
	"context"
	"time"
)

// AddLinkedDevice links device to the account of master.
func (db *DB) AddLinkedDevice(ctx context.Context, master, device string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO linked_devices (master_key, device_key, created_at) VALUES (?, ?, ?)
		ON CONFLICT(master_key, device_key) DO NOTHING`,
		master, device, time.Now().UnixMilli())
	return err
}

// RemoveLinkedDevice unlinks device from master.
func (db *DB) RemoveLinkedDevice(ctx context.Context, master, device string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM linked_devices WHERE master_key = ? AND device_key = ?`, master, device)
	return err
}

// LinkedDevices returns the devices linked to master. The slice is a
// snapshot; later changes to the table do not affect it.
func (db *DB) LinkedDevices(ctx context.Context, master string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT device_key FROM linked_devices WHERE master_key = ? ORDER BY created_at, device_key`, master)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var devices []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
