package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GetSyncHeight implements blocksync.TipStore. A fresh database has
// never synced anything, so it reports height -1.
func (d *DB) GetSyncHeight(ctx context.Context) (int32, error) {
	var height int32
	err := d.conn.QueryRowContext(ctx, `SELECT height FROM sync_tip WHERE id = 1`).Scan(&height)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: GetSyncHeight: %w", err)
	}
	return height, nil
}

// SetSyncHeight implements blocksync.TipStore.
func (d *DB) SetSyncHeight(ctx context.Context, height int32) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO sync_tip (id, height) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET height = excluded.height`, height)
	if err != nil {
		return fmt.Errorf("store: SetSyncHeight: %w", err)
	}
	return nil
}
