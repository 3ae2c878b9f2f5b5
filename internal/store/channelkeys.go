package store

import (
	"context"
	"database/sql"
	"fmt"
)

// IsChannelKeyUsed implements channelkeys.UsedKeyChecker: a key is used
// once some channel claim has published it on chain.
func (d *DB) IsChannelKeyUsed(ctx context.Context, pubKeyHash []byte) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `
		SELECT 1 FROM channel_key_hashes WHERE pubkey_hash = ? LIMIT 1`, pubKeyHash).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: IsChannelKeyUsed: %w", err)
	}
	return true, nil
}

// MarkChannelKeyUsed records that pubKeyHash has appeared in a
// channel claim, so future derivation skips past it.
func (d *DB) MarkChannelKeyUsed(ctx context.Context, pubKeyHash []byte) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO channel_key_hashes (pubkey_hash) VALUES (?)
		ON CONFLICT (pubkey_hash) DO NOTHING`, pubKeyHash)
	if err != nil {
		return fmt.Errorf("store: MarkChannelKeyUsed: %w", err)
	}
	return nil
}
