package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lbryio/lbcwallet/internal/blocksync"
)

// PutClaimOutput implements blocksync.OutpointIndex: it records that
// (txid, vout) is a claim or support output, so a later spend of it
// can be recognised as an abandonment (spec.md §4.5).
func (d *DB) PutClaimOutput(ctx context.Context, txid string, vout uint32, ref blocksync.ClaimRef) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO claim_outpoints (txid, vout, claim_id, name, is_support)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (txid, vout) DO UPDATE SET
			claim_id = excluded.claim_id, name = excluded.name, is_support = excluded.is_support`,
		txid, vout, ref.ClaimID, ref.Name, boolToInt(ref.IsSupport))
	if err != nil {
		return fmt.Errorf("store: PutClaimOutput: %w", err)
	}
	return nil
}

// GetClaimOutput implements blocksync.OutpointIndex.
func (d *DB) GetClaimOutput(ctx context.Context, txid string, vout uint32) (blocksync.ClaimRef, bool, error) {
	var ref blocksync.ClaimRef
	var isSupport int
	row := d.conn.QueryRowContext(ctx, `
		SELECT claim_id, name, is_support FROM claim_outpoints WHERE txid = ? AND vout = ?`, txid, vout)
	err := row.Scan(&ref.ClaimID, &ref.Name, &isSupport)
	if err == sql.ErrNoRows {
		return blocksync.ClaimRef{}, false, nil
	}
	if err != nil {
		return blocksync.ClaimRef{}, false, fmt.Errorf("store: GetClaimOutput: %w", err)
	}
	ref.IsSupport = isSupport != 0
	return ref, true, nil
}
