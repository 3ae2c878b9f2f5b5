package store

import (
	"context"
	"fmt"
)

// takeoverRecord is one row of the append-only takeover history
// SPEC_FULL.md §4 adds to the data model, as returned by Takeovers for
// a name's full takeover timeline (modeled after the original_source
// test suite's get_takeover_count-shaped queries).
type takeoverRecord struct {
	Name    string
	ClaimID string
	Height  int32
}

// PutTakeover implements claimindex.Store. Takeovers are never updated
// or deleted, only appended (spec.md §4.8's controlling-claim history
// is permanent even though the claim itself may later expire).
func (d *DB) PutTakeover(ctx context.Context, name, claimID string, height int32) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO claim_takeovers (name, claim_id, height) VALUES (?, ?, ?)`,
		name, claimID, height)
	if err != nil {
		return fmt.Errorf("store: PutTakeover: %w", err)
	}
	return nil
}

// Takeovers returns name's full takeover history in chronological
// order: every (claim_id, height) at which it became the controlling
// claim.
func (d *DB) Takeovers(ctx context.Context, name string) ([]takeoverRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT name, claim_id, height FROM claim_takeovers WHERE name = ? ORDER BY height ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("store: Takeovers: %w", err)
	}
	defer rows.Close()

	var out []takeoverRecord
	for rows.Next() {
		var r takeoverRecord
		if err := rows.Scan(&r.Name, &r.ClaimID, &r.Height); err != nil {
			return nil, fmt.Errorf("store: Takeovers scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
