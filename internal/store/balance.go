package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Balance implements walletacct.BalanceStore: the sum of unspent
// outputs belonging to accountID with at least confirmations
// confirmations as of the current sync tip, optionally excluding claim
// and support outputs (spec.md §5.4 "confirmed balance").
func (d *DB) Balance(ctx context.Context, accountID string, confirmations int, includeClaims bool) (int64, error) {
	tip, err := d.GetSyncHeight(ctx)
	if err != nil {
		return 0, err
	}
	maxHeight := tip - int32(confirmations) + 1
	if confirmations <= 0 {
		maxHeight = tip + 1 // unconfirmed outputs count too
	}

	query := `
		SELECT COALESCE(SUM(amount), 0) FROM utxos
		WHERE account_id = ? AND spend_height IS NULL AND height <= ?`
	args := []any{accountID, maxHeight}
	if !includeClaims {
		query += ` AND is_claim = 0`
	}

	var total int64
	if err := d.conn.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("store: Balance: %w", err)
	}
	return total, nil
}

// UTXO is one unspent-at-some-point transaction output tracked for
// balance computation.
type UTXO struct {
	AccountID   string
	TxID        string
	Vout        uint32
	Amount      int64
	Height      int32
	SpendHeight sql.NullInt32
	IsClaim     bool
}

// PutUTXO records a newly observed output or updates its spend state.
func (d *DB) PutUTXO(ctx context.Context, u UTXO) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO utxos (account_id, txid, vout, amount, height, spend_height, is_claim)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (txid, vout) DO UPDATE SET spend_height = excluded.spend_height`,
		u.AccountID, u.TxID, u.Vout, u.Amount, u.Height, u.SpendHeight, boolToInt(u.IsClaim))
	if err != nil {
		return fmt.Errorf("store: PutUTXO: %w", err)
	}
	return nil
}

// MarkSpent records that the output txid:vout was spent in the block
// at spendHeight.
func (d *DB) MarkSpent(ctx context.Context, txid string, vout uint32, spendHeight int32) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE utxos SET spend_height = ? WHERE txid = ? AND vout = ?`, spendHeight, txid, vout)
	if err != nil {
		return fmt.Errorf("store: MarkSpent: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
