package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lbryio/lbcwallet/internal/addrmgr"
	"github.com/lbryio/lbcwallet/internal/bip32"
)

// AddKeys implements addrmgr.Store.
func (d *DB) AddKeys(ctx context.Context, accountID string, chain bip32.KeyPath, records []addrmgr.AddressRecord) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: AddKeys begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO addresses (account_id, chain, n, address, used_times)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_id, chain, n) DO UPDATE SET address = excluded.address`)
	if err != nil {
		return fmt.Errorf("store: AddKeys prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, accountID, int(chain), r.N, r.Address, r.UsedTimes); err != nil {
			return fmt.Errorf("store: AddKeys insert %s: %w", r.Address, err)
		}
	}
	return tx.Commit()
}

// AddressesDesc implements addrmgr.Store, returning the limit newest
// addresses on chain (highest n first).
func (d *DB) AddressesDesc(ctx context.Context, accountID string, chain bip32.KeyPath, limit int) ([]addrmgr.AddressRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT address, n, used_times FROM addresses
		WHERE account_id = ? AND chain = ?
		ORDER BY n DESC LIMIT ?`, accountID, int(chain), limit)
	if err != nil {
		return nil, fmt.Errorf("store: AddressesDesc: %w", err)
	}
	return scanAddressRecords(rows)
}

// AddressesAsc implements addrmgr.Store, returning every address on
// chain in derivation order.
func (d *DB) AddressesAsc(ctx context.Context, accountID string, chain bip32.KeyPath) ([]addrmgr.AddressRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT address, n, used_times FROM addresses
		WHERE account_id = ? AND chain = ?
		ORDER BY n ASC`, accountID, int(chain))
	if err != nil {
		return nil, fmt.Errorf("store: AddressesAsc: %w", err)
	}
	return scanAddressRecords(rows)
}

// UsableAddresses implements addrmgr.Store.
func (d *DB) UsableAddresses(ctx context.Context, accountID string, chain bip32.KeyPath, maxUses, limit int) ([]addrmgr.AddressRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT address, n, used_times FROM addresses
		WHERE account_id = ? AND chain = ? AND used_times < ?
		ORDER BY n ASC LIMIT ?`, accountID, int(chain), maxUses, limit)
	if err != nil {
		return nil, fmt.Errorf("store: UsableAddresses: %w", err)
	}
	return scanAddressRecords(rows)
}

// HasAnyAddress implements addrmgr.Store.
func (d *DB) HasAnyAddress(ctx context.Context, accountID string, chain bip32.KeyPath) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `
		SELECT 1 FROM addresses WHERE account_id = ? AND chain = ? LIMIT 1`, accountID, int(chain)).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: HasAnyAddress: %w", err)
	}
	return true, nil
}

func scanAddressRecords(rows *sql.Rows) ([]addrmgr.AddressRecord, error) {
	defer rows.Close()
	var out []addrmgr.AddressRecord
	for rows.Next() {
		var r addrmgr.AddressRecord
		if err := rows.Scan(&r.Address, &r.N, &r.UsedTimes); err != nil {
			return nil, fmt.Errorf("store: scan address record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
