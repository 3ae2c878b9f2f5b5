package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lbryio/lbcwallet/internal/claimindex"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// GetClaim implements claimindex.Store.
func (d *DB) GetClaim(ctx context.Context, claimID string) (*claimindex.Claim, bool, error) {
	var (
		c                                  claimindex.Claim
		payload, firstInputTxID, claimHash []byte
		isValid, abandoned, isControlling  int
	)
	row := d.conn.QueryRowContext(ctx, `
		SELECT claim_id, name, height, tx_position, amount, payload, first_input_txid,
		       claim_hash, is_signature_valid, short_url, canonical_url, abandoned,
		       activation_height, expiration_height, is_controlling, signing_channel_id,
		       staked_amount, staked_support_amount
		FROM claims WHERE claim_id = ?`, claimID)
	err := row.Scan(&c.ClaimID, &c.Name, &c.Height, &c.TxPosition, &c.Amount, &payload,
		&firstInputTxID, &claimHash, &isValid, &c.ShortURL, &c.CanonicalURL, &abandoned,
		&c.ActivationHeight, &c.ExpirationHeight, &isControlling, &c.SigningChannelID,
		&c.StakedAmount, &c.StakedSupportAmount)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: GetClaim: %w", err)
	}
	p, err := txmodel.UnmarshalClaimPayload(payload)
	if err != nil {
		return nil, false, fmt.Errorf("store: GetClaim unmarshal payload: %w", err)
	}
	c.Payload = p
	copy(c.FirstInputTxID[:], firstInputTxID)
	c.ClaimHash = claimHash
	c.IsSignatureValid = isValid != 0
	c.Abandoned = abandoned != 0
	c.IsControlling = isControlling != 0
	return &c, true, nil
}

// PutClaim implements claimindex.Store.
func (d *DB) PutClaim(ctx context.Context, c *claimindex.Claim) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO claims (claim_id, name, height, tx_position, amount, payload,
			first_input_txid, claim_hash, is_signature_valid, short_url, canonical_url, abandoned,
			activation_height, expiration_height, is_controlling, signing_channel_id,
			staked_amount, staked_support_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (claim_id) DO UPDATE SET
			name = excluded.name, height = excluded.height, tx_position = excluded.tx_position,
			amount = excluded.amount, payload = excluded.payload,
			first_input_txid = excluded.first_input_txid, claim_hash = excluded.claim_hash,
			is_signature_valid = excluded.is_signature_valid, short_url = excluded.short_url,
			canonical_url = excluded.canonical_url, abandoned = excluded.abandoned,
			activation_height = excluded.activation_height, expiration_height = excluded.expiration_height,
			is_controlling = excluded.is_controlling, signing_channel_id = excluded.signing_channel_id,
			staked_amount = excluded.staked_amount, staked_support_amount = excluded.staked_support_amount`,
		c.ClaimID, c.Name, c.Height, c.TxPosition, c.Amount, c.Payload.Marshal(),
		c.FirstInputTxID[:], c.ClaimHash, boolToInt(c.IsSignatureValid), c.ShortURL, c.CanonicalURL,
		boolToInt(c.Abandoned), c.ActivationHeight, c.ExpirationHeight, boolToInt(c.IsControlling),
		c.SigningChannelID, c.StakedAmount, c.StakedSupportAmount)
	if err != nil {
		return fmt.Errorf("store: PutClaim: %w", err)
	}
	return nil
}

// ClaimsOnName implements claimindex.Store.
func (d *DB) ClaimsOnName(ctx context.Context, name string) ([]*claimindex.Claim, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT claim_id FROM claims WHERE name = ? AND abandoned = 0`, name)
	if err != nil {
		return nil, fmt.Errorf("store: ClaimsOnName: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: ClaimsOnName scan: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*claimindex.Claim, 0, len(ids))
	for _, id := range ids {
		c, ok, err := d.GetClaim(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}
