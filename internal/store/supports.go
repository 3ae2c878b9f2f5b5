package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lbryio/lbcwallet/internal/claimindex"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// GetSupport implements claimindex.Store.
func (d *DB) GetSupport(ctx context.Context, claimID string, height int32, txPosition int) (*claimindex.Support, bool, error) {
	var (
		s                  claimindex.Support
		payload            []byte
		isValid, abandoned int
	)
	row := d.conn.QueryRowContext(ctx, `
		SELECT claim_id, name, height, tx_position, amount, payload,
		       signing_channel_id, is_signature_valid, abandoned
		FROM supports WHERE claim_id = ? AND height = ? AND tx_position = ?`,
		claimID, height, txPosition)
	err := row.Scan(&s.ClaimID, &s.Name, &s.Height, &s.TxPosition, &s.Amount, &payload,
		&s.SigningChannelID, &isValid, &abandoned)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: GetSupport: %w", err)
	}
	if len(payload) > 0 {
		p, err := txmodel.UnmarshalSupportPayload(payload)
		if err != nil {
			return nil, false, fmt.Errorf("store: GetSupport unmarshal payload: %w", err)
		}
		s.Payload = p
	}
	s.IsSignatureValid = isValid != 0
	s.Abandoned = abandoned != 0
	return &s, true, nil
}

// PutSupport implements claimindex.Store.
func (d *DB) PutSupport(ctx context.Context, s *claimindex.Support) error {
	var payload []byte
	if s.Payload != nil {
		payload = s.Payload.Marshal()
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO supports (claim_id, name, height, tx_position, amount, payload,
			signing_channel_id, is_signature_valid, abandoned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (claim_id, height, tx_position) DO UPDATE SET
			name = excluded.name, amount = excluded.amount, payload = excluded.payload,
			signing_channel_id = excluded.signing_channel_id,
			is_signature_valid = excluded.is_signature_valid, abandoned = excluded.abandoned`,
		s.ClaimID, s.Name, s.Height, s.TxPosition, s.Amount, payload,
		s.SigningChannelID, boolToInt(s.IsSignatureValid), boolToInt(s.Abandoned))
	if err != nil {
		return fmt.Errorf("store: PutSupport: %w", err)
	}
	return nil
}
