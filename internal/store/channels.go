package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/lbryio/lbcwallet/internal/claimindex"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// GetChannel implements claimindex.Store.
func (d *DB) GetChannel(ctx context.Context, channelID string) (*claimindex.Channel, bool, error) {
	var c claimindex.Channel
	row := d.conn.QueryRowContext(ctx, `
		SELECT claim_id, public_key, short_url, signed_claim_count, signed_support_count
		FROM channels WHERE claim_id = ?`, channelID)
	err := row.Scan(&c.ClaimID, &c.PublicKeyBytes, &c.ShortURL, &c.SignedClaimCount, &c.SignedSupportCount)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: GetChannel: %w", err)
	}
	return &c, true, nil
}

// PutChannel implements claimindex.Store. It also records the
// channel's current public key hash as used, so a second account's
// channelkeys.Manager derivation correctly skips past it.
func (d *DB) PutChannel(ctx context.Context, c *claimindex.Channel) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO channels (claim_id, public_key, short_url, signed_claim_count, signed_support_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (claim_id) DO UPDATE SET
			public_key = excluded.public_key, short_url = excluded.short_url,
			signed_claim_count = excluded.signed_claim_count,
			signed_support_count = excluded.signed_support_count`,
		c.ClaimID, c.PublicKeyBytes, c.ShortURL, c.SignedClaimCount, c.SignedSupportCount)
	if err != nil {
		return fmt.Errorf("store: PutChannel: %w", err)
	}
	if len(c.PublicKeyBytes) > 0 {
		if err := d.MarkChannelKeyUsed(ctx, btcutil.Hash160(c.PublicKeyBytes)); err != nil {
			return err
		}
	}
	return nil
}

// channelVerifier wraps a bare compressed secp256k1 public key fetched
// from storage as a txmodel.Verifier. Channel public keys are stored as
// raw bytes, not bip32 extended keys, so this is deliberately separate
// from internal/bip32.PublicKey.Verify.
type channelVerifier struct {
	pub *secp256k1.PublicKey
}

func (v channelVerifier) Verify(hash []byte, sig *ecdsa.Signature) (bool, error) {
	return sig.Verify(hash, v.pub), nil
}

// ChannelVerifier implements claimindex.KeyResolver.
func (d *DB) ChannelVerifier(ctx context.Context, channelID string, channelPublicKey []byte) (txmodel.Verifier, error) {
	pub, err := secp256k1.ParsePubKey(channelPublicKey)
	if err != nil {
		return nil, fmt.Errorf("store: ChannelVerifier %s: %w", channelID, err)
	}
	return channelVerifier{pub: pub}, nil
}
