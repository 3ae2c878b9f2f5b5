package claimindex

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// rawVerifier wraps a bare compressed secp256k1 public key as a
// txmodel.Verifier. A channel's current signing key is stored as raw
// bytes (the channel claim's ChannelPublicKey field, spec.md §4.5), not
// as a bip32 extended key, so it doesn't carry chain-code/derivation
// context the way internal/bip32.PublicKey does.
type rawVerifier struct {
	pub *secp256k1.PublicKey
}

func verifierFromBytes(compressed []byte) (txmodel.Verifier, error) {
	pub, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return nil, err
	}
	return rawVerifier{pub: pub}, nil
}

func (v rawVerifier) Verify(hash []byte, sig *ecdsa.Signature) (bool, error) {
	return sig.Verify(hash, v.pub), nil
}
