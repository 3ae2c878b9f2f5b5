package bip32

import (
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/lbryio/lbcwallet/internal/ledger"
)

// ErrNotPEM is returned when a string presented for channel-key import
// does not begin with the PEM marker (spec.md §4.3 migration rule:
// "PEM strings beginning with -----BEGIN are kept; anything else is
// discarded").
var ErrNotPEM = errors.New("bip32: not a PEM-encoded key")

const pemBlockType = "EC PRIVATE KEY"

// secp256k1OID is the named-curve OID RFC 5915 expects in an EC
// PRIVATE KEY structure. crypto/x509 cannot marshal secp256k1 keys
// itself (Go's standard library only ships NIST curves), so channel
// keys are PEM-encoded by hand against the same RFC 5915 ASN.1 shape
// x509 would otherwise produce.
var secp256k1OID = asn1.ObjectIdentifier{1, 3, 132, 0, 10}

// ecPrivateKeyASN1 mirrors RFC 5915's ECPrivateKey structure.
type ecPrivateKeyASN1 struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

// LeafKey is a plain (non hierarchical-deterministic) secp256k1 key
// pair: the shape legacy wallets persisted channel certificates in
// before deterministic channel-key derivation existed (spec.md §4.3
// "Imported PEM-encoded legacy keys").
type LeafKey struct {
	params *ledger.Params
	priv   *secp256k1.PrivateKey
}

// NewLeafKey wraps a raw 32-byte scalar.
func NewLeafKey(params *ledger.Params, scalar []byte) *LeafKey {
	return &LeafKey{params: params, priv: secp256k1.PrivKeyFromBytes(scalar)}
}

// FromPEM parses a PEM-encoded EC private key as exported by ToPEM or
// by the legacy Python wallet.
func FromPEM(params *ledger.Params, pemStr string) (*LeafKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, ErrNotPEM
	}
	var asn ecPrivateKeyASN1
	if _, err := asn1.Unmarshal(block.Bytes, &asn); err != nil {
		return nil, fmt.Errorf("bip32: decode EC private key: %w", err)
	}
	return NewLeafKey(params, asn.PrivateKey), nil
}

// ToPEM serializes the key as a PEM-encoded EC private key, the format
// the channel-key dictionary persists imported/exported certificates in.
func (k *LeafKey) ToPEM() (string, error) {
	pub := k.priv.PubKey()
	der, err := asn1.Marshal(ecPrivateKeyASN1{
		Version:       1,
		PrivateKey:    k.priv.Serialize(),
		NamedCurveOID: secp256k1OID,
		PublicKey:     asn1.BitString{Bytes: pub.SerializeUncompressed(), BitLength: len(pub.SerializeUncompressed()) * 8},
	})
	if err != nil {
		return "", fmt.Errorf("bip32: marshal EC private key: %w", err)
	}
	block := &pem.Block{Type: pemBlockType, Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// PubKeyBytes returns the 33-byte compressed public key.
func (k *LeafKey) PubKeyBytes() ([]byte, error) {
	return k.priv.PubKey().SerializeCompressed(), nil
}

// Hash160 returns RIPEMD160(SHA256(pubkey)).
func (k *LeafKey) Hash160() ([]byte, error) {
	return hash160(k.priv.PubKey().SerializeCompressed()), nil
}

// Address returns the Base58Check P2PKH address for this key.
func (k *LeafKey) Address() (string, error) {
	addr, err := btcutil.NewAddressPubKeyHash(hash160(k.priv.PubKey().SerializeCompressed()), k.params.BTCParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// Sign computes an ECDSA signature over hash.
func (k *LeafKey) Sign(hash []byte) (*ecdsa.Signature, error) {
	return ecdsa.Sign(k.priv, hash), nil
}

// ToLeafKey wraps this key's raw 32-byte scalar in a LeafKey, used when
// converting a deterministically-derived PrivateKey for PEM export.
func (k *PrivateKey) ToLeafKey() (*LeafKey, error) {
	priv, err := k.ext.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return NewLeafKey(k.params, priv.Serialize()), nil
}
