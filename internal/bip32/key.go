// Package bip32 implements the extended-key primitives described in
// spec.md §4.1: BIP32-style hierarchical-deterministic derivation over
// secp256k1, Base58Check extended-key serialization, and AES-256-CBC
// at-rest encryption of the two sensitive wallet fields (seed and
// extended private key).
package bip32

import (
	stdecdsa "crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/lbryio/lbcwallet/internal/ledger"
	"golang.org/x/crypto/ripemd160"
)

var (
	// ErrNotPrivate is returned when an operation that requires a
	// private extended key is attempted on a public-only one.
	ErrNotPrivate = errors.New("bip32: key is public-only")
	// ErrHardenedFromPublic is returned when a hardened child is
	// requested from a public-only extended key; BIP32 makes this
	// mathematically impossible, matching spec.md §4.1's "public-key
	// child of a non-hardened index" note.
	ErrHardenedFromPublic = errors.New("bip32: cannot derive hardened child from public key")
)

// HardenedOffset is the child index at and above which derivation is
// hardened (requires the private scalar).
const HardenedOffset = hdkeychain.HardenedKeyStart

// PrivateKey is an extended private key: 33-byte compressed public
// material, the private scalar, 32-byte chain code, depth, parent
// fingerprint and child index, per spec.md §3.
type PrivateKey struct {
	params *ledger.Params
	ext    *hdkeychain.ExtendedKey
}

// PublicKey is the public-only counterpart of PrivateKey: everything a
// PrivateKey carries except the scalar, so watch-only chains can derive
// addresses without ever handling key material (spec.md §4.1).
type PublicKey struct {
	params *ledger.Params
	ext    *hdkeychain.ExtendedKey
}

// FromSeed constructs the master extended private key by HMAC-SHA512
// over the seed with hdkeychain's fixed salt (spec.md §4.1 "from_seed").
func FromSeed(params *ledger.Params, seed []byte) (*PrivateKey, error) {
	master, err := hdkeychain.NewMaster(seed, params.BTCParams)
	if err != nil {
		return nil, fmt.Errorf("bip32: master key from seed: %w", err)
	}
	return &PrivateKey{params: params, ext: master}, nil
}

// FromExtendedKeyString round-trips the Base58Check "extended key"
// form (spec.md §4.1).
func FromExtendedKeyString(params *ledger.Params, s string) (*PrivateKey, error) {
	ext, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("bip32: parse extended key: %w", err)
	}
	if !ext.IsPrivate() {
		return nil, ErrNotPrivate
	}
	return &PrivateKey{params: params, ext: ext}, nil
}

// PublicKeyFromExtendedKeyString parses a public-only extended key
// string, as stored in a wallet's "public_key" field.
func PublicKeyFromExtendedKeyString(params *ledger.Params, s string) (*PublicKey, error) {
	ext, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("bip32: parse extended key: %w", err)
	}
	return &PublicKey{params: params, ext: ext}, nil
}

// ExtendedKeyString serializes the key in its network-versioned
// Base58Check form.
func (k *PrivateKey) ExtendedKeyString() string { return k.ext.String() }

// ExtendedKeyString serializes the public key in its network-versioned
// Base58Check form.
func (k *PublicKey) ExtendedKeyString() string { return k.ext.String() }

// Child derives the child at index i. Indices at or above HardenedOffset
// are hardened derivations, which prepend 0x00 to the parent private key
// before hashing (BIP32 semantics, delegated to hdkeychain).
func (k *PrivateKey) Child(i uint32) (*PrivateKey, error) {
	child, err := k.ext.Child(i)
	if err != nil {
		return nil, fmt.Errorf("bip32: derive child %d: %w", i, err)
	}
	return &PrivateKey{params: k.params, ext: child}, nil
}

// ChildPath derives successive children along a path, e.g.
// [CHANNEL, 3] to reach account_private_key/CHANNEL/3.
func (k *PrivateKey) ChildPath(path ...uint32) (*PrivateKey, error) {
	cur := k
	for _, i := range path {
		next, err := cur.Child(i)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Child derives the non-hardened child public key at index i. The
// public-key child of a non-hardened index equals the point derived
// from the private-key child, which is exactly what lets a watch-only
// chain (public key only) derive addresses (spec.md §4.1).
func (k *PublicKey) Child(i uint32) (*PublicKey, error) {
	if i >= HardenedOffset {
		return nil, ErrHardenedFromPublic
	}
	child, err := k.ext.Child(i)
	if err != nil {
		return nil, fmt.Errorf("bip32: derive public child %d: %w", i, err)
	}
	return &PublicKey{params: k.params, ext: child}, nil
}

// Neuter strips the private scalar, producing the public-only
// counterpart used for watch-only address generation.
func (k *PrivateKey) Neuter() (*PublicKey, error) {
	pub, err := k.ext.Neuter()
	if err != nil {
		return nil, fmt.Errorf("bip32: neuter: %w", err)
	}
	return &PublicKey{params: k.params, ext: pub}, nil
}

// PubKeyBytes returns the 33-byte compressed public key.
func (k *PrivateKey) PubKeyBytes() ([]byte, error) {
	pub, err := k.ext.ECPubKey()
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

// PubKeyBytes returns the 33-byte compressed public key.
func (k *PublicKey) PubKeyBytes() ([]byte, error) {
	pub, err := k.ext.ECPubKey()
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

// Address returns the Base58Check P2PKH address for this key's public
// key hash.
func (k *PrivateKey) Address() (string, error) {
	addr, err := k.ext.Address(k.params.BTCParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// Address returns the Base58Check P2PKH address for this public key's
// hash.
func (k *PublicKey) Address() (string, error) {
	addr, err := k.ext.Address(k.params.BTCParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// Hash160 returns the RIPEMD160(SHA256(pubkey)) used as the address
// payload and as the channel-key cache key.
func (k *PrivateKey) Hash160() ([]byte, error) {
	pub, err := k.PubKeyBytes()
	if err != nil {
		return nil, err
	}
	return hash160(pub), nil
}

// Hash160 returns the RIPEMD160(SHA256(pubkey)) for a public key.
func (k *PublicKey) Hash160() ([]byte, error) {
	pub, err := k.PubKeyBytes()
	if err != nil {
		return nil, err
	}
	return hash160(pub), nil
}

// hash160 computes RIPEMD160(SHA256(b)), the address/script-hash
// payload used throughout the wallet.
func hash160(b []byte) []byte {
	sha := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(sha[:])
	return r.Sum(nil)
}

// Sign computes an ECDSA signature over hash with this key's private
// scalar. Used by channel signing (spec.md §4.5).
func (k *PrivateKey) Sign(hash []byte) (*ecdsa.Signature, error) {
	priv, err := k.ext.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return ecdsa.Sign(priv, hash), nil
}

// Verify checks an ECDSA signature against this public key.
func (k *PublicKey) Verify(hash []byte, sig *ecdsa.Signature) (bool, error) {
	pub, err := k.ext.ECPubKey()
	if err != nil {
		return false, err
	}
	return sig.Verify(hash, pub), nil
}

// ToECDSA exposes the standard-library representation for callers that
// need it (e.g. legacy PEM import/export of channel keys).
func (k *PrivateKey) ToECDSA() (*stdecdsa.PrivateKey, error) {
	priv, err := k.ext.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return priv.ToECDSA(), nil
}
