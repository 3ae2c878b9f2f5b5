// Package channelkeys implements the channel-key manager (spec.md
// §4.3): deterministic derivation of per-channel signing keys under
// account_private_key/CHANNEL/n, plus the legacy PEM-imported key
// dictionary. Both responsibilities live in one component, per spec.md
// §9, with their two triggers (adaptive sync probing and deterministic
// next-key generation) exposed as separate entry points.
package channelkeys

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lbryio/lbcwallet/internal/bip32"
	"github.com/lbryio/lbcwallet/internal/ledger"
)

// keyCacheSize bounds the deterministic channel-key cache: enough to
// cover any plausible per-session burst of probing/generation without
// growing unbounded for a long-lived wallet process.
const keyCacheSize = 4096

// errNoChannelRoot is returned when deterministic generation is
// requested on a watch-only account that has no channel root key.
var errNoChannelRoot = errors.New("channelkeys: account has no channel key root (watch-only)")

// SigningKey is the common surface of bip32.PrivateKey (deterministic)
// and bip32.LeafKey (legacy PEM-imported), the two concrete key shapes
// a channel certificate can be backed by (spec.md §4.3).
type SigningKey interface {
	PubKeyBytes() ([]byte, error)
	Hash160() ([]byte, error)
	Address() (string, error)
	Sign(hash []byte) (*ecdsa.Signature, error)
}

// UsedKeyChecker tells the manager whether a candidate channel public
// key has already appeared on chain, so generation can skip indices the
// wallet has already used (spec.md §4.3 "asks the index whether the
// public key has already appeared on chain").
type UsedKeyChecker interface {
	IsChannelKeyUsed(ctx context.Context, pubKeyHash []byte) (bool, error)
}

// Manager combines deterministic channel-key derivation with a legacy
// PEM import dictionary.
type Manager struct {
	params      *ledger.Params
	channelRoot *bip32.PrivateKey // account_private_key/CHANNEL, nil for watch-only
	checker     UsedKeyChecker

	mu        sync.Mutex
	lastKnown uint32
	cache     *lru.Cache[string, *bip32.PrivateKey] // hash160(hex) -> deterministic key
	pemKeys   map[string]string                     // address -> PEM string (imported legacy certs)
}

// New constructs a channel-key manager. accountPrivateKey may be nil for
// a watch-only account, in which case deterministic derivation is
// disabled and only imported PEM keys are usable.
func New(params *ledger.Params, accountPrivateKey *bip32.PrivateKey, checker UsedKeyChecker, channelKeys map[string]string) (*Manager, error) {
	cache, err := lru.New[string, *bip32.PrivateKey](keyCacheSize)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		params:  params,
		checker: checker,
		cache:   cache,
		pemKeys: make(map[string]string, len(channelKeys)),
	}
	for addr, pem := range channelKeys {
		m.pemKeys[addr] = pem
	}
	if accountPrivateKey != nil {
		root, err := accountPrivateKey.Child(uint32(bip32.CHANNEL))
		if err != nil {
			return nil, err
		}
		m.channelRoot = root
	}
	return m, nil
}

// MaybeGenerateDeterministicKeyForChannel is the adaptive-probing
// trigger: when sync observes a channel output whose public key matches
// the next deterministic candidate, the manager advances last_known and
// caches that key, so the wallet recognises channels created on other
// devices sharing the same seed (spec.md §4.3).
func (m *Manager) MaybeGenerateDeterministicKeyForChannel(channelPubKeyBytes []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channelRoot == nil {
		return nil
	}
	candidate, err := m.channelRoot.Child(m.lastKnown)
	if err != nil {
		return err
	}
	candidatePub, err := candidate.PubKeyBytes()
	if err != nil {
		return err
	}
	if !bytesEqual(candidatePub, channelPubKeyBytes) {
		return nil
	}
	hash, err := candidate.Hash160()
	if err != nil {
		return err
	}
	m.cache.Add(hex.EncodeToString(hash), candidate)
	m.lastKnown++
	return nil
}

// GenerateNextKey derives successive children starting at last_known,
// asking the index whether each has already appeared on chain, and
// returns the first unused one. Every derived key is cached by its
// address hash along the way, so a later GetChannelPrivateKey call can
// retrieve it even if it turns out to already be used elsewhere (spec.md
// §4.3 "caches every derived key by its address for later private-key
// retrieval").
func (m *Manager) GenerateNextKey(ctx context.Context) (*bip32.PrivateKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channelRoot == nil {
		return nil, errNoChannelRoot
	}
	for {
		candidate, err := m.channelRoot.Child(m.lastKnown)
		if err != nil {
			return nil, err
		}
		hash, err := candidate.Hash160()
		if err != nil {
			return nil, err
		}
		m.cache.Add(hex.EncodeToString(hash), candidate)
		used, err := m.checker.IsChannelKeyUsed(ctx, hash)
		if err != nil {
			return nil, err
		}
		if !used {
			return candidate, nil
		}
		m.lastKnown++
	}
}

// GetChannelPrivateKey retrieves the signing key for a channel's public
// key hash, trying the PEM dictionary first and the deterministic cache
// second (spec.md §4.3). It returns (nil, nil) if the key is not known.
func (m *Manager) GetChannelPrivateKey(address string, pubKeyHash []byte) (SigningKey, error) {
	m.mu.Lock()
	pemStr, ok := m.pemKeys[address]
	m.mu.Unlock()
	if ok {
		return bip32.FromPEM(m.params, pemStr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if key, ok := m.cache.Get(hex.EncodeToString(pubKeyHash)); ok {
		return key, nil
	}
	return nil, nil
}

// AddChannelPrivateKey imports a private key into the legacy PEM
// dictionary, keyed by the address derived from the key (spec.md §4.3:
// "the canonical key used in the dictionary is the address derived from
// the PEM, not the legacy claim_id that older wallets used").
func (m *Manager) AddChannelPrivateKey(key SigningKey) error {
	addr, err := key.Address()
	if err != nil {
		return err
	}
	pemStr, err := toPEM(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pemKeys[addr] = pemStr
	return nil
}

// MigrateCertificates drops any dictionary entries whose value is not
// valid PEM and re-keys surviving entries by the address derived from
// the PEM rather than whatever key they were previously stored under
// (spec.md §4.3 migration rule). It reports whether the dictionary
// changed, so the caller (Account) knows whether to persist the wallet
// file.
func (m *Manager) MigrateCertificates() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	migrated := make(map[string]string, len(m.pemKeys))
	changed := false
	for oldKey, pemStr := range m.pemKeys {
		leaf, err := bip32.FromPEM(m.params, pemStr)
		if err != nil {
			changed = true
			continue
		}
		addr, err := leaf.Address()
		if err != nil {
			changed = true
			continue
		}
		migrated[addr] = pemStr
		if addr != oldKey {
			changed = true
		}
	}
	m.pemKeys = migrated
	return changed
}

// ChannelKeys returns a copy of the legacy PEM dictionary, as persisted
// in the wallet file's "certificates" field.
func (m *Manager) ChannelKeys() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.pemKeys))
	for k, v := range m.pemKeys {
		out[k] = v
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toPEM(key SigningKey) (string, error) {
	if leaf, ok := key.(*bip32.LeafKey); ok {
		return leaf.ToPEM()
	}
	if priv, ok := key.(*bip32.PrivateKey); ok {
		leaf, err := priv.ToLeafKey()
		if err != nil {
			return "", err
		}
		return leaf.ToPEM()
	}
	return "", errors.New("channelkeys: unsupported key type for PEM export")
}
