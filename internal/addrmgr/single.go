package addrmgr

import (
	"context"
	"sync"

	"github.com/lbryio/lbcwallet/internal/bip32"
)

// SingleAddressManager is the degenerate address manager: one address
// serves both the receiving and change chains, and the gap parameter is
// irrelevant (spec.md §4.2 "Single-address manager").
type SingleAddressManager struct {
	accountID  string
	chain      bip32.KeyPath
	privateKey *bip32.PrivateKey
	publicKey  *bip32.PublicKey
	store      Store
	announcer  Announcer
	mu         sync.Mutex
}

// NewSingleAddressManager constructs the single-address variant. Unlike
// HDChainManager, the receiving and change instances share the same
// underlying key — callers typically construct one and reuse it for
// both chain numbers.
func NewSingleAddressManager(accountID string, chain bip32.KeyPath, privateKey *bip32.PrivateKey, publicKey *bip32.PublicKey, store Store, announcer Announcer) *SingleAddressManager {
	return &SingleAddressManager{
		accountID:  accountID,
		chain:      chain,
		privateKey: privateKey,
		publicKey:  publicKey,
		store:      store,
		announcer:  announcer,
	}
}

func (m *SingleAddressManager) GetPrivateKey(_ uint32) (*bip32.PrivateKey, error) {
	return m.privateKey, nil
}

func (m *SingleAddressManager) GetPublicKey(_ uint32) (*bip32.PublicKey, error) {
	return m.publicKey, nil
}

// GetMaxGap is always zero: there is no gap-limit window.
func (m *SingleAddressManager) GetMaxGap(_ context.Context) (int, error) {
	return 0, nil
}

// EnsureAddressGap generates the single address if it does not exist
// yet, otherwise it's a no-op.
func (m *SingleAddressManager) EnsureAddressGap(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.store.HasAnyAddress(ctx, m.accountID, m.chain)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	addr, err := m.publicKey.Address()
	if err != nil {
		return nil, err
	}
	if err := m.store.AddKeys(ctx, m.accountID, m.chain, []AddressRecord{{Address: addr, N: 0}}); err != nil {
		return nil, err
	}
	if m.announcer != nil {
		if err := m.announcer.AnnounceAddresses(ctx, []string{addr}); err != nil {
			return nil, err
		}
	}
	return []string{addr}, nil
}

// GetOrCreateUsableAddress always returns the account's single address,
// generating it first if necessary.
func (m *SingleAddressManager) GetOrCreateUsableAddress(ctx context.Context) (string, error) {
	addrs, err := m.EnsureAddressGap(ctx)
	if err != nil {
		return "", err
	}
	if len(addrs) > 0 {
		return addrs[0], nil
	}
	return m.publicKey.Address()
}
