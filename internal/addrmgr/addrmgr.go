// Package addrmgr implements per-account address allocation under a
// gap-limit or single-address policy (spec.md §4.2). It is a classic
// tagged-variant case, modeled here as one interface with two concrete
// implementations rather than inheritance (spec.md §9).
package addrmgr

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/lbryio/lbcwallet/internal/bip32"
)

// ErrLockDiscipline is returned when address-key generation is invoked
// without holding the manager's generator lock (spec.md §7).
var ErrLockDiscipline = errors.New("addrmgr: generation attempted without holding the generator lock")

// AddressRecord is one row of the address table: an allocated child key
// and how many times it has been used as a payment destination.
type AddressRecord struct {
	Address   string
	N         uint32
	UsedTimes int
}

// Store is the persistence boundary this package needs. Concrete
// storage (internal/store) implements it; addrmgr never talks to a
// database directly, matching spec.md §9's "model as lookup handles,
// not shared-ownership graphs" guidance.
type Store interface {
	AddKeys(ctx context.Context, accountID string, chain bip32.KeyPath, records []AddressRecord) error
	AddressesDesc(ctx context.Context, accountID string, chain bip32.KeyPath, limit int) ([]AddressRecord, error)
	AddressesAsc(ctx context.Context, accountID string, chain bip32.KeyPath) ([]AddressRecord, error)
	UsableAddresses(ctx context.Context, accountID string, chain bip32.KeyPath, maxUses, limit int) ([]AddressRecord, error)
	HasAnyAddress(ctx context.Context, accountID string, chain bip32.KeyPath) (bool, error)
}

// Announcer is notified of newly allocated addresses so the wallet can
// tell the upstream node to watch for them.
type Announcer interface {
	AnnounceAddresses(ctx context.Context, addrs []string) error
}

// Manager is the tagged-variant interface spec.md §4.2/§9 describes.
type Manager interface {
	// EnsureAddressGap tops up the gap-limit window, returning any newly
	// generated addresses.
	EnsureAddressGap(ctx context.Context) ([]string, error)
	// GetOrCreateUsableAddress returns an address usable for a new
	// payment, generating more if none are under the use-count limit.
	GetOrCreateUsableAddress(ctx context.Context) (string, error)
	// GetMaxGap scans addresses in ascending index order and returns
	// the longest run of never-used addresses.
	GetMaxGap(ctx context.Context) (int, error)
	GetPrivateKey(index uint32) (*bip32.PrivateKey, error)
	GetPublicKey(index uint32) (*bip32.PublicKey, error)
}

// HDChainManager allocates a deterministic sequence of child addresses
// under a gap-limit policy (spec.md §4.2 "HD chain manager").
type HDChainManager struct {
	accountID             string
	chain                 bip32.KeyPath
	privateKey            *bip32.PrivateKey // nil for watch-only accounts
	publicKey             *bip32.PublicKey
	store                 Store
	announcer             Announcer
	Gap                   int
	MaximumUsesPerAddress int

	mu         sync.Mutex
	genLockHeld bool // true only while mu is held for key generation
}

// NewHDChainManager constructs a gap-limit manager for one chain
// (RECEIVE or CHANGE) of an account.
func NewHDChainManager(accountID string, chain bip32.KeyPath, privateKey *bip32.PrivateKey, publicKey *bip32.PublicKey, store Store, announcer Announcer, gap, maxUses int) *HDChainManager {
	return &HDChainManager{
		accountID:             accountID,
		chain:                 chain,
		privateKey:            privateKey,
		publicKey:             publicKey,
		store:                 store,
		announcer:             announcer,
		Gap:                   gap,
		MaximumUsesPerAddress: maxUses,
	}
}

func (m *HDChainManager) GetPrivateKey(index uint32) (*bip32.PrivateKey, error) {
	if m.privateKey == nil {
		return nil, errors.New("addrmgr: account has no private key (watch-only)")
	}
	return m.privateKey.Child(index)
}

func (m *HDChainManager) GetPublicKey(index uint32) (*bip32.PublicKey, error) {
	return m.publicKey.Child(index)
}

// GetMaxGap scans by ascending index and returns the length of the
// longest run of used_times == 0 (spec.md §4.2).
func (m *HDChainManager) GetMaxGap(ctx context.Context) (int, error) {
	records, err := m.store.AddressesAsc(ctx, m.accountID, m.chain)
	if err != nil {
		return 0, err
	}
	maxGap, current := 0, 0
	for _, r := range records {
		if r.UsedTimes == 0 {
			current++
		} else {
			if current > maxGap {
				maxGap = current
			}
			current = 0
		}
	}
	if current > maxGap {
		maxGap = current
	}
	return maxGap, nil
}

// EnsureAddressGap inspects the last Gap addresses in descending index
// order, counts the trailing run of unused addresses, and tops it up to
// Gap by generating contiguous indices starting at max_n+1 (spec.md
// §4.2). Generation is serialized by the manager's lock so allocation
// stays gap-free and monotonic (spec.md §5).
func (m *HDChainManager) EnsureAddressGap(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.genLockHeld = true
	defer func() { m.genLockHeld = false; m.mu.Unlock() }()
	return m.ensureAddressGapLocked(ctx)
}

func (m *HDChainManager) ensureAddressGapLocked(ctx context.Context) ([]string, error) {
	records, err := m.store.AddressesDesc(ctx, m.accountID, m.chain, m.Gap)
	if err != nil {
		return nil, err
	}

	existingGap := 0
	for _, r := range records {
		if r.UsedTimes == 0 {
			existingGap++
		} else {
			break
		}
	}

	if existingGap == m.Gap {
		return nil, nil
	}

	start := uint32(0)
	if len(records) > 0 {
		start = records[0].N + 1
	}
	end := start + uint32(m.Gap-existingGap)

	newAddrs, err := m.generateKeysLocked(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if m.announcer != nil {
		if err := m.announcer.AnnounceAddresses(ctx, newAddrs); err != nil {
			return nil, fmt.Errorf("addrmgr: announce addresses: %w", err)
		}
	}
	return newAddrs, nil
}

// generateKeysLocked must only be called while mu is held for
// generation; it is the one enforcement point for the lock-discipline
// invariant spec.md §7 calls out.
func (m *HDChainManager) generateKeysLocked(ctx context.Context, start, end uint32) ([]string, error) {
	if !m.genLockHeld {
		return nil, ErrLockDiscipline
	}

	records := make([]AddressRecord, 0, end-start)
	addrs := make([]string, 0, end-start)
	for n := start; n < end; n++ {
		pub, err := m.publicKey.Child(n)
		if err != nil {
			return nil, fmt.Errorf("addrmgr: derive child %d: %w", n, err)
		}
		addr, err := pub.Address()
		if err != nil {
			return nil, err
		}
		records = append(records, AddressRecord{Address: addr, N: n})
		addrs = append(addrs, addr)
	}
	if err := m.store.AddKeys(ctx, m.accountID, m.chain, records); err != nil {
		return nil, err
	}
	return addrs, nil
}

// GetOrCreateUsableAddress fetches up to 10 under-used addresses and
// picks one at random; if none are usable it tops up the gap and
// returns the first newly generated address (spec.md §4.2).
func (m *HDChainManager) GetOrCreateUsableAddress(ctx context.Context) (string, error) {
	m.mu.Lock()
	usable, err := m.store.UsableAddresses(ctx, m.accountID, m.chain, m.MaximumUsesPerAddress, 10)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	if len(usable) > 0 {
		return usable[rand.Intn(len(usable))].Address, nil
	}

	m.mu.Lock()
	m.genLockHeld = true
	defer func() { m.genLockHeld = false; m.mu.Unlock() }()
	addrs, err := m.ensureAddressGapLocked(ctx)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", errors.New("addrmgr: gap full but no usable address available")
	}
	return addrs[0], nil
}
