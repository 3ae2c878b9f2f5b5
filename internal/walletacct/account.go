// Package walletacct implements the Account component (spec.md §4.4):
// an HD account composed from the key primitives, address managers, and
// channel-key manager, plus the wallet-file (de)serialization and
// at-rest encryption state machine.
package walletacct

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lbryio/lbcwallet/internal/addrmgr"
	"github.com/lbryio/lbcwallet/internal/bip32"
	"github.com/lbryio/lbcwallet/internal/channelkeys"
	"github.com/lbryio/lbcwallet/internal/ledger"
	"github.com/lbryio/lbcwallet/internal/mnemonic"
)

// Generator names persisted in a wallet file's address_generator.name
// field (spec.md §4.2/§6).
const (
	GeneratorSingleKey    = "single-address"
	GeneratorDeterministic = "deterministic-chain"
)

var (
	// ErrAlreadyEncrypted is returned by Encrypt on an already-encrypted
	// account.
	ErrAlreadyEncrypted = errors.New("walletacct: account is already encrypted")
	// ErrNotEncrypted is returned by Decrypt on a plaintext account.
	ErrNotEncrypted = errors.New("walletacct: account is not encrypted")
	// ErrEncrypted is returned by any operation that requires the
	// private key while the account is encrypted.
	ErrEncrypted = errors.New("walletacct: account is encrypted")
)

// BalanceStore is the persistence surface Account needs for balance and
// UTXO queries; internal/store implements it. Kept as an interface so
// this package never imports a concrete database (spec.md §9).
type BalanceStore interface {
	Balance(ctx context.Context, accountID string, confirmations int, includeClaims bool) (int64, error)
}

// ChainDict is the per-chain (receiving/change) portion of
// address_generator in the wallet file.
type ChainDict struct {
	Gap                   int `json:"gap"`
	MaximumUsesPerAddress int `json:"maximum_uses_per_address"`
}

// AddressGeneratorDict is the address_generator field of the wallet
// file (spec.md §6).
type AddressGeneratorDict struct {
	Name      string     `json:"name"`
	Receiving *ChainDict `json:"receiving,omitempty"`
	Change    *ChainDict `json:"change,omitempty"`
}

// Dict is the on-disk JSON shape of one account, exactly as spec.md §6
// describes it.
type Dict struct {
	Ledger           string               `json:"ledger"`
	Name             string               `json:"name"`
	Seed             string               `json:"seed"`
	Encrypted        bool                 `json:"encrypted"`
	PrivateKey       string               `json:"private_key"`
	PublicKey        string               `json:"public_key"`
	AddressGenerator AddressGeneratorDict `json:"address_generator"`
	ModifiedOn       int64                `json:"modified_on"`
	Certificates     map[string]string    `json:"certificates,omitempty"`
}

// Account is one HD wallet account: key material, two address managers
// (receiving/change), a channel-key manager, and the encrypted-at-rest
// state machine (spec.md §4.4).
type Account struct {
	params *ledger.Params
	store  BalanceStore

	mu         sync.Mutex
	name       string
	seed       string // mnemonic phrase, or AES-CBC ciphertext while encrypted
	privateKeyString string // extended private key string, or ciphertext while encrypted
	encrypted  bool
	modifiedOn int64
	initVector map[string][]byte

	privateKey *bip32.PrivateKey // nil while encrypted or watch-only
	publicKey  *bip32.PublicKey

	generatorName string
	receiving     addrmgr.Manager
	change        addrmgr.Manager
	byChain       map[bip32.KeyPath]addrmgr.Manager

	channelKeys *channelkeys.Manager
}

// ID is the address-derived account identifier (spec.md §6: "id is the
// address of the account's root public key").
func (a *Account) ID() (string, error) {
	return a.publicKey.Address()
}

func (a *Account) Name() string { return a.name }

// GenerateAccount creates a brand-new account from a fresh mnemonic
// (spec.md §4.4 "Account.generate").
func GenerateAccount(params *ledger.Params, name string, gap *AddressGeneratorDict, store addrmgr.Store, announcer addrmgr.Announcer, checker channelkeys.UsedKeyChecker, balances BalanceStore) (*Account, error) {
	phrase, err := mnemonic.New()
	if err != nil {
		return nil, err
	}
	return FromDict(params, &Dict{
		Name:             name,
		Seed:             phrase,
		AddressGenerator: defaultGenerator(gap),
	}, store, announcer, checker, balances)
}

func defaultGenerator(d *AddressGeneratorDict) AddressGeneratorDict {
	if d != nil {
		return *d
	}
	return AddressGeneratorDict{Name: GeneratorDeterministic}
}

// FromDict reconstructs an Account from its wallet-file JSON shape
// (spec.md §4.4 "Account.from_dict"/"keys_from_dict").
func FromDict(params *ledger.Params, d *Dict, store addrmgr.Store, announcer addrmgr.Announcer, checker channelkeys.UsedKeyChecker, balances BalanceStore) (*Account, error) {
	var (
		privateKey *bip32.PrivateKey
		publicKey  *bip32.PublicKey
		err        error
	)
	if !d.Encrypted {
		switch {
		case d.Seed != "":
			seed, serr := mnemonic.SeedFromMnemonic(d.Seed, "")
			if serr != nil {
				return nil, serr
			}
			privateKey, err = bip32.FromSeed(params, seed)
		case d.PrivateKey != "":
			privateKey, err = bip32.FromExtendedKeyString(params, d.PrivateKey)
		}
		if err != nil {
			return nil, err
		}
		if privateKey != nil {
			publicKey, err = privateKey.Neuter()
			if err != nil {
				return nil, err
			}
		}
	}
	if publicKey == nil {
		if d.PublicKey == "" {
			return nil, errors.New("walletacct: account dict has neither a usable private key nor a public key")
		}
		publicKey, err = bip32.PublicKeyFromExtendedKeyString(params, d.PublicKey)
		if err != nil {
			return nil, err
		}
	}

	name := d.Name
	if name == "" {
		addr, aerr := publicKey.Address()
		if aerr != nil {
			return nil, aerr
		}
		name = fmt.Sprintf("Account #%s", addr)
	}

	a := &Account{
		params:            params,
		store:             balances,
		name:              name,
		seed:              d.Seed,
		privateKeyString:  d.PrivateKey,
		encrypted:         d.Encrypted,
		modifiedOn:        d.ModifiedOn,
		initVector:        make(map[string][]byte),
		privateKey:        privateKey,
		publicKey:         publicKey,
		byChain:           make(map[bip32.KeyPath]addrmgr.Manager),
	}

	generatorName := d.AddressGenerator.Name
	if generatorName == "" {
		generatorName = GeneratorDeterministic
	}
	a.generatorName = generatorName

	accountID, err := publicKey.Address()
	if err != nil {
		return nil, err
	}

	switch generatorName {
	case GeneratorSingleKey:
		single := addrmgr.NewSingleAddressManager(accountID, bip32.RECEIVE, privateKey, publicKey, store, announcer)
		a.receiving = single
		a.change = single
	case GeneratorDeterministic:
		recvCfg := d.AddressGenerator.Receiving
		if recvCfg == nil {
			recvCfg = &ChainDict{Gap: 20, MaximumUsesPerAddress: 1}
		}
		changeCfg := d.AddressGenerator.Change
		if changeCfg == nil {
			changeCfg = &ChainDict{Gap: 6, MaximumUsesPerAddress: 1}
		}
		recvPriv, recvPub, err := childManagerKeys(privateKey, publicKey, bip32.RECEIVE)
		if err != nil {
			return nil, err
		}
		chgPriv, chgPub, err := childManagerKeys(privateKey, publicKey, bip32.CHANGE)
		if err != nil {
			return nil, err
		}
		a.receiving = addrmgr.NewHDChainManager(accountID, bip32.RECEIVE, recvPriv, recvPub, store, announcer, recvCfg.Gap, recvCfg.MaximumUsesPerAddress)
		a.change = addrmgr.NewHDChainManager(accountID, bip32.CHANGE, chgPriv, chgPub, store, announcer, changeCfg.Gap, changeCfg.MaximumUsesPerAddress)
	default:
		return nil, fmt.Errorf("walletacct: unknown address_generator %q", generatorName)
	}
	a.byChain[bip32.RECEIVE] = a.receiving
	a.byChain[bip32.CHANGE] = a.change

	channelMgr, err := channelkeys.New(params, privateKey, checker, d.Certificates)
	if err != nil {
		return nil, err
	}
	a.channelKeys = channelMgr

	return a, nil
}

func childManagerKeys(priv *bip32.PrivateKey, pub *bip32.PublicKey, chain bip32.KeyPath) (*bip32.PrivateKey, *bip32.PublicKey, error) {
	childPub, err := pub.Child(uint32(chain))
	if err != nil {
		return nil, nil, err
	}
	if priv == nil {
		return nil, childPub, nil
	}
	childPriv, err := priv.Child(uint32(chain))
	if err != nil {
		return nil, nil, err
	}
	return childPriv, childPub, nil
}

// ToDict serializes the account to the wallet-file shape. When
// encryptPassword is non-empty and the account is currently plaintext,
// the seed and private key are encrypted in the output without mutating
// the in-memory account (spec.md §4.4 "to_dict(encrypt_password=...)").
func (a *Account) ToDict(encryptPassword string, includeChannelKeys bool) (*Dict, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	privateKeyString, seed := a.privateKeyString, a.seed
	if !a.encrypted && a.privateKey != nil {
		privateKeyString = a.privateKey.ExtendedKeyString()
	}
	if !a.encrypted && encryptPassword != "" {
		if privateKeyString != "" {
			iv, err := a.getInitVectorLocked("private_key")
			if err != nil {
				return nil, err
			}
			privateKeyString, err = bip32.Encrypt(encryptPassword, privateKeyString, iv)
			if err != nil {
				return nil, err
			}
		}
		if seed != "" {
			iv, err := a.getInitVectorLocked("seed")
			if err != nil {
				return nil, err
			}
			seed, err = bip32.Encrypt(encryptPassword, seed, iv)
			if err != nil {
				return nil, err
			}
		}
	}

	d := &Dict{
		Ledger:           a.params.Name,
		Name:             a.name,
		Seed:             seed,
		Encrypted:        a.encrypted || encryptPassword != "",
		PrivateKey:       privateKeyString,
		PublicKey:        a.publicKey.ExtendedKeyString(),
		AddressGenerator: a.addressGeneratorDictLocked(),
		ModifiedOn:       a.modifiedOn,
	}
	if includeChannelKeys {
		d.Certificates = a.channelKeys.ChannelKeys()
	}
	return d, nil
}

func (a *Account) addressGeneratorDictLocked() AddressGeneratorDict {
	if a.generatorName == GeneratorSingleKey {
		return AddressGeneratorDict{Name: GeneratorSingleKey}
	}
	recv := a.receiving.(*addrmgr.HDChainManager)
	chg := a.change.(*addrmgr.HDChainManager)
	return AddressGeneratorDict{
		Name:      GeneratorDeterministic,
		Receiving: &ChainDict{Gap: recv.Gap, MaximumUsesPerAddress: recv.MaximumUsesPerAddress},
		Change:    &ChainDict{Gap: chg.Gap, MaximumUsesPerAddress: chg.MaximumUsesPerAddress},
	}
}

func (a *Account) getInitVectorLocked(key string) ([]byte, error) {
	if iv, ok := a.initVector[key]; ok {
		return iv, nil
	}
	iv, err := bip32.NewIV()
	if err != nil {
		return nil, err
	}
	a.initVector[key] = iv
	return iv, nil
}

// Hash returns a content hash over the account's plaintext fields plus
// its sorted channel-key addresses, used for wallet-merge change
// detection (spec.md §4.4 "hash"). It is an error to call this while
// the account is encrypted.
func (a *Account) Hash() ([]byte, error) {
	a.mu.Lock()
	encrypted := a.encrypted
	a.mu.Unlock()
	if encrypted {
		return nil, ErrEncrypted
	}

	d, err := a.ToDict("", false)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write(raw)

	certs := a.channelKeys.ChannelKeys()
	addrs := make([]string, 0, len(certs))
	for addr := range certs {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		h.Write([]byte(addr))
	}
	return h.Sum(nil), nil
}

// Encrypt moves the account into its encrypted-at-rest state (spec.md
// §4.4 "encrypt").
func (a *Account) Encrypt(password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.encrypted {
		return ErrAlreadyEncrypted
	}
	if a.seed != "" {
		iv, err := a.getInitVectorLocked("seed")
		if err != nil {
			return err
		}
		a.seed, err = bip32.Encrypt(password, a.seed, iv)
		if err != nil {
			return err
		}
	}
	if a.privateKey != nil {
		iv, err := a.getInitVectorLocked("private_key")
		if err != nil {
			return err
		}
		a.privateKeyString, err = bip32.Encrypt(password, a.privateKey.ExtendedKeyString(), iv)
		if err != nil {
			return err
		}
		a.privateKey = nil
	}
	a.encrypted = true
	return nil
}

// Decrypt reverses Encrypt, returning false (without mutating state) if
// the password is wrong for either field (spec.md §4.4 "decrypt").
func (a *Account) Decrypt(password string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.encrypted {
		return false, ErrNotEncrypted
	}

	seed, seedIV, err := a.decryptSeedLocked(password)
	if err != nil {
		return false, nil
	}
	privateKey, privIV, err := a.decryptPrivateKeyLocked(password)
	if err != nil {
		return false, nil
	}

	a.seed = seed
	if seedIV != nil {
		a.initVector["seed"] = seedIV
	}
	a.privateKey = privateKey
	if privIV != nil {
		a.initVector["private_key"] = privIV
	}
	a.privateKeyString = ""
	a.encrypted = false
	return true, nil
}

func (a *Account) decryptSeedLocked(password string) (string, []byte, error) {
	if a.seed == "" {
		return "", nil, nil
	}
	plain, iv, err := bip32.Decrypt(password, a.seed)
	if err != nil {
		return "", nil, err
	}
	if plain == "" {
		return "", nil, nil
	}
	if !mnemonic.Valid(plain) {
		return "", nil, bip32.ErrWrongPassword
	}
	return plain, iv, nil
}

func (a *Account) decryptPrivateKeyLocked(password string) (*bip32.PrivateKey, []byte, error) {
	if a.privateKeyString == "" {
		return nil, nil, nil
	}
	plain, iv, err := bip32.Decrypt(password, a.privateKeyString)
	if err != nil {
		return nil, nil, err
	}
	if plain == "" {
		return nil, nil, nil
	}
	key, err := bip32.FromExtendedKeyString(a.params, plain)
	if err != nil {
		return nil, nil, bip32.ErrWrongPassword
	}
	return key, iv, nil
}

// ReceivingAddress returns an address usable for a new incoming
// payment, generating more on the receiving chain if none are under
// the use-count limit (spec.md §4.2 "get_or_create_usable_address",
// applied to the account's receiving chain).
func (a *Account) ReceivingAddress(ctx context.Context) (string, error) {
	return a.receiving.GetOrCreateUsableAddress(ctx)
}

// EnsureAddressGap tops up both the receiving and change chains.
func (a *Account) EnsureAddressGap(ctx context.Context) ([]string, error) {
	var all []string
	recv, err := a.receiving.EnsureAddressGap(ctx)
	if err != nil {
		return nil, err
	}
	all = append(all, recv...)
	chg, err := a.change.EnsureAddressGap(ctx)
	if err != nil {
		return nil, err
	}
	all = append(all, chg...)
	return all, nil
}

// SaveMaxGap recomputes each chain's max observed gap and widens its
// configured gap to stay ahead of it (spec.md §4.4 "save_max_gap"),
// reporting whether anything changed so the caller knows to persist the
// wallet file.
func (a *Account) SaveMaxGap(ctx context.Context) (bool, error) {
	if a.generatorName != GeneratorDeterministic {
		return false, nil
	}
	recv := a.receiving.(*addrmgr.HDChainManager)
	chg := a.change.(*addrmgr.HDChainManager)

	recvGap, err := recv.GetMaxGap(ctx)
	if err != nil {
		return false, err
	}
	chgGap, err := chg.GetMaxGap(ctx)
	if err != nil {
		return false, err
	}

	changed := false
	if newGap := max(20, recvGap+1); newGap != recv.Gap {
		recv.Gap = newGap
		changed = true
	}
	if newGap := max(6, chgGap+1); newGap != chg.Gap {
		chg.Gap = newGap
		changed = true
	}
	return changed, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// GetPrivateKey returns the private key for one chain/index pair. It
// fails if the account is encrypted (spec.md §4.4 assert).
func (a *Account) GetPrivateKey(chain bip32.KeyPath, index uint32) (*bip32.PrivateKey, error) {
	a.mu.Lock()
	encrypted := a.encrypted
	a.mu.Unlock()
	if encrypted {
		return nil, ErrEncrypted
	}
	mgr, ok := a.byChain[chain]
	if !ok {
		return nil, fmt.Errorf("walletacct: unknown chain %v", chain)
	}
	return mgr.GetPrivateKey(index)
}

func (a *Account) GetPublicKey(chain bip32.KeyPath, index uint32) (*bip32.PublicKey, error) {
	mgr, ok := a.byChain[chain]
	if !ok {
		return nil, fmt.Errorf("walletacct: unknown chain %v", chain)
	}
	return mgr.GetPublicKey(index)
}

// GetBalance delegates to the injected BalanceStore (spec.md §4.4
// "get_balance").
func (a *Account) GetBalance(ctx context.Context, confirmations int, includeClaims bool) (int64, error) {
	id, err := a.ID()
	if err != nil {
		return 0, err
	}
	return a.store.Balance(ctx, id, confirmations, includeClaims)
}

// GenerateChannelPrivateKey advances the deterministic channel-key
// sequence and returns the next usable key (spec.md §4.4
// "generate_channel_private_key").
func (a *Account) GenerateChannelPrivateKey(ctx context.Context) (*bip32.PrivateKey, error) {
	return a.channelKeys.GenerateNextKey(ctx)
}

// AddChannelPrivateKey imports a signing key into the legacy PEM
// dictionary (spec.md §4.4 "add_channel_private_key").
func (a *Account) AddChannelPrivateKey(key channelkeys.SigningKey) error {
	return a.channelKeys.AddChannelPrivateKey(key)
}

// GetChannelPrivateKey looks up a channel's signing key by address and
// public-key hash (spec.md §4.4 "get_channel_private_key").
func (a *Account) GetChannelPrivateKey(address string, pubKeyHash []byte) (channelkeys.SigningKey, error) {
	return a.channelKeys.GetChannelPrivateKey(address, pubKeyHash)
}

// MaybeMigrateCertificates runs the legacy PEM-dictionary migration and
// reports whether anything changed (spec.md §4.4
// "maybe_migrate_certificates").
func (a *Account) MaybeMigrateCertificates() bool {
	return a.channelKeys.MigrateCertificates()
}
