// Package mnemonic implements BIP-39 mnemonic generation and seed
// derivation (spec.md §3 "Seed/Mnemonic", §6 "Mnemonic").
package mnemonic

import (
	"errors"

	"github.com/tyler-smith/go-bip39"
)

// DefaultPassphrase is used when deriving a seed if the caller supplies
// none, matching the legacy wallet's own default salt.
const DefaultPassphrase = "lbryum"

// ErrInvalidMnemonic is returned when a phrase fails BIP-39 checksum
// validation.
var ErrInvalidMnemonic = errors.New("mnemonic: invalid phrase")

// New generates a fresh 12-word mnemonic carrying 128 bits of entropy
// (spec.md §3: "A 12-word phrase from a fixed wordlist encodes >=128
// bits of entropy").
func New() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Valid reports whether phrase is a well-formed BIP-39 mnemonic: every
// word is in the wordlist and the trailing checksum bits match
// SHA-256(entropy) (spec.md §6).
func Valid(phrase string) bool {
	return bip39.IsMnemonicValid(phrase)
}

// SeedFromMnemonic derives a 64-byte seed from a mnemonic phrase and an
// optional passphrase via PBKDF2 key-stretching, as BIP-39 specifies. An
// empty passphrase falls back to DefaultPassphrase for compatibility
// with wallets created by the legacy client.
func SeedFromMnemonic(phrase, passphrase string) ([]byte, error) {
	if phrase == "" {
		return nil, errors.New("mnemonic: phrase is empty")
	}
	if !Valid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}
	return bip39.NewSeedWithErrorChecking(phrase, passphrase)
}
