// Package walletio implements the on-disk wallet-file codec (spec.md
// §6): a JSON document holding one or more accounts in the shape
// internal/walletacct.Dict already defines per-account, read and
// written atomically so a crash mid-save can never leave a partially
// written file behind (spec.md §5 "unwind without partially committed
// side effects", applied here to the one file-level mutation this
// module performs outside the database).
package walletio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lbryio/lbcwallet/internal/walletacct"
)

// CurrentVersion is written to every File this package saves.
const CurrentVersion = 1

// File is the top-level wallet-file document: every account the
// wallet manages, plus the name of the default account, used when no
// account is named explicitly. spec.md §6 only spells out the shape of one
// account entry; the list/default-account wrapper is this module's own
// minimal extension to let one file hold more than one account.
type File struct {
	Version        int               `json:"version"`
	DefaultAccount string            `json:"default_account,omitempty"`
	Accounts       []*walletacct.Dict `json:"accounts"`
}

// Load reads and parses a wallet file. A missing file is reported as
// os.IsNotExist-compatible so callers can distinguish "no wallet yet"
// from a corrupt one.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("walletio: parse %s: %w", path, err)
	}
	return &f, nil
}

// Save serializes f and writes it to path atomically: the new content
// is written to a sibling temp file first, then renamed over the
// target, so a crash or power loss mid-write never corrupts the
// previous, still-valid wallet file.
func Save(path string, f *File) error {
	if f.Version == 0 {
		f.Version = CurrentVersion
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("walletio: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("walletio: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("walletio: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("walletio: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("walletio: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("walletio: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("walletio: rename into place: %w", err)
	}
	return nil
}

// FindAccount returns the account dict whose id matches accountID,
// computed by the caller (walletacct.Account.ID requires key material
// this package never touches).
func (f *File) FindAccount(accountID string, idOf func(*walletacct.Dict) (string, error)) (*walletacct.Dict, error) {
	for _, d := range f.Accounts {
		id, err := idOf(d)
		if err != nil {
			return nil, err
		}
		if id == accountID {
			return d, nil
		}
	}
	return nil, nil
}
