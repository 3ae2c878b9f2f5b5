package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lbryio/lbcwallet/internal/ledger"
	"github.com/lbryio/lbcwallet/internal/store"
	"github.com/lbryio/lbcwallet/internal/walletacct"
	"github.com/lbryio/lbcwallet/internal/walletio"
	"github.com/spf13/viper"
)

// noopAnnouncer implements addrmgr.Announcer for commands that operate
// on an index detached from a running sync driver: there is no peer
// connection here to tell about newly allocated addresses.
type noopAnnouncer struct{}

func (noopAnnouncer) AnnounceAddresses(ctx context.Context, addrs []string) error { return nil }

// dataDir resolves the --datadir flag, defaulting to ~/.lbcwallet.
func dataDir() (string, error) {
	if d := viper.GetString("datadir"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lbcwallet"), nil
}

// params resolves the --network flag to a ledger parameter set.
func params() (*ledger.Params, error) {
	name := viper.GetString("network")
	if name == "" {
		name = "lbc_mainnet"
	}
	p, ok := ledger.ByName(name)
	if !ok {
		return nil, fmt.Errorf("cli: unknown network %q", name)
	}
	return p, nil
}

// walletPath is the wallet file for the current --network.
func walletPath(dir string, p *ledger.Params) string {
	return filepath.Join(dir, p.Name, "default_wallet")
}

// openStore opens (creating if necessary) the claim/address index
// database under dir.
func openStore(dir string, p *ledger.Params) (*store.DB, error) {
	if err := os.MkdirAll(filepath.Join(dir, p.Name), 0o700); err != nil {
		return nil, err
	}
	return store.Open(filepath.Join(dir, p.Name, "claims.db"))
}

// loadWallet reads the wallet file, returning an empty File (not an
// error) if none exists yet.
func loadWallet(path string) (*walletio.File, error) {
	f, err := walletio.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &walletio.File{}, nil
		}
		return nil, err
	}
	return f, nil
}

// openAccount loads the wallet file and the named (or default, or
// sole) account dict, wiring it to a freshly opened store.DB for
// address/balance/channel-key persistence. The caller owns the
// returned *store.DB and must Close it when done.
func openAccount(name string) (*walletacct.Account, *store.DB, *walletio.File, string, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, nil, nil, "", err
	}
	p, err := params()
	if err != nil {
		return nil, nil, nil, "", err
	}
	path := walletPath(dir, p)
	f, err := loadWallet(path)
	if err != nil {
		return nil, nil, nil, "", err
	}
	if len(f.Accounts) == 0 {
		return nil, nil, nil, "", fmt.Errorf("cli: no accounts in %s, run `account create` first", path)
	}

	var dict *walletacct.Dict
	switch {
	case name != "":
		for _, d := range f.Accounts {
			if d.Name == name {
				dict = d
				break
			}
		}
		if dict == nil {
			return nil, nil, nil, "", fmt.Errorf("cli: no account named %q", name)
		}
	case f.DefaultAccount != "":
		for _, d := range f.Accounts {
			if d.Name == f.DefaultAccount {
				dict = d
				break
			}
		}
		fallthrough
	default:
		if dict == nil {
			dict = f.Accounts[0]
		}
	}

	db, err := openStore(dir, p)
	if err != nil {
		return nil, nil, nil, "", err
	}

	acct, err := walletacct.FromDict(p, dict, db, noopAnnouncer{}, db, db)
	if err != nil {
		db.Close()
		return nil, nil, nil, "", err
	}
	return acct, db, f, path, nil
}
