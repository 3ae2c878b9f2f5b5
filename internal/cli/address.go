package cli

import (
	"fmt"

	"github.com/lbryio/lbcwallet/internal/walletacct"
	"github.com/lbryio/lbcwallet/internal/walletio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Allocate or list receiving addresses",
}

var addressNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Return a usable receiving address, generating more if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, db, f, path, err := openAccount(viper.GetString("account"))
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := acct.EnsureAddressGap(cmd.Context()); err != nil {
			return fmt.Errorf("ensure address gap: %w", err)
		}

		usable, err := acct.ReceivingAddress(cmd.Context())
		if err != nil {
			return fmt.Errorf("get usable address: %w", err)
		}

		if changed, err := acct.SaveMaxGap(cmd.Context()); err == nil && changed {
			if dict, derr := acct.ToDict("", true); derr == nil {
				replaceAccountDict(f, dict)
				walletio.Save(path, f)
			}
		}

		fmt.Println(usable)
		return nil
	},
}

// replaceAccountDict overwrites the wallet-file entry matching dict's
// name with dict, so a gap widened by SaveMaxGap is persisted.
func replaceAccountDict(f *walletio.File, dict *walletacct.Dict) {
	for i, d := range f.Accounts {
		if d.Name == dict.Name {
			f.Accounts[i] = dict
			return
		}
	}
	f.Accounts = append(f.Accounts, dict)
}

func init() {
	addressCmd.AddCommand(addressNewCmd)
	rootCmd.AddCommand(addressCmd)
}
