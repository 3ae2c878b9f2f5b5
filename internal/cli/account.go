package cli

import (
	"fmt"

	"github.com/lbryio/lbcwallet/internal/walletacct"
	"github.com/lbryio/lbcwallet/internal/walletio"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage wallet accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new account from a fresh mnemonic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "Primary Account"
		if len(args) == 1 {
			name = args[0]
		}
		single, _ := cmd.Flags().GetBool("single-address")

		dir, err := dataDir()
		if err != nil {
			return err
		}
		p, err := params()
		if err != nil {
			return err
		}
		path := walletPath(dir, p)
		f, err := loadWallet(path)
		if err != nil {
			return err
		}

		db, err := openStore(dir, p)
		if err != nil {
			return err
		}
		defer db.Close()

		var gen *walletacct.AddressGeneratorDict
		if single {
			gen = &walletacct.AddressGeneratorDict{Name: walletacct.GeneratorSingleKey}
		}

		acct, err := walletacct.GenerateAccount(p, name, gen, db, noopAnnouncer{}, db, db)
		if err != nil {
			return fmt.Errorf("generate account: %w", err)
		}
		if _, err := acct.EnsureAddressGap(cmd.Context()); err != nil {
			return fmt.Errorf("allocate addresses: %w", err)
		}

		dict, err := acct.ToDict("", true)
		if err != nil {
			return err
		}
		f.Accounts = append(f.Accounts, dict)
		if f.DefaultAccount == "" {
			f.DefaultAccount = dict.Name
		}
		if err := walletio.Save(path, f); err != nil {
			return fmt.Errorf("save wallet file: %w", err)
		}

		id, err := acct.ID()
		if err != nil {
			return err
		}
		fmt.Printf("Created account %q\n", dict.Name)
		fmt.Printf("  id:   %s\n", id)
		fmt.Printf("  seed: %s\n", dict.Seed)
		fmt.Println("\nBack up the seed phrase above; it cannot be recovered if lost.")
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts in the wallet file",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := dataDir()
		if err != nil {
			return err
		}
		p, err := params()
		if err != nil {
			return err
		}
		f, err := loadWallet(walletPath(dir, p))
		if err != nil {
			return err
		}
		if len(f.Accounts) == 0 {
			fmt.Println("no accounts")
			return nil
		}
		for _, d := range f.Accounts {
			marker := " "
			if d.Name == f.DefaultAccount {
				marker = "*"
			}
			fmt.Printf("%s %s (%s)\n", marker, d.Name, d.Ledger)
		}
		return nil
	},
}

func init() {
	accountCreateCmd.Flags().Bool("single-address", false, "use the single-address generator instead of the gap-limit chain")
	accountCmd.AddCommand(accountCreateCmd, accountListCmd)
	rootCmd.AddCommand(accountCmd)
}
