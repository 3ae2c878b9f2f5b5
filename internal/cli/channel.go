package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Manage channel signing keys",
}

var channelNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate the next deterministic channel signing key and print its certificate",
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, db, _, _, err := openAccount(viper.GetString("account"))
		if err != nil {
			return err
		}
		defer db.Close()

		key, err := acct.GenerateChannelPrivateKey(cmd.Context())
		if err != nil {
			return fmt.Errorf("generate channel key: %w", err)
		}
		leaf, err := key.ToLeafKey()
		if err != nil {
			return err
		}
		addr, err := leaf.Address()
		if err != nil {
			return err
		}
		pem, err := leaf.ToPEM()
		if err != nil {
			return err
		}
		fmt.Printf("channel address: %s\n\n%s\n", addr, pem)
		return nil
	},
}

func init() {
	channelCmd.AddCommand(channelNewCmd)
	rootCmd.AddCommand(channelCmd)
}
