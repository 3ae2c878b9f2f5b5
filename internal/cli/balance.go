package cli

import (
	"fmt"

	"github.com/lbryio/lbcwallet/internal/ledger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the account's spendable balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmations, _ := cmd.Flags().GetInt("confirmations")
		includeClaims, _ := cmd.Flags().GetBool("include-claims")

		acct, db, _, _, err := openAccount(viper.GetString("account"))
		if err != nil {
			return err
		}
		defer db.Close()

		dewies, err := acct.GetBalance(cmd.Context(), confirmations, includeClaims)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		fmt.Printf("%.8f LBC\n", ledger.DewiesToLBC(dewies))
		return nil
	},
}

func init() {
	balanceCmd.Flags().Int("confirmations", 0, "minimum confirmations to count a UTXO")
	balanceCmd.Flags().Bool("include-claims", false, "include claim/support outputs in the total")
	rootCmd.AddCommand(balanceCmd)
}
