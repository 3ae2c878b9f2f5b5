// Package cli implements the lbcwalletd command-line surface: wallet
// and channel-key management plus read-only queries against the claim
// index, all operating directly on the on-disk wallet file and
// database without requiring a running sync driver (spec.md §6 "External
// Interfaces").
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "lbcwalletd",
	Short: "LBRY HD wallet and claim index",
	Long: `lbcwalletd manages an LBRY hierarchical-deterministic wallet and the
local claim/support index derived from it: account creation, address
and channel-key derivation, balances, and claim lookups.`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lbcwallet.yaml)")
	rootCmd.PersistentFlags().String("datadir", "", "wallet/database directory (default $HOME/.lbcwallet)")
	rootCmd.PersistentFlags().String("network", "lbc_mainnet", "network parameters (lbc_mainnet or lbc_regtest)")
	rootCmd.PersistentFlags().String("account", "", "account name (default: wallet's default account)")

	viper.BindPFlag("datadir", rootCmd.PersistentFlags().Lookup("datadir"))
	viper.BindPFlag("network", rootCmd.PersistentFlags().Lookup("network"))
	viper.BindPFlag("account", rootCmd.PersistentFlags().Lookup("account"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lbcwallet")
	}

	viper.SetEnvPrefix("lbcwallet")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
