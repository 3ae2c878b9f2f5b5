// Command lbcwalletd is the CLI entry point for the LBRY HD wallet and
// claim index (spec.md §6 "External Interfaces"). It wraps
// internal/cli's cobra command tree; commands that need the wallet
// file or claim index read and write them directly rather than
// talking to a background process, so the binary has no daemon mode.
package main

import (
	"os"

	"github.com/lbryio/lbcwallet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
