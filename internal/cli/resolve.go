package cli

import (
	"fmt"
	"strings"

	"github.com/lbryio/lbcwallet/internal/claimindex"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>[#claim_id_prefix]",
	Short: "Look up an indexed claim by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, prefix := splitURL(args[0])

		dir, err := dataDir()
		if err != nil {
			return err
		}
		p, err := params()
		if err != nil {
			return err
		}
		db, err := openStore(dir, p)
		if err != nil {
			return err
		}
		defer db.Close()

		claims, err := db.ClaimsOnName(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		claim := pickClaim(claims, prefix)
		if claim == nil {
			return fmt.Errorf("resolve: no claim found for %q", args[0])
		}
		printClaim(claim)
		return nil
	},
}

// splitURL separates "name#prefix" into its name and disambiguating
// claim_id prefix (spec.md §4.7 short/canonical URL scheme). An empty
// prefix means "whichever claim is currently controlling".
func splitURL(url string) (name, prefix string) {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		return url[:i], url[i+1:]
	}
	return url, ""
}

func pickClaim(claims []*claimindex.Claim, prefix string) *claimindex.Claim {
	for _, c := range claims {
		if c.Abandoned {
			continue
		}
		if prefix == "" {
			if c.IsControlling {
				return c
			}
			continue
		}
		if strings.HasPrefix(c.ClaimID, prefix) {
			return c
		}
	}
	if prefix == "" {
		for _, c := range claims {
			if !c.Abandoned {
				return c
			}
		}
	}
	return nil
}

func printClaim(c *claimindex.Claim) {
	fmt.Printf("claim_id:          %s\n", c.ClaimID)
	fmt.Printf("name:              %s\n", c.Name)
	fmt.Printf("height:            %d\n", c.Height)
	fmt.Printf("amount:            %d\n", c.StakedAmount)
	fmt.Printf("effective_amount:  %d\n", c.StakedAmount+c.StakedSupportAmount)
	fmt.Printf("is_controlling:    %t\n", c.IsControlling)
	fmt.Printf("activation_height: %d\n", c.ActivationHeight)
	fmt.Printf("expiration_height: %d\n", c.ExpirationHeight)
	if c.SigningChannelID != "" {
		fmt.Printf("signing_channel:   %s (valid: %t)\n", c.SigningChannelID, c.IsSignatureValid)
	}
	if c.ShortURL != "" {
		fmt.Printf("short_url:         %s\n", c.ShortURL)
	}
	if c.CanonicalURL != "" {
		fmt.Printf("canonical_url:     %s\n", c.CanonicalURL)
	}
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
