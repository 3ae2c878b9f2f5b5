package claimindex

import (
	"context"

	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// Store persists indexed claims, supports, and channels. A concrete
// implementation lives in internal/store; this package only depends on
// the interface (spec.md §9).
type Store interface {
	GetClaim(ctx context.Context, claimID string) (*Claim, bool, error)
	PutClaim(ctx context.Context, c *Claim) error

	GetSupport(ctx context.Context, claimID string, height int32, txPosition int) (*Support, bool, error)
	PutSupport(ctx context.Context, s *Support) error

	GetChannel(ctx context.Context, channelID string) (*Channel, bool, error)
	PutChannel(ctx context.Context, ch *Channel) error

	// ClaimsOnName returns every non-abandoned claim currently indexed
	// for name, used for short-URL prefix assignment (spec.md §4.7
	// "URL assignment").
	ClaimsOnName(ctx context.Context, name string) ([]*Claim, error)

	// PutTakeover appends a takeover record: name's controlling claim
	// became claimID at height. Append-only audit trail (SPEC_FULL.md
	// §4 "Takeover record"), never read back by the indexer itself.
	PutTakeover(ctx context.Context, name, claimID string, height int32) error
}

// KeyResolver supplies the current public key for a channel, used to
// re-validate signatures (spec.md §4.7 step 4). It's separate from
// Store because the key material flows through internal/bip32, not the
// claim record itself.
type KeyResolver interface {
	ChannelVerifier(ctx context.Context, channelID string, channelPublicKey []byte) (txmodel.Verifier, error)
}
