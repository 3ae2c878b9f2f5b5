// Package claimindex implements the claim indexer (spec.md §4.7): it
// turns the events discovered by internal/blocksync into claim/support
// records, drives internal/claimtrie's activation/takeover state, keeps
// per-channel signature counts, and assigns short/canonical URLs.
package claimindex

import "github.com/lbryio/lbcwallet/internal/txmodel"

// Claim is the indexed view of one claim_id: current payload, its
// signature status, and its assigned URLs. The claimtrie engine tracks
// the narrower activation/amount state separately (internal/claimtrie.Claim);
// this type is what external callers (resolve, search) read.
type Claim struct {
	ClaimID          string
	Name             string
	Height           int32
	TxPosition       int
	Amount           int64
	Payload          *txmodel.ClaimPayload
	FirstInputTxID   [32]byte
	ClaimHash        []byte
	IsSignatureValid bool
	ShortURL         string // "name#prefix"
	CanonicalURL     string // "@channel#prefix/name#prefix", "" if not assignable
	Abandoned        bool

	// ActivationHeight, ExpirationHeight, and IsControlling mirror
	// internal/claimtrie's view of this claim_id (spec.md §3), kept in
	// sync by the indexer every time a block touches this claim's name.
	ActivationHeight int32
	ExpirationHeight int32
	IsControlling    bool

	// SigningChannelID duplicates Payload.SigningChannelID so callers
	// can filter/join on it without unmarshalling the payload (spec.md
	// §3's claim tuple lists it alongside signature_valid).
	SigningChannelID string

	// StakedAmount mirrors Amount (spec.md §3 names both separately);
	// StakedSupportAmount is the sum of this claim_id's currently
	// active, non-abandoned supports, i.e. EffectiveAmount - Amount.
	StakedAmount        int64
	StakedSupportAmount int64
}

// Support is the indexed view of one support output.
type Support struct {
	ClaimID          string
	Name             string
	Height           int32
	TxPosition       int
	Amount           int64
	Payload          *txmodel.SupportPayload
	SigningChannelID string
	IsSignatureValid bool
	Abandoned        bool
}

// Channel tracks a channel claim's aggregate signing activity and its
// own assigned short URL, which canonical URLs for signed claims are
// built from.
type Channel struct {
	ClaimID            string
	PublicKeyBytes     []byte
	ShortURL           string
	SignedClaimCount   int
	SignedSupportCount int
}

// EventKind identifies what a ClaimEvent represents.
type EventKind int

const (
	EventCreateClaim EventKind = iota
	EventUpdateClaim
	EventAbandonClaim
	EventSupport
	EventAbandonSupport
)

// ClaimEvent is one on-chain state change discovered by the sync
// driver: a claim/update/abandon on a claim_id, or a support/abandon-
// support targeting one. internal/blocksync's TxObserver implementation
// extracts these from transaction scripts; the indexer never parses
// scripts itself (spec.md §9: depend on interfaces, not concrete wire
// formats from a sibling package).
type ClaimEvent struct {
	Kind           EventKind
	ClaimID        string
	Name           string
	Height         int32
	TxPosition     int
	Amount         int64
	Payload        *txmodel.ClaimPayload   // set for EventCreateClaim/EventUpdateClaim
	SupportPayload *txmodel.SupportPayload // optionally set for EventSupport
	FirstInputTxID [32]byte
	ClaimHash      []byte
}
