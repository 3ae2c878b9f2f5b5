// Package claimtrie implements the claimtrie engine (spec.md §4.8): the
// rules that decide which claim on a name is controlling, when new
// claims and supports activate, and when claims expire.
package claimtrie

import "github.com/lbryio/lbcwallet/internal/ledger"

// Claim is the claimtrie's view of one claim: just enough state to
// compute activation, takeover, and expiration. The full claim record
// (payload, signature, short/canonical URL) lives in internal/claimindex;
// this package only needs identity, height, and amount (spec.md §9:
// "model as lookup handles, not shared-ownership graphs").
type Claim struct {
	ClaimID          string
	Name             string
	Amount           int64
	Height           int32 // the height the claim was created/updated at
	ActivationHeight int32
	TakeoverHeight   int32 // height at which this claim last became controlling, 0 if never
	TxPosition       int   // transaction order within Height's block, for tie-breaks
	Abandoned        bool
}

// Support is a support transaction targeting a ClaimID. Like Claim, it
// carries only the fields the trie's arithmetic needs.
type Support struct {
	ClaimID          string
	Amount           int64
	Height           int32
	ActivationHeight int32
	TxPosition       int
	Abandoned        bool
}

// ExpirationHeight returns the height at which c leaves the trie
// (spec.md §4.8 "expiration_height = height + 2102400").
func (c Claim) ExpirationHeight() int32 {
	return c.Height + ledger.ExpirationWindow
}

// ExpirationHeight returns the height at which s stops counting toward
// its claim's effective amount.
func (s Support) ExpirationHeight() int32 {
	return s.Height + ledger.ExpirationWindow
}

// ActivationDelay computes h_act - h_c for a claim or support entering
// at newHeight when controlHeight is the height of the name's current
// controlling claim (spec.md §4.8):
//
//	h_act = h_c + min(floor((h_c - h_ctrl) / 32), 4032)
//
// If hasController is false (no controlling claim exists yet),
// activation is immediate.
func ActivationDelay(newHeight, controlHeight int32, hasController bool) int32 {
	if !hasController {
		return 0
	}
	delta := newHeight - controlHeight
	if delta < 0 {
		delta = 0
	}
	delay := delta / ledger.ActivationDelayDivisor
	if delay > ledger.ActivationDelayCap {
		delay = ledger.ActivationDelayCap
	}
	return delay
}
