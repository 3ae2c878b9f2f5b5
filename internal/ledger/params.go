// Package ledger holds the network parameters shared by every other
// component: address version bytes, extended-key version prefixes, and
// the claimtrie constants that govern activation, takeover and expiration.
package ledger

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// Dewie is the smallest LBC unit: 1 LBC = 1e8 dewies.
const Dewie = 100000000

// Claimtrie constants (spec.md §4.8).
const (
	// ActivationDelayDivisor and ActivationDelayCap bound how long a new
	// claim or support must wait before it can take over an existing
	// controlling claim.
	ActivationDelayDivisor = 32
	ActivationDelayCap     = 4032

	// ExpirationWindow is added to a claim's height to get its
	// expiration height.
	ExpirationWindow = 2102400
)

// Params describes one LBRY network (mainnet or regtest). It mirrors
// chaincfg.Params so HD-key derivation can reuse btcutil/hdkeychain
// unmodified.
type Params struct {
	Name string

	// BTCParams carries the version bytes hdkeychain.NewMaster and
	// btcutil address encoding need (HD key IDs, PubKeyHashAddrID).
	BTCParams *chaincfg.Params
}

// MainNet is the LBRY mainnet parameter set. The HD private/public key
// IDs and the P2PKH version byte below are LBRY's own, not Bitcoin's;
// they are layered onto a copy of chaincfg.MainNetParams so hdkeychain's
// Base58Check routines tag extended keys with LBRY's prefixes instead of
// Bitcoin's.
var MainNet = newParams("lbc_mainnet", 0x55, [4]byte{0x01, 0x9c, 0x31, 0xe1}, [4]byte{0x01, 0x9c, 0x28, 0x00})

// RegTest is the LBRY regtest parameter set, used by integration tests
// and by a local lbcd -regtest node.
var RegTest = newParams("lbc_regtest", 0x6f, [4]byte{0x04, 0x35, 0x87, 0xcf}, [4]byte{0x04, 0x35, 0x83, 0x94})

func newParams(name string, pubKeyHashAddrID byte, hdPublicKeyID, hdPrivateKeyID [4]byte) *Params {
	p := chaincfg.MainNetParams
	p.Net = 0
	p.PubKeyHashAddrID = pubKeyHashAddrID
	p.HDPublicKeyID = hdPublicKeyID
	p.HDPrivateKeyID = hdPrivateKeyID
	return &Params{Name: name, BTCParams: &p}
}

// ByName resolves the chain name persisted in a wallet file's "ledger"
// field (spec.md §6).
func ByName(name string) (*Params, bool) {
	switch name {
	case MainNet.Name:
		return MainNet, true
	case RegTest.Name:
		return RegTest, true
	default:
		return nil, false
	}
}

// DewiesToLBC converts an amount in dewies to decimal LBC.
func DewiesToLBC(dewies int64) float64 {
	return float64(dewies) / float64(Dewie)
}

// LBCToDewies converts a decimal LBC amount to the smallest unit.
func LBCToDewies(lbc float64) int64 {
	return int64(lbc * float64(Dewie))
}
