// Package node defines the upstream-node boundary the sync driver reads
// from and the wallet announces addresses to (spec.md §4.6, §9's
// "lookup handles, not shared-ownership graphs").
package node

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// Block is a decoded block: its hash, height, and the transactions it
// carries, in the order the sync driver must process them for claim
// and support extraction (spec.md §4.6).
type Block struct {
	Hash         chainhash.Hash
	Height       int32
	BlockFile    int
	Transactions []*txmodel.Transaction
}

// Source is the upstream node's data surface: numbered block files read
// in order, plus the node's current best height (spec.md §4.6 "The
// upstream node stores blocks in numbered files"). Concrete
// implementations read from a local lbcd/lbrycrd data directory or from
// an RPC connection; this package only depends on the interface, never
// a transport.
type Source interface {
	// BestHeight returns the node's current chain tip height.
	BestHeight(ctx context.Context) (int32, error)
	// BlockFileCount returns how many numbered block files currently
	// exist (blk00000.dat, blk00001.dat, ...).
	BlockFileCount(ctx context.Context) (int, error)
	// ReadBlockFile decodes every block in one numbered file, in file
	// order.
	ReadBlockFile(ctx context.Context, fileIndex int) ([]*Block, error)
	// ReadBlock decodes a single block by height, used for incremental
	// sync once initial sync has caught up to the tip.
	ReadBlock(ctx context.Context, height int32) (*Block, error)
}

// Announcer is implemented by a node connection capable of being told
// which addresses the wallet cares about (spec.md §4.2's Announcer,
// promoted here so internal/addrmgr never imports this package
// directly).
type Announcer interface {
	AnnounceAddresses(ctx context.Context, addrs []string) error
}
