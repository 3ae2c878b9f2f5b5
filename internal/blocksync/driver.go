// Package blocksync implements the block-sync driver (spec.md §4.6):
// it moves the claim index from its persisted tip to the node's best
// height, streaming a fixed taxonomy of progress events, and switches
// from file-granular initial sync to block-granular incremental sync
// once caught up.
package blocksync

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lbryio/lbcwallet/internal/node"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// TxObserver receives every transaction in sync order. ClaimObserver
// (claimobserver.go) is this package's implementation, feeding
// internal/claimindex; Driver itself only calls the interface. No TXO
// spend-tracker observer is implemented.
type TxObserver interface {
	ObserveTransaction(ctx context.Context, block *node.Block, tx *txmodel.Transaction) error
}

// TipStore persists the sync driver's progress so a restart resumes
// instead of re-scanning from genesis.
type TipStore interface {
	GetSyncHeight(ctx context.Context) (int32, error)
	SetSyncHeight(ctx context.Context, height int32) error
}

// Driver runs the sync loop described in spec.md §4.6.
type Driver struct {
	source    node.Source
	tips      TipStore
	observers []TxObserver
	events    chan Event
	log       zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New constructs a driver. events may be nil, in which case progress
// updates are dropped; callers that want them should pass a buffered
// channel they drain continuously.
func New(source node.Source, tips TipStore, observers []TxObserver, events chan Event, log zerolog.Logger) *Driver {
	return &Driver{source: source, tips: tips, observers: observers, events: events, log: log}
}

func (d *Driver) emit(ev Event) {
	if d.events == nil {
		return
	}
	select {
	case d.events <- ev:
	default:
		d.log.Warn().Str("event", string(ev.ID)).Msg("blocksync: progress channel full, dropping event")
	}
}

// Start runs the sync loop until the node's best height is reached,
// then returns. Call it from its own goroutine for continuous
// incremental sync; the caller is expected to re-invoke Start
// periodically (e.g. on every new-block notification) once initial
// sync finishes (spec.md §4.6 "Incremental").
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("blocksync: already running")
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		close(d.doneCh)
		d.mu.Unlock()
	}()

	d.emit(Event{ID: EventBlockInit})

	if err := d.initialSync(ctx); err != nil {
		return err
	}
	return d.incrementalSync(ctx)
}

// Stop signals the running sync loop to halt at the next file boundary
// and blocks until it has (spec.md §4.6: "must finish the current file
// boundary before returning").
func (d *Driver) Stop() {
	d.mu.Lock()
	running := d.running
	stopCh := d.stopCh
	doneCh := d.doneCh
	d.mu.Unlock()
	if !running {
		return
	}
	close(stopCh)
	<-doneCh
}

func (d *Driver) stopRequested() bool {
	select {
	case <-d.stopCh:
		return true
	default:
		return false
	}
}

// initialSync reads block files in order until the node's last
// complete file, publishing one progress event per file (spec.md §4.6
// "Initial sync").
func (d *Driver) initialSync(ctx context.Context) error {
	height, err := d.tips.GetSyncHeight(ctx)
	if err != nil {
		return fmt.Errorf("blocksync: get sync height: %w", err)
	}
	fileCount, err := d.source.BlockFileCount(ctx)
	if err != nil {
		return fmt.Errorf("blocksync: block file count: %w", err)
	}

	startFile := height / blocksPerFileEstimate
	for fileIndex := startFile; fileIndex < fileCount; fileIndex++ {
		if d.stopRequested() {
			return nil
		}

		blocks, err := d.source.ReadBlockFile(ctx, fileIndex)
		if err != nil {
			return fmt.Errorf("blocksync: read block file %d: %w", fileIndex, err)
		}

		totalTxs := int64(0)
		for _, b := range blocks {
			totalTxs += int64(len(b.Transactions))
		}
		var doneTxs int64
		for _, b := range blocks {
			if b.Height <= height {
				continue
			}
			if err := d.processBlock(ctx, b); err != nil {
				return err
			}
			doneTxs += int64(len(b.Transactions))
			height = b.Height
			d.emit(Event{ID: EventBlockMain, Done: doneTxs, Total: totalTxs, Units: "txs"})
		}
		if err := d.tips.SetSyncHeight(ctx, height); err != nil {
			return fmt.Errorf("blocksync: set sync height: %w", err)
		}
		syncHeight.Set(float64(height))
		d.emit(Event{ID: EventBlockFile, Done: int64(fileIndex + 1), Total: int64(fileCount), Units: "blocks"})
	}
	d.emit(TerminalEvent(EventBlockFile, int64(fileCount), "blocks"))
	return nil
}

// blocksPerFileEstimate is only used to pick a reasonable starting file
// index for resumed initial sync; an exact match isn't required since
// initialSync skips any block at or below the persisted tip.
const blocksPerFileEstimate = 128

// incrementalSync reads one new block at a time once caught up to the
// node's best height, publishing one event per block (spec.md §4.6
// "Incremental").
func (d *Driver) incrementalSync(ctx context.Context) error {
	height, err := d.tips.GetSyncHeight(ctx)
	if err != nil {
		return fmt.Errorf("blocksync: get sync height: %w", err)
	}
	best, err := d.source.BestHeight(ctx)
	if err != nil {
		return fmt.Errorf("blocksync: best height: %w", err)
	}

	for height < best {
		if d.stopRequested() {
			return nil
		}
		block, err := d.source.ReadBlock(ctx, height+1)
		if err != nil {
			return fmt.Errorf("blocksync: read block %d: %w", height+1, err)
		}
		if err := d.processBlock(ctx, block); err != nil {
			return err
		}
		height = block.Height
		if err := d.tips.SetSyncHeight(ctx, height); err != nil {
			return fmt.Errorf("blocksync: set sync height: %w", err)
		}
		syncHeight.Set(float64(height))
		d.emit(Event{ID: EventTXOMain, BlockFile: block.BlockFile, Height: block.Height})
	}
	return nil
}

func (d *Driver) processBlock(ctx context.Context, block *node.Block) error {
	for _, tx := range block.Transactions {
		for _, obs := range d.observers {
			if err := obs.ObserveTransaction(ctx, block, tx); err != nil {
				return fmt.Errorf("blocksync: observe tx in block %d: %w", block.Height, err)
			}
		}
	}
	return nil
}
