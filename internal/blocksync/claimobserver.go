package blocksync

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/lbryio/lbcwallet/internal/claimindex"
	"github.com/lbryio/lbcwallet/internal/node"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

// ClaimRef identifies what a previously observed claim/support output
// belongs to, so a later spend of it can be recognised as an abandon
// (spec.md §4.5: "Abandon is expressed by spending a claim/support
// output to a non-claim script").
type ClaimRef struct {
	ClaimID   string
	Name      string
	IsSupport bool
}

// OutpointIndex remembers which outputs are claim/support outputs, so
// ClaimObserver can recognise a spend of one as an abandonment without
// rescanning history. internal/store implements it.
type OutpointIndex interface {
	PutClaimOutput(ctx context.Context, txid string, vout uint32, ref ClaimRef) error
	GetClaimOutput(ctx context.Context, txid string, vout uint32) (ClaimRef, bool, error)
}

// ClaimObserver is the concrete TxObserver that turns claim/update/
// support/abandon output scripts into internal/claimindex.ClaimEvents
// and drives the indexer with them, one block at a time (spec.md §4.7).
// It is the only thing in the module that translates internal/txmodel's
// wire-level Script variants into the indexer's event shape (spec.md
// §9: the indexer itself never parses scripts).
type ClaimObserver struct {
	indexer   *claimindex.Indexer
	outpoints OutpointIndex

	pending  []claimindex.ClaimEvent
	position int
}

// NewClaimObserver constructs a ClaimObserver.
func NewClaimObserver(indexer *claimindex.Indexer, outpoints OutpointIndex) *ClaimObserver {
	return &ClaimObserver{indexer: indexer, outpoints: outpoints}
}

// ObserveTransaction implements blocksync.TxObserver. It buffers events
// for every transaction in the block and flushes them as one batch to
// the indexer once the block's last transaction has been seen, so
// same-height collapsing (spec.md §4.8) sees the whole block at once.
func (o *ClaimObserver) ObserveTransaction(ctx context.Context, block *node.Block, tx *txmodel.Transaction) error {
	txid, err := tx.TxID()
	if err != nil {
		return fmt.Errorf("blocksync: claim observer: tx id: %w", err)
	}

	var firstInputTxID [32]byte
	if len(tx.Inputs) > 0 {
		firstInputTxID = [32]byte(tx.Inputs[0].PrevOut.TxID)
	}

	touched := touchedClaimIDs(tx)
	if err := o.observeAbandons(ctx, block.Height, tx, touched); err != nil {
		return err
	}
	if err := o.observeOutputs(ctx, block.Height, txid, firstInputTxID, tx); err != nil {
		return err
	}

	if isLastTransaction(block, tx) {
		events := o.pending
		o.pending = nil
		o.position = 0
		return o.indexer.ProcessBatch(ctx, block.Height, block.Height, events)
	}
	return nil
}

// touchedClaimIDs collects every claim_id an update/support output of
// tx itself references, so observeAbandons can tell a real abandon
// (spending a claim output to a plain script) apart from an update
// transaction (spending a claim output and recreating the same
// claim_id in the same transaction).
func touchedClaimIDs(tx *txmodel.Transaction) map[string]bool {
	touched := make(map[string]bool)
	for _, out := range tx.Outputs {
		switch out.Script.Kind {
		case txmodel.ScriptUpdateClaim, txmodel.ScriptSupport, txmodel.ScriptSupportData:
			touched[out.Script.ClaimID] = true
		}
	}
	return touched
}

// observeAbandons recognises spends of previously indexed claim/support
// outputs that are NOT superseded by an update/support output for the
// same claim_id later in this same transaction (spec.md §4.5: "Abandon
// is expressed by spending a claim/support output to a non-claim
// script").
func (o *ClaimObserver) observeAbandons(ctx context.Context, height int32, tx *txmodel.Transaction, touched map[string]bool) error {
	for _, in := range tx.Inputs {
		ref, ok, err := o.outpoints.GetClaimOutput(ctx, in.PrevOut.TxID.String(), in.PrevOut.Vout)
		if err != nil {
			return fmt.Errorf("blocksync: claim observer: outpoint lookup: %w", err)
		}
		if !ok || touched[ref.ClaimID] {
			continue
		}
		kind := claimindex.EventAbandonClaim
		if ref.IsSupport {
			kind = claimindex.EventAbandonSupport
		}
		o.pending = append(o.pending, claimindex.ClaimEvent{
			Kind: kind, ClaimID: ref.ClaimID, Name: ref.Name, Height: height, TxPosition: o.position,
		})
		o.position++
	}
	return nil
}

func (o *ClaimObserver) observeOutputs(ctx context.Context, height int32, txid chainhash.Hash, firstInputTxID [32]byte, tx *txmodel.Transaction) error {
	for vout, out := range tx.Outputs {
		switch out.Script.Kind {
		case txmodel.ScriptClaimName:
			claimIDBytes := txmodel.ClaimID(txid, uint32(vout))
			claimID := txmodel.ClaimIDHex(claimIDBytes)
			payload, err := txmodel.UnmarshalClaimPayload(out.Script.ClaimPayload)
			if err != nil {
				return fmt.Errorf("blocksync: claim observer: unmarshal claim payload: %w", err)
			}
			if err := o.outpoints.PutClaimOutput(ctx, txid.String(), uint32(vout), ClaimRef{ClaimID: claimID, Name: out.Script.Name}); err != nil {
				return err
			}
			o.pending = append(o.pending, claimindex.ClaimEvent{
				Kind: claimindex.EventCreateClaim, ClaimID: claimID, Name: out.Script.Name,
				Height: height, TxPosition: o.position, Amount: out.Amount,
				Payload: payload, FirstInputTxID: firstInputTxID,
				ClaimHash: claimContentHash(claimID, out.Script.Name),
			})
			o.position++

		case txmodel.ScriptUpdateClaim:
			payload, err := txmodel.UnmarshalClaimPayload(out.Script.ClaimPayload)
			if err != nil {
				return fmt.Errorf("blocksync: claim observer: unmarshal claim payload: %w", err)
			}
			if err := o.outpoints.PutClaimOutput(ctx, txid.String(), uint32(vout), ClaimRef{ClaimID: out.Script.ClaimID, Name: out.Script.Name}); err != nil {
				return err
			}
			o.pending = append(o.pending, claimindex.ClaimEvent{
				Kind: claimindex.EventUpdateClaim, ClaimID: out.Script.ClaimID, Name: out.Script.Name,
				Height: height, TxPosition: o.position, Amount: out.Amount,
				Payload: payload, FirstInputTxID: firstInputTxID,
				ClaimHash: claimContentHash(out.Script.ClaimID, out.Script.Name),
			})
			o.position++

		case txmodel.ScriptSupport, txmodel.ScriptSupportData:
			var supportPayload *txmodel.SupportPayload
			if len(out.Script.SupportPayload) > 0 {
				p, err := txmodel.UnmarshalSupportPayload(out.Script.SupportPayload)
				if err != nil {
					return fmt.Errorf("blocksync: claim observer: unmarshal support payload: %w", err)
				}
				supportPayload = p
			}
			if err := o.outpoints.PutClaimOutput(ctx, txid.String(), uint32(vout), ClaimRef{ClaimID: out.Script.ClaimID, Name: out.Script.Name, IsSupport: true}); err != nil {
				return err
			}
			o.pending = append(o.pending, claimindex.ClaimEvent{
				Kind: claimindex.EventSupport, ClaimID: out.Script.ClaimID, Name: out.Script.Name,
				Height: height, TxPosition: o.position, Amount: out.Amount,
				SupportPayload: supportPayload, FirstInputTxID: firstInputTxID,
				ClaimHash: claimContentHash(out.Script.ClaimID, out.Script.Name),
			})
			o.position++
		}
	}
	return nil
}

func isLastTransaction(block *node.Block, tx *txmodel.Transaction) bool {
	n := len(block.Transactions)
	return n > 0 && block.Transactions[n-1] == tx
}

// claimContentHash derives the stable "claim_hash" signing input
// spec.md §4.5 requires alongside the first input txid: sha256 of the
// claim_id and name, both of which are invariant across updates (unlike
// the payload itself), so a channel's signature over a claim remains
// verifiable after every update that keeps the same claim_id/name.
func claimContentHash(claimID, name string) []byte {
	sum := sha256.Sum256([]byte(claimID + name))
	return sum[:]
}
