package txmodel

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Outpoint identifies a previous output being spent.
type Outpoint struct {
	TxID chainhash.Hash
	Vout uint32
}

// Input is a transaction input: the outpoint it spends and its
// signature script (spec.md §4.5).
type Input struct {
	PrevOut         Outpoint
	SignatureScript []byte
	Sequence        uint32
}

// Output is a transaction output: an amount in dewies and a script
// (spec.md §4.5).
type Output struct {
	Amount int64
	Script Script
}

// Transaction is the standard UTxO shape: version, inputs, outputs,
// locktime (spec.md §4.5). It wraps wire.MsgTx for wire-format
// serialization and hashing, reusing btcd's own transaction envelope
// since LBRY transactions are otherwise standard Bitcoin transactions
// whose scripts happen to carry claimtrie opcodes.
type Transaction struct {
	Version  int32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// New constructs an empty transaction at the current standard version.
func New() *Transaction {
	return &Transaction{Version: 1}
}

// AddInput appends an input spending prevOut.
func (t *Transaction) AddInput(prevOut Outpoint, sigScript []byte) {
	t.Inputs = append(t.Inputs, Input{PrevOut: prevOut, SignatureScript: sigScript, Sequence: wire.MaxTxInSequenceNum})
}

// AddOutput appends an output.
func (t *Transaction) AddOutput(amount int64, script Script) {
	t.Outputs = append(t.Outputs, Output{Amount: amount, Script: script})
}

// wireMsg renders the transaction to a wire.MsgTx for hashing/serialization.
func (t *Transaction) wireMsg() (*wire.MsgTx, error) {
	msg := wire.NewMsgTx(t.Version)
	msg.LockTime = t.LockTime
	for _, in := range t.Inputs {
		txid := in.PrevOut.TxID
		msg.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&txid, in.PrevOut.Vout), in.SignatureScript, nil))
		msg.TxIn[len(msg.TxIn)-1].Sequence = in.Sequence
	}
	for _, out := range t.Outputs {
		script, err := out.Script.Encode()
		if err != nil {
			return nil, err
		}
		msg.AddTxOut(wire.NewTxOut(out.Amount, script))
	}
	return msg, nil
}

// TxID returns the transaction's double-SHA256 identifier as a
// chainhash.Hash in internal byte order; its String method renders the
// usual reversed display form (spec.md §3).
func (t *Transaction) TxID() (chainhash.Hash, error) {
	msg, err := t.wireMsg()
	if err != nil {
		return chainhash.Hash{}, err
	}
	return msg.TxHash(), nil
}

// Serialize renders the transaction to its wire bytes.
func (t *Transaction) Serialize() ([]byte, error) {
	msg, err := t.wireMsg()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, msg.SerializeSize())
	w := &byteSliceWriter{buf: buf}
	if err := msg.Serialize(w); err != nil {
		return nil, err
	}
	return w.buf, nil
}

type byteSliceWriter struct{ buf []byte }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// ClaimID computes claim_id = reverse(sha256(sha256(txid || vout))),
// the exact rule spec.md §4.5 specifies. txid is taken in its internal
// (non-reversed) byte order, matching chainhash.Hash's own storage
// convention, and vout is encoded little-endian.
func ClaimID(txid chainhash.Hash, vout uint32) [32]byte {
	buf := make([]byte, chainhash.HashSize+4)
	copy(buf, txid[:])
	binary.LittleEndian.PutUint32(buf[chainhash.HashSize:], vout)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	var out [32]byte
	for i := range second {
		out[i] = second[len(second)-1-i]
	}
	return out
}

// ClaimIDHex hex-encodes a claim id in the byte order claims are
// conventionally displayed.
func ClaimIDHex(id [32]byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range id {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

// SigningHash computes the digest a channel signs over: sha256 of the
// first input's reversed txid, the claim hash, and the claim's
// serialized form with its signature fields cleared (spec.md §4.5
// "Signing").
func SigningHash(firstInputTxID chainhash.Hash, claimHash, serializedClaimWithoutSignature []byte) [32]byte {
	reversed := make([]byte, chainhash.HashSize)
	for i, b := range firstInputTxID {
		reversed[chainhash.HashSize-1-i] = b
	}
	buf := make([]byte, 0, len(reversed)+len(claimHash)+len(serializedClaimWithoutSignature))
	buf = append(buf, reversed...)
	buf = append(buf, claimHash...)
	buf = append(buf, serializedClaimWithoutSignature...)
	return sha256.Sum256(buf)
}

// ErrVoutOutOfRange is returned when an output index does not exist on
// a transaction.
var ErrVoutOutOfRange = fmt.Errorf("txmodel: vout out of range")
