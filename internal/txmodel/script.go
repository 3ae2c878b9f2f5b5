// Package txmodel implements the UTxO transaction and claim-script
// model (spec.md §4.5): standard pay-to-pubkey-hash outputs plus the
// claim/update/support script variants, claim-id derivation, and
// channel signing/verification over claim payloads.
package txmodel

import "fmt"

// Claim-script opcodes, appended ahead of a standard locking script the
// same way LBRY's claimtrie scripts are: `<name> <value> OP_CLAIMNAME
// OP_2DROP OP_DROP <p2pkh-script>`. The claimtrie engine (internal/claimtrie)
// never executes these scripts; it only needs to recognise and extract
// their pushed data, so this package models them as tagged structs
// rather than a full Script-VM byte encoder.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	op2Drop       = 0x6d
	opDrop        = 0x75
	opClaimName   = 0xb5
	opSupportName = 0xb6
	opUpdateName  = 0xb7

	opPushData1 = 0x4c
	opPushData2 = 0x4d
	opPushData4 = 0x4e
)

// ScriptKind identifies which output-script family a Script is.
type ScriptKind int

const (
	ScriptPayPubKeyHash ScriptKind = iota
	ScriptClaimName
	ScriptUpdateClaim
	ScriptSupport
	ScriptSupportData
)

func (k ScriptKind) String() string {
	switch k {
	case ScriptPayPubKeyHash:
		return "pay_pubkey_hash"
	case ScriptClaimName:
		return "claim_name"
	case ScriptUpdateClaim:
		return "update_claim"
	case ScriptSupport:
		return "support"
	case ScriptSupportData:
		return "support_data"
	default:
		return "unknown"
	}
}

// Script is an output script recognised by the core (spec.md §4.5). It
// is a tagged variant rather than separate types so claim-indexing code
// can switch on Kind without type assertions (spec.md §9).
type Script struct {
	Kind ScriptKind

	PubKeyHash []byte // destination of the underlying pay-to-pubkey-hash

	Name         string // claim/support name, for ScriptClaimName/Support*
	ClaimID      string // referenced claim, for ScriptUpdateClaim/Support*
	ClaimPayload []byte // opaque claim record, for ScriptClaimName/ScriptUpdateClaim

	SupportPayload []byte // opaque support record, for ScriptSupportData
}

// PayPubKeyHash builds a plain value-transfer output script.
func PayPubKeyHash(hash160 []byte) Script {
	return Script{Kind: ScriptPayPubKeyHash, PubKeyHash: append([]byte(nil), hash160...)}
}

// PayClaimNamePubKeyHash builds a claim-creation output script (spec.md
// §4.5 "pay_claim_name_pubkey_hash").
func PayClaimNamePubKeyHash(name string, claimPayload, hash160 []byte) Script {
	return Script{
		Kind:         ScriptClaimName,
		Name:         name,
		ClaimPayload: append([]byte(nil), claimPayload...),
		PubKeyHash:   append([]byte(nil), hash160...),
	}
}

// PayUpdateClaimPubKeyHash builds an update output script, which
// consumes a prior claim and inherits its claim_id (spec.md §4.5
// "pay_update_claim_pubkey_hash").
func PayUpdateClaimPubKeyHash(claimID, name string, claimPayload, hash160 []byte) Script {
	return Script{
		Kind:         ScriptUpdateClaim,
		Name:         name,
		ClaimID:      claimID,
		ClaimPayload: append([]byte(nil), claimPayload...),
		PubKeyHash:   append([]byte(nil), hash160...),
	}
}

// PaySupportPubKeyHash builds a plain support output (spec.md §4.5
// "pay_support_pubkey_hash").
func PaySupportPubKeyHash(claimID, name string, hash160 []byte) Script {
	return Script{Kind: ScriptSupport, Name: name, ClaimID: claimID, PubKeyHash: append([]byte(nil), hash160...)}
}

// PaySupportDataPubKeyHash builds a support output carrying an optional
// payload, e.g. an emoji or comment (spec.md §4.5
// "pay_support_data_pubkey_hash").
func PaySupportDataPubKeyHash(claimID, name string, supportPayload, hash160 []byte) Script {
	return Script{
		Kind:           ScriptSupportData,
		Name:           name,
		ClaimID:        claimID,
		SupportPayload: append([]byte(nil), supportPayload...),
		PubKeyHash:     append([]byte(nil), hash160...),
	}
}

// IsClaimOrSupport reports whether the script is any claim/update/support
// variant, as opposed to a plain value transfer. Spending one of these
// to a plain ScriptPayPubKeyHash output is how abandonment is expressed
// (spec.md §4.5: "Abandon is expressed by spending a claim/support
// output to a non-claim script").
func (s Script) IsClaimOrSupport() bool {
	return s.Kind != ScriptPayPubKeyHash
}

// Encode renders the script to its wire bytes. The claimtrie/indexer
// components read the Script struct directly; Encode is what
// Transaction.TxID and Transaction.Serialize use to build each output's
// wire script.
func (s Script) Encode() ([]byte, error) {
	var b []byte
	switch s.Kind {
	case ScriptPayPubKeyHash:
		b = appendP2PKH(b, s.PubKeyHash)
	case ScriptClaimName:
		b = pushData(b, []byte(s.Name))
		b = pushData(b, s.ClaimPayload)
		b = append(b, opClaimName, op2Drop, opDrop)
		b = appendP2PKH(b, s.PubKeyHash)
	case ScriptUpdateClaim:
		b = pushData(b, []byte(s.Name))
		b = pushData(b, mustHexDecode(s.ClaimID))
		b = pushData(b, s.ClaimPayload)
		b = append(b, opUpdateName, op2Drop, opDrop)
		b = appendP2PKH(b, s.PubKeyHash)
	case ScriptSupport:
		b = pushData(b, []byte(s.Name))
		b = pushData(b, mustHexDecode(s.ClaimID))
		b = append(b, opSupportName, opDrop, opDrop)
		b = appendP2PKH(b, s.PubKeyHash)
	case ScriptSupportData:
		b = pushData(b, []byte(s.Name))
		b = pushData(b, mustHexDecode(s.ClaimID))
		b = pushData(b, s.SupportPayload)
		b = append(b, opSupportName, op2Drop, opDrop)
		b = appendP2PKH(b, s.PubKeyHash)
	default:
		return nil, fmt.Errorf("txmodel: unknown script kind %v", s.Kind)
	}
	return b, nil
}

func appendP2PKH(b, hash160 []byte) []byte {
	b = append(b, opDup, opHash160)
	b = pushData(b, hash160)
	return append(b, opEqualVerify, opCheckSig)
}

// pushData encodes a standard Bitcoin-style script push: a one-byte
// length prefix for data up to 75 bytes, else an OP_PUSHDATA1/2/4
// opcode followed by the length.
func pushData(b, data []byte) []byte {
	n := len(data)
	switch {
	case n <= 75:
		b = append(b, byte(n))
	case n <= 0xff:
		b = append(b, opPushData1, byte(n))
	case n <= 0xffff:
		b = append(b, opPushData2, byte(n), byte(n>>8))
	default:
		b = append(b, opPushData4, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	return append(b, data...)
}

func mustHexDecode(s string) []byte {
	if s == "" {
		return nil
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
