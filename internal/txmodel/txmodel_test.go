package txmodel

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lbryio/lbcwallet/internal/bip32"
	"github.com/lbryio/lbcwallet/internal/ledger"
)

func testKey(t *testing.T) *bip32.PrivateKey {
	t.Helper()
	seed := bytes.Repeat([]byte{0x07}, 32)
	key, err := bip32.FromSeed(ledger.MainNet, seed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	return key
}

func TestClaimPayloadRoundTrip(t *testing.T) {
	claim := &ClaimPayload{
		Kind:        ClaimKindStream,
		Title:       "A Test Video",
		Description: "a description",
		Author:      "someone",
	}
	encoded := claim.Marshal()

	decoded, err := UnmarshalClaimPayload(encoded)
	if err != nil {
		t.Fatalf("UnmarshalClaimPayload: %v", err)
	}
	if decoded.Kind != claim.Kind || decoded.Title != claim.Title ||
		decoded.Description != claim.Description || decoded.Author != claim.Author {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, claim)
	}
}

func TestClaimPayloadMarshalWithoutSignatureOmitsSignature(t *testing.T) {
	claim := &ClaimPayload{Kind: ClaimKindStream, Title: "t", Signature: []byte{1, 2, 3}}
	unsigned := claim.MarshalWithoutSignature()

	decoded, err := UnmarshalClaimPayload(unsigned)
	if err != nil {
		t.Fatalf("UnmarshalClaimPayload: %v", err)
	}
	if len(decoded.Signature) != 0 {
		t.Errorf("MarshalWithoutSignature: signature leaked through: %x", decoded.Signature)
	}
}

func TestSupportPayloadRoundTrip(t *testing.T) {
	support := &SupportPayload{Emoji: "🔥", Comment: "nice!"}
	encoded := support.Marshal()
	decoded, err := UnmarshalSupportPayload(encoded)
	if err != nil {
		t.Fatalf("UnmarshalSupportPayload: %v", err)
	}
	if decoded.Emoji != support.Emoji || decoded.Comment != support.Comment {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, support)
	}
}

func TestClaimIDIsDeterministic(t *testing.T) {
	var txid chainhash.Hash
	copy(txid[:], bytes.Repeat([]byte{0xAB}, 32))

	id1 := ClaimID(txid, 0)
	id2 := ClaimID(txid, 0)
	if id1 != id2 {
		t.Error("ClaimID is not deterministic for identical inputs")
	}

	id3 := ClaimID(txid, 1)
	if id1 == id3 {
		t.Error("ClaimID should differ by vout")
	}
	if len(ClaimIDHex(id1)) != 64 {
		t.Errorf("ClaimIDHex length = %d, want 64", len(ClaimIDHex(id1)))
	}
}

func TestTransactionTxIDChangesWithContent(t *testing.T) {
	tx1 := New()
	tx1.AddOutput(1000, PayPubKeyHash(bytes.Repeat([]byte{1}, 20)))
	id1, err := tx1.TxID()
	if err != nil {
		t.Fatalf("TxID: %v", err)
	}

	tx2 := New()
	tx2.AddOutput(2000, PayPubKeyHash(bytes.Repeat([]byte{1}, 20)))
	id2, err := tx2.TxID()
	if err != nil {
		t.Fatalf("TxID: %v", err)
	}

	if id1 == id2 {
		t.Error("TxID should differ for transactions with different output amounts")
	}
}

func TestClaimScriptEncodeRoundTripsThroughP2PKH(t *testing.T) {
	hash160 := bytes.Repeat([]byte{0x42}, 20)
	script := PayClaimNamePubKeyHash("a-name", []byte("payload"), hash160)
	encoded, err := script.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// the tail of the script should be the standard P2PKH template.
	wantTail := appendP2PKH(nil, hash160)
	if !bytes.HasSuffix(encoded, wantTail) {
		t.Error("claim script encoding missing the standard pay-to-pubkey-hash tail")
	}
	if !script.IsClaimOrSupport() {
		t.Error("IsClaimOrSupport: claim script should report true")
	}
	if PayPubKeyHash(hash160).IsClaimOrSupport() {
		t.Error("IsClaimOrSupport: plain output should report false")
	}
}

func TestSignAndVerifyClaim(t *testing.T) {
	channelKey := testKey(t)
	pub, err := channelKey.Neuter()
	if err != nil {
		t.Fatalf("Neuter: %v", err)
	}

	var firstInputTxID chainhash.Hash
	copy(firstInputTxID[:], bytes.Repeat([]byte{0x11}, 32))
	outpoint := Outpoint{TxID: firstInputTxID, Vout: 0}
	claimHash := bytes.Repeat([]byte{0x22}, 20)

	claim := &ClaimPayload{Kind: ClaimKindStream, Title: "signed claim"}
	signed, err := SignClaim(channelKey, outpoint, claimHash, claim, "deadbeef")
	if err != nil {
		t.Fatalf("SignClaim: %v", err)
	}
	if len(signed.Signature) == 0 {
		t.Fatal("SignClaim: expected a non-empty signature")
	}

	ok, err := VerifyClaim(pub, outpoint, claimHash, signed)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if !ok {
		t.Error("VerifyClaim: expected valid signature to verify")
	}

	tampered := *signed
	tampered.Title = "a different title"
	ok, err = VerifyClaim(pub, outpoint, claimHash, &tampered)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if ok {
		t.Error("VerifyClaim: tampered claim should not verify")
	}
}
