package store

import (
	"context"
	"testing"

	"github.com/btcsuite/btcutil"

	"github.com/lbryio/lbcwallet/internal/addrmgr"
	"github.com/lbryio/lbcwallet/internal/bip32"
	"github.com/lbryio/lbcwallet/internal/blocksync"
	"github.com/lbryio/lbcwallet/internal/claimindex"
	"github.com/lbryio/lbcwallet/internal/ledger"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddKeysAndAddressQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	recs := []addrmgr.AddressRecord{
		{Address: "addr0", N: 0, UsedTimes: 0},
		{Address: "addr1", N: 1, UsedTimes: 2},
		{Address: "addr2", N: 2, UsedTimes: 0},
	}
	if err := db.AddKeys(ctx, "acct1", bip32.RECEIVE, recs); err != nil {
		t.Fatalf("AddKeys: %v", err)
	}

	has, err := db.HasAnyAddress(ctx, "acct1", bip32.RECEIVE)
	if err != nil || !has {
		t.Fatalf("HasAnyAddress = %v, %v, want true", has, err)
	}
	if has, _ := db.HasAnyAddress(ctx, "acct1", bip32.CHANGE); has {
		t.Errorf("HasAnyAddress on the change chain should be false")
	}

	asc, err := db.AddressesAsc(ctx, "acct1", bip32.RECEIVE)
	if err != nil {
		t.Fatalf("AddressesAsc: %v", err)
	}
	if len(asc) != 3 || asc[0].Address != "addr0" || asc[2].Address != "addr2" {
		t.Errorf("AddressesAsc = %+v, want ascending addr0..addr2", asc)
	}

	desc, err := db.AddressesDesc(ctx, "acct1", bip32.RECEIVE, 1)
	if err != nil {
		t.Fatalf("AddressesDesc: %v", err)
	}
	if len(desc) != 1 || desc[0].Address != "addr2" {
		t.Errorf("AddressesDesc(limit 1) = %+v, want [addr2]", desc)
	}

	usable, err := db.UsableAddresses(ctx, "acct1", bip32.RECEIVE, 1, 10)
	if err != nil {
		t.Fatalf("UsableAddresses: %v", err)
	}
	for _, r := range usable {
		if r.Address == "addr1" {
			t.Errorf("UsableAddresses should exclude addr1, which is used over the max-uses limit")
		}
	}
	if len(usable) != 2 {
		t.Errorf("UsableAddresses = %d records, want 2", len(usable))
	}
}

func TestBalanceRespectsConfirmationsAndClaimFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SetSyncHeight(ctx, 100); err != nil {
		t.Fatalf("SetSyncHeight: %v", err)
	}
	if err := db.PutUTXO(ctx, UTXO{AccountID: "acct1", TxID: "t1", Vout: 0, Amount: 10, Height: 99}); err != nil {
		t.Fatalf("PutUTXO: %v", err)
	}
	if err := db.PutUTXO(ctx, UTXO{AccountID: "acct1", TxID: "t2", Vout: 0, Amount: 20, Height: 100}); err != nil {
		t.Fatalf("PutUTXO: %v", err)
	}
	if err := db.PutUTXO(ctx, UTXO{AccountID: "acct1", TxID: "t3", Vout: 0, Amount: 5, Height: 100, IsClaim: true}); err != nil {
		t.Fatalf("PutUTXO: %v", err)
	}

	bal, err := db.Balance(ctx, "acct1", 2, true)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 10 {
		t.Errorf("Balance(confirmations=2, includeClaims=true) = %d, want 10 (only t1 at height 99 has 2+ confirmations)", bal)
	}

	bal, err = db.Balance(ctx, "acct1", 1, true)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 35 {
		t.Errorf("Balance(confirmations=1, includeClaims=true) = %d, want 35 (all three outputs have 1+ confirmations)", bal)
	}

	bal, err = db.Balance(ctx, "acct1", 1, false)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 30 {
		t.Errorf("Balance(includeClaims=false) = %d, want 30 (excludes the claim output)", bal)
	}

	if err := db.MarkSpent(ctx, "t1", 0, 101); err != nil {
		t.Fatalf("MarkSpent: %v", err)
	}
	bal, err = db.Balance(ctx, "acct1", 1, true)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 25 {
		t.Errorf("Balance after spending t1 = %d, want 25", bal)
	}
}

func TestSyncTipDefaultsToNegativeOne(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	h, err := db.GetSyncHeight(ctx)
	if err != nil {
		t.Fatalf("GetSyncHeight: %v", err)
	}
	if h != -1 {
		t.Errorf("GetSyncHeight on a fresh database = %d, want -1", h)
	}

	if err := db.SetSyncHeight(ctx, 42); err != nil {
		t.Fatalf("SetSyncHeight: %v", err)
	}
	h, err = db.GetSyncHeight(ctx)
	if err != nil || h != 42 {
		t.Errorf("GetSyncHeight after SetSyncHeight(42) = %d, %v, want 42", h, err)
	}

	if err := db.SetSyncHeight(ctx, 43); err != nil {
		t.Fatalf("SetSyncHeight: %v", err)
	}
	h, _ = db.GetSyncHeight(ctx)
	if h != 43 {
		t.Errorf("GetSyncHeight after a second SetSyncHeight = %d, want 43 (overwrite, not insert)", h)
	}
}

func TestChannelKeyUsage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	hash := []byte{1, 2, 3, 4}
	used, err := db.IsChannelKeyUsed(ctx, hash)
	if err != nil || used {
		t.Fatalf("IsChannelKeyUsed on an unseen hash = %v, %v, want false", used, err)
	}
	if err := db.MarkChannelKeyUsed(ctx, hash); err != nil {
		t.Fatalf("MarkChannelKeyUsed: %v", err)
	}
	used, err = db.IsChannelKeyUsed(ctx, hash)
	if err != nil || !used {
		t.Fatalf("IsChannelKeyUsed after MarkChannelKeyUsed = %v, %v, want true", used, err)
	}
}

func TestClaimRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &claimindex.Claim{
		ClaimID:          "claimA",
		Name:             "foo",
		Height:           10,
		TxPosition:       1,
		Amount:           500,
		Payload:          &txmodel.ClaimPayload{Kind: txmodel.ClaimKindStream, Title: "hi"},
		FirstInputTxID:   [32]byte{9},
		ClaimHash:        []byte("hash"),
		IsSignatureValid: true,
		ShortURL:         "foo#c",
		CanonicalURL:     "@alice#1/foo#c",
	}
	if err := db.PutClaim(ctx, c); err != nil {
		t.Fatalf("PutClaim: %v", err)
	}

	got, ok, err := db.GetClaim(ctx, "claimA")
	if err != nil || !ok {
		t.Fatalf("GetClaim: %v, %v", ok, err)
	}
	if got.Name != "foo" || got.Amount != 500 || got.ShortURL != "foo#c" {
		t.Errorf("GetClaim = %+v, want matching foo/500/foo#c", got)
	}
	if got.Payload.Title != "hi" {
		t.Errorf("GetClaim payload.Title = %q, want hi", got.Payload.Title)
	}
	if !got.IsSignatureValid {
		t.Errorf("GetClaim.IsSignatureValid = false, want true")
	}

	onName, err := db.ClaimsOnName(ctx, "foo")
	if err != nil || len(onName) != 1 {
		t.Fatalf("ClaimsOnName = %v, %v, want one claim", onName, err)
	}

	c.Abandoned = true
	if err := db.PutClaim(ctx, c); err != nil {
		t.Fatalf("PutClaim (abandon): %v", err)
	}
	onName, err = db.ClaimsOnName(ctx, "foo")
	if err != nil || len(onName) != 0 {
		t.Errorf("ClaimsOnName after abandon = %v, want empty", onName)
	}
}

func TestClaimRoundTripPreservesTrieDerivedFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &claimindex.Claim{
		ClaimID:             "claimB",
		Name:                "foo",
		Height:              10,
		Amount:              500,
		Payload:             &txmodel.ClaimPayload{Kind: txmodel.ClaimKindStream},
		ActivationHeight:    10,
		ExpirationHeight:    10 + ledger.ExpirationWindow,
		IsControlling:       true,
		SigningChannelID:    "chan1",
		StakedAmount:        500,
		StakedSupportAmount: 50,
	}
	if err := db.PutClaim(ctx, c); err != nil {
		t.Fatalf("PutClaim: %v", err)
	}
	got, ok, err := db.GetClaim(ctx, "claimB")
	if err != nil || !ok {
		t.Fatalf("GetClaim: %v, %v", ok, err)
	}
	if got.ActivationHeight != 10 || got.ExpirationHeight != 10+ledger.ExpirationWindow {
		t.Errorf("activation/expiration = %d/%d, want 10/%d", got.ActivationHeight, got.ExpirationHeight, 10+ledger.ExpirationWindow)
	}
	if !got.IsControlling {
		t.Errorf("IsControlling = false, want true")
	}
	if got.SigningChannelID != "chan1" || got.StakedSupportAmount != 50 {
		t.Errorf("SigningChannelID/StakedSupportAmount = %q/%d, want chan1/50", got.SigningChannelID, got.StakedSupportAmount)
	}
}

func TestTakeoverHistoryIsAppendOnlyAndOrdered(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.PutTakeover(ctx, "foo", "claimA", 113); err != nil {
		t.Fatalf("PutTakeover: %v", err)
	}
	if err := db.PutTakeover(ctx, "foo", "claimB", 524); err != nil {
		t.Fatalf("PutTakeover: %v", err)
	}
	history, err := db.Takeovers(ctx, "foo")
	if err != nil {
		t.Fatalf("Takeovers: %v", err)
	}
	if len(history) != 2 || history[0].ClaimID != "claimA" || history[1].ClaimID != "claimB" {
		t.Errorf("Takeovers = %+v, want [claimA@113, claimB@524] in order", history)
	}
}

func TestClaimOutpointRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, ok, err := db.GetClaimOutput(ctx, "deadbeef", 0)
	if err != nil || ok {
		t.Fatalf("GetClaimOutput on an unseen outpoint = %v, %v, want not found", ok, err)
	}

	ref := blocksync.ClaimRef{ClaimID: "claimA", Name: "foo", IsSupport: false}
	if err := db.PutClaimOutput(ctx, "deadbeef", 0, ref); err != nil {
		t.Fatalf("PutClaimOutput: %v", err)
	}
	got, ok, err := db.GetClaimOutput(ctx, "deadbeef", 0)
	if err != nil || !ok {
		t.Fatalf("GetClaimOutput: %v, %v", ok, err)
	}
	if got != ref {
		t.Errorf("GetClaimOutput = %+v, want %+v", got, ref)
	}
}

func TestSupportRoundTripWithNilPayload(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := &claimindex.Support{
		ClaimID: "claimA", Name: "foo", Height: 5, TxPosition: 0, Amount: 100,
	}
	if err := db.PutSupport(ctx, s); err != nil {
		t.Fatalf("PutSupport: %v", err)
	}
	got, ok, err := db.GetSupport(ctx, "claimA", 5, 0)
	if err != nil || !ok {
		t.Fatalf("GetSupport: %v, %v", ok, err)
	}
	if got.Amount != 100 || got.Payload != nil {
		t.Errorf("GetSupport = %+v, want amount 100 and nil payload", got)
	}
}

func TestChannelRoundTripAndVerifier(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seed := make([]byte, 16)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	key, err := bip32.FromSeed(ledger.MainNet, seed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	pub, err := key.PubKeyBytes()
	if err != nil {
		t.Fatalf("PubKeyBytes: %v", err)
	}

	ch := &claimindex.Channel{ClaimID: "chan1", PublicKeyBytes: pub, ShortURL: "@alice#1"}
	if err := db.PutChannel(ctx, ch); err != nil {
		t.Fatalf("PutChannel: %v", err)
	}
	got, ok, err := db.GetChannel(ctx, "chan1")
	if err != nil || !ok {
		t.Fatalf("GetChannel: %v, %v", ok, err)
	}
	if got.ShortURL != "@alice#1" {
		t.Errorf("GetChannel.ShortURL = %q", got.ShortURL)
	}

	used, err := db.IsChannelKeyUsed(ctx, btcutil.Hash160(pub))
	if err != nil || !used {
		t.Errorf("IsChannelKeyUsed after PutChannel = %v, %v, want true (PutChannel records key usage)", used, err)
	}

	verifier, err := db.ChannelVerifier(ctx, "chan1", got.PublicKeyBytes)
	if err != nil {
		t.Fatalf("ChannelVerifier: %v", err)
	}
	digest := [32]byte{1, 2, 3}
	sig, err := key.Sign(digest[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err = verifier.Verify(digest[:], sig)
	if err != nil || !ok {
		t.Errorf("verifier.Verify = %v, %v, want true for a signature from the channel's own key", ok, err)
	}
}
