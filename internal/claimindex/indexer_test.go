package claimindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/lbryio/lbcwallet/internal/bip32"
	"github.com/lbryio/lbcwallet/internal/claimtrie"
	"github.com/lbryio/lbcwallet/internal/ledger"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

type takeoverRecord struct {
	Name, ClaimID string
	Height        int32
}

type memStore struct {
	claims    map[string]*Claim
	supports  map[string]*Support
	channels  map[string]*Channel
	takeovers []takeoverRecord
}

func newMemStore() *memStore {
	return &memStore{claims: map[string]*Claim{}, supports: map[string]*Support{}, channels: map[string]*Channel{}}
}

func (s *memStore) PutTakeover(_ context.Context, name, claimID string, height int32) error {
	s.takeovers = append(s.takeovers, takeoverRecord{Name: name, ClaimID: claimID, Height: height})
	return nil
}

func (s *memStore) GetClaim(_ context.Context, id string) (*Claim, bool, error) {
	c, ok := s.claims[id]
	return c, ok, nil
}
func (s *memStore) PutClaim(_ context.Context, c *Claim) error {
	cp := *c
	s.claims[c.ClaimID] = &cp
	return nil
}
func (s *memStore) GetSupport(_ context.Context, claimID string, height int32, pos int) (*Support, bool, error) {
	sup, ok := s.supports[supportKey(claimID, height, pos)]
	return sup, ok, nil
}
func (s *memStore) PutSupport(_ context.Context, sup *Support) error {
	cp := *sup
	s.supports[supportKey(sup.ClaimID, sup.Height, sup.TxPosition)] = &cp
	return nil
}
func supportKey(claimID string, height int32, pos int) string {
	return fmt.Sprintf("%s|%d|%d", claimID, height, pos)
}
func (s *memStore) GetChannel(_ context.Context, id string) (*Channel, bool, error) {
	c, ok := s.channels[id]
	return c, ok, nil
}
func (s *memStore) PutChannel(_ context.Context, c *Channel) error {
	cp := *c
	s.channels[c.ClaimID] = &cp
	return nil
}
func (s *memStore) ClaimsOnName(_ context.Context, name string) ([]*Claim, error) {
	var out []*Claim
	for _, c := range s.claims {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out, nil
}

type keyResolver struct{}

func (keyResolver) ChannelVerifier(_ context.Context, _ string, pubKeyBytes []byte) (txmodel.Verifier, error) {
	return verifierFromBytes(pubKeyBytes)
}

func testChannelKey(t *testing.T) *bip32.PrivateKey {
	t.Helper()
	seed := make([]byte, 16)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	key, err := bip32.FromSeed(ledger.MainNet, seed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	return key
}

func TestCreateClaimSignedAndCounted(t *testing.T) {
	store := newMemStore()
	engine := claimtrie.New()
	ix := New(engine, store, keyResolver{})
	ctx := context.Background()

	channelKey := testChannelKey(t)
	pubBytes, err := channelKey.PubKeyBytes()
	if err != nil {
		t.Fatalf("PubKeyBytes: %v", err)
	}
	if err := store.PutChannel(ctx, &Channel{ClaimID: "chan1", PublicKeyBytes: pubBytes, ShortURL: "@alice#1"}); err != nil {
		t.Fatalf("PutChannel: %v", err)
	}

	firstInput := txmodel.Outpoint{TxID: [32]byte{1}}
	claimHash := []byte("claim-hash")
	payload := &txmodel.ClaimPayload{Kind: txmodel.ClaimKindStream, Title: "hi"}
	signed, err := txmodel.SignClaim(channelKey, firstInput, claimHash, payload, "chan1")
	if err != nil {
		t.Fatalf("SignClaim: %v", err)
	}

	ev := ClaimEvent{
		Kind: EventCreateClaim, ClaimID: "claimA", Name: "foo", Height: 10,
		TxPosition: 0, Amount: 5, Payload: signed, FirstInputTxID: firstInput.TxID, ClaimHash: claimHash,
	}
	if err := ix.ProcessBatch(ctx, 10, 10, []ClaimEvent{ev}); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	rec, ok, err := store.GetClaim(ctx, "claimA")
	if err != nil || !ok {
		t.Fatalf("GetClaim: %v %v", ok, err)
	}
	if !rec.IsSignatureValid {
		t.Errorf("expected signature to validate against the channel's current key")
	}
	if rec.ShortURL != "foo#c" {
		t.Errorf("ShortURL = %q, want foo#c (sole claim on the name needs only a 1-char prefix)", rec.ShortURL)
	}
	if rec.CanonicalURL != "@alice#1/"+rec.ShortURL {
		t.Errorf("CanonicalURL = %q", rec.CanonicalURL)
	}

	channel, ok, err := store.GetChannel(ctx, "chan1")
	if err != nil || !ok {
		t.Fatalf("GetChannel: %v %v", ok, err)
	}
	if channel.SignedClaimCount != 1 {
		t.Errorf("SignedClaimCount = %d, want 1", channel.SignedClaimCount)
	}

	if got := engine.Controlling("foo"); got != "claimA" {
		t.Errorf("controlling = %q, want claimA", got)
	}
	if !rec.IsControlling {
		t.Errorf("indexed claim IsControlling = false, want true (sole claim on the name)")
	}
	if rec.ActivationHeight != 10 {
		t.Errorf("ActivationHeight = %d, want 10 (no prior controller, activates immediately)", rec.ActivationHeight)
	}
	if rec.ExpirationHeight != 10+ledger.ExpirationWindow {
		t.Errorf("ExpirationHeight = %d, want %d", rec.ExpirationHeight, 10+ledger.ExpirationWindow)
	}
	if len(store.takeovers) != 1 || store.takeovers[0].ClaimID != "claimA" {
		t.Errorf("takeovers = %+v, want one record for claimA", store.takeovers)
	}
}

func TestPendingClaimIsNotControllingAndActivatesLater(t *testing.T) {
	store := newMemStore()
	engine := claimtrie.New()
	ix := New(engine, store, keyResolver{})
	ctx := context.Background()

	ix.ProcessBatch(ctx, 113, 113, []ClaimEvent{{
		Kind: EventCreateClaim, ClaimID: "A", Name: "n", Height: 113, Amount: 10, Payload: &txmodel.ClaimPayload{},
	}})
	ix.ProcessBatch(ctx, 501, 501, []ClaimEvent{{
		Kind: EventCreateClaim, ClaimID: "B", Name: "n", Height: 501, Amount: 20, Payload: &txmodel.ClaimPayload{},
	}})

	recA, _, _ := store.GetClaim(ctx, "A")
	recB, _, _ := store.GetClaim(ctx, "B")
	if !recA.IsControlling {
		t.Errorf("A.IsControlling = false, want true")
	}
	if recB.IsControlling {
		t.Errorf("B.IsControlling = true, want false (still pending)")
	}
	if recB.ActivationHeight != 513 {
		t.Errorf("B.ActivationHeight = %d, want 513 (501 + (501-113)/32)", recB.ActivationHeight)
	}

	// B's activation at 513 has no event of its own touching "n", so the
	// index must still pick up the takeover from the engine's schedule.
	if err := ix.ProcessBatch(ctx, 502, 513, nil); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	recA, _, _ = store.GetClaim(ctx, "A")
	recB, _, _ = store.GetClaim(ctx, "B")
	if recA.IsControlling {
		t.Errorf("A.IsControlling = true after B activates, want false")
	}
	if !recB.IsControlling {
		t.Errorf("B.IsControlling = false at height 513, want true (activation is event-free)")
	}
	if len(store.takeovers) != 2 || store.takeovers[1].ClaimID != "B" {
		t.Errorf("takeovers = %+v, want a second record handing control to B", store.takeovers)
	}
}

func TestKeyResetDoesNotRetroactivelyInvalidateOldClaims(t *testing.T) {
	store := newMemStore()
	engine := claimtrie.New()
	ix := New(engine, store, keyResolver{})
	ctx := context.Background()

	oldKey := testChannelKey(t)
	oldPub, _ := oldKey.PubKeyBytes()
	store.PutChannel(ctx, &Channel{ClaimID: "chan1", PublicKeyBytes: oldPub, ShortURL: "@alice#1"})

	firstInput := txmodel.Outpoint{TxID: [32]byte{2}}
	claimHash := []byte("hash-1")
	payload := &txmodel.ClaimPayload{Kind: txmodel.ClaimKindStream, Title: "v1"}
	signed, _ := txmodel.SignClaim(oldKey, firstInput, claimHash, payload, "chan1")
	ix.ProcessBatch(ctx, 1, 1, []ClaimEvent{{
		Kind: EventCreateClaim, ClaimID: "claimA", Name: "foo", Height: 1,
		Amount: 1, Payload: signed, FirstInputTxID: firstInput.TxID, ClaimHash: claimHash,
	}})

	// Reset the channel's key.
	newKeySeed := make([]byte, 16)
	for i := range newKeySeed {
		newKeySeed[i] = byte(200 + i)
	}
	newKey, err := bip32.FromSeed(ledger.MainNet, newKeySeed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	newPub, _ := newKey.PubKeyBytes()
	store.PutChannel(ctx, &Channel{ClaimID: "chan1", PublicKeyBytes: newPub, ShortURL: "@alice#1"})

	// claimA is untouched by the key reset: still signed validly under
	// the key that was current when it was created.
	rec, _, _ := store.GetClaim(ctx, "claimA")
	if !rec.IsSignatureValid {
		t.Errorf("old claim's signature should not be retroactively invalidated by a channel key reset")
	}

	// A new claim signed with the OLD key after the reset is invalid.
	payload2 := &txmodel.ClaimPayload{Kind: txmodel.ClaimKindStream, Title: "v2"}
	firstInput2 := txmodel.Outpoint{TxID: [32]byte{3}}
	claimHash2 := []byte("hash-2")
	signedWithStaleKey, _ := txmodel.SignClaim(oldKey, firstInput2, claimHash2, payload2, "chan1")
	ix.ProcessBatch(ctx, 2, 2, []ClaimEvent{{
		Kind: EventCreateClaim, ClaimID: "claimB", Name: "bar", Height: 2,
		Amount: 1, Payload: signedWithStaleKey, FirstInputTxID: firstInput2.TxID, ClaimHash: claimHash2,
	}})
	recB, _, _ := store.GetClaim(ctx, "claimB")
	if recB.IsSignatureValid {
		t.Errorf("claim signed with a stale key after a channel key reset should be invalid")
	}
}

func TestAbandonClaimDecrementsChannelCount(t *testing.T) {
	store := newMemStore()
	engine := claimtrie.New()
	ix := New(engine, store, keyResolver{})
	ctx := context.Background()

	key := testChannelKey(t)
	pub, _ := key.PubKeyBytes()
	store.PutChannel(ctx, &Channel{ClaimID: "chan1", PublicKeyBytes: pub, ShortURL: "@alice#1"})

	firstInput := txmodel.Outpoint{TxID: [32]byte{4}}
	claimHash := []byte("hash")
	payload := &txmodel.ClaimPayload{Kind: txmodel.ClaimKindStream}
	signed, _ := txmodel.SignClaim(key, firstInput, claimHash, payload, "chan1")
	ix.ProcessBatch(ctx, 1, 1, []ClaimEvent{{
		Kind: EventCreateClaim, ClaimID: "claimA", Name: "foo", Height: 1,
		Amount: 1, Payload: signed, FirstInputTxID: firstInput.TxID, ClaimHash: claimHash,
	}})
	ix.ProcessBatch(ctx, 2, 2, []ClaimEvent{{Kind: EventAbandonClaim, ClaimID: "claimA", Name: "foo", Height: 2}})

	channel, _, _ := store.GetChannel(ctx, "chan1")
	if channel.SignedClaimCount != 0 {
		t.Errorf("SignedClaimCount = %d, want 0 after abandon", channel.SignedClaimCount)
	}
	if got := engine.Controlling("foo"); got != "" {
		t.Errorf("controlling = %q, want empty after the only claim is abandoned", got)
	}
}

func TestSameBlockAbandonBeatsCreate(t *testing.T) {
	store := newMemStore()
	engine := claimtrie.New()
	ix := New(engine, store, keyResolver{})
	ctx := context.Background()

	events := []ClaimEvent{
		{Kind: EventCreateClaim, ClaimID: "claimA", Name: "foo", Height: 1, TxPosition: 0, Amount: 1, Payload: &txmodel.ClaimPayload{}},
		{Kind: EventAbandonClaim, ClaimID: "claimA", Name: "foo", Height: 1, TxPosition: 1},
	}
	if err := ix.ProcessBatch(ctx, 1, 1, events); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if got := engine.Controlling("foo"); got != "" {
		t.Errorf("controlling = %q, want empty: abandon beats create in the same block", got)
	}
	if _, ok, _ := store.GetClaim(ctx, "claimA"); ok {
		t.Errorf("abandon-in-same-block should not have left a persisted claim record")
	}
}

func TestShortURLPrefixesExtendOnCollision(t *testing.T) {
	store := newMemStore()
	engine := claimtrie.New()
	ix := New(engine, store, keyResolver{})
	ctx := context.Background()

	ix.ProcessBatch(ctx, 1, 1, []ClaimEvent{{
		Kind: EventCreateClaim, ClaimID: "aabbcc", Name: "foo", Height: 1, Amount: 1, Payload: &txmodel.ClaimPayload{},
	}})
	rec1, _, _ := store.GetClaim(ctx, "aabbcc")
	if rec1.ShortURL != "foo#a" {
		t.Fatalf("first claim ShortURL = %q, want foo#a", rec1.ShortURL)
	}

	// Second claim shares the first two hex characters; it extends until
	// it stops matching the earlier claim_id, which keeps its own prefix.
	ix.ProcessBatch(ctx, 2, 2, []ClaimEvent{{
		Kind: EventCreateClaim, ClaimID: "aaddee", Name: "foo", Height: 2, Amount: 1, Payload: &txmodel.ClaimPayload{},
	}})
	rec1After, _, _ := store.GetClaim(ctx, "aabbcc")
	rec2, _, _ := store.GetClaim(ctx, "aaddee")
	if rec1After.ShortURL == rec2.ShortURL {
		t.Fatalf("expected distinct short URLs, got %q and %q", rec1After.ShortURL, rec2.ShortURL)
	}
	if rec2.ShortURL != "foo#aad" {
		t.Errorf("second claim ShortURL = %q, want foo#aad (minimal length disambiguating from claim_id aabbcc)", rec2.ShortURL)
	}
}
