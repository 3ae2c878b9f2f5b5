package channelkeys

import (
	"context"
	"testing"

	"github.com/lbryio/lbcwallet/internal/bip32"
	"github.com/lbryio/lbcwallet/internal/ledger"
)

const testSeedHex = "000102030405060708090a0b0c0d0e0f"

func testAccountKey(t *testing.T) *bip32.PrivateKey {
	t.Helper()
	seed := make([]byte, 16)
	for i := range seed {
		seed[i] = byte(i)
	}
	key, err := bip32.FromSeed(ledger.MainNet, seed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	return key
}

// fakeChecker marks a fixed set of hash160s (hex-encoded) as already used.
type fakeChecker struct {
	used map[string]bool
}

func (f *fakeChecker) IsChannelKeyUsed(_ context.Context, hash []byte) (bool, error) {
	return f.used[hexEncode(hash)], nil
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}

func TestGenerateNextKeySkipsUsedIndices(t *testing.T) {
	account := testAccountKey(t)
	root, err := account.Child(uint32(bip32.CHANNEL))
	if err != nil {
		t.Fatalf("Child(CHANNEL): %v", err)
	}
	firstTwo := make(map[string]bool)
	for n := uint32(0); n < 2; n++ {
		child, err := root.Child(n)
		if err != nil {
			t.Fatalf("Child(%d): %v", n, err)
		}
		hash, err := child.Hash160()
		if err != nil {
			t.Fatalf("Hash160: %v", err)
		}
		firstTwo[hexEncode(hash)] = true
	}

	mgr, err := New(ledger.MainNet, account, &fakeChecker{used: firstTwo}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key, err := mgr.GenerateNextKey(context.Background())
	if err != nil {
		t.Fatalf("GenerateNextKey: %v", err)
	}
	want, err := root.Child(2)
	if err != nil {
		t.Fatalf("Child(2): %v", err)
	}
	gotAddr, _ := key.Address()
	wantAddr, _ := want.Address()
	if gotAddr != wantAddr {
		t.Errorf("GenerateNextKey returned index != 2: got %s, want %s", gotAddr, wantAddr)
	}
}

func TestGenerateNextKeyWatchOnlyFails(t *testing.T) {
	mgr, err := New(ledger.MainNet, nil, &fakeChecker{used: map[string]bool{}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := mgr.GenerateNextKey(context.Background()); err != errNoChannelRoot {
		t.Errorf("GenerateNextKey on watch-only: got %v, want errNoChannelRoot", err)
	}
}

func TestMaybeGenerateDeterministicKeyForChannel(t *testing.T) {
	account := testAccountKey(t)
	root, err := account.Child(uint32(bip32.CHANNEL))
	if err != nil {
		t.Fatalf("Child(CHANNEL): %v", err)
	}
	child0, err := root.Child(0)
	if err != nil {
		t.Fatalf("Child(0): %v", err)
	}
	pub0, err := child0.PubKeyBytes()
	if err != nil {
		t.Fatalf("PubKeyBytes: %v", err)
	}

	mgr, err := New(ledger.MainNet, account, &fakeChecker{used: map[string]bool{}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := mgr.MaybeGenerateDeterministicKeyForChannel(pub0); err != nil {
		t.Fatalf("MaybeGenerateDeterministicKeyForChannel: %v", err)
	}
	if mgr.lastKnown != 1 {
		t.Errorf("lastKnown after observing index 0: got %d, want 1", mgr.lastKnown)
	}

	hash0, _ := child0.Hash160()
	addr0, _ := child0.Address()
	key, err := mgr.GetChannelPrivateKey(addr0, hash0)
	if err != nil {
		t.Fatalf("GetChannelPrivateKey: %v", err)
	}
	if key == nil {
		t.Fatal("GetChannelPrivateKey: expected cached key, got nil")
	}
}

func TestAddAndMigrateCertificates(t *testing.T) {
	account := testAccountKey(t)
	leaf, err := account.ToLeafKey()
	if err != nil {
		t.Fatalf("ToLeafKey: %v", err)
	}

	mgr, err := New(ledger.MainNet, nil, &fakeChecker{used: map[string]bool{}}, map[string]string{
		"stale-key": "not a pem string",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := mgr.AddChannelPrivateKey(leaf); err != nil {
		t.Fatalf("AddChannelPrivateKey: %v", err)
	}

	changed := mgr.MigrateCertificates()
	if !changed {
		t.Error("MigrateCertificates: expected changed=true when dropping an invalid entry")
	}
	keys := mgr.ChannelKeys()
	if _, ok := keys["stale-key"]; ok {
		t.Error("MigrateCertificates: invalid PEM entry should have been dropped")
	}
	addr, err := leaf.Address()
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if _, ok := keys[addr]; !ok {
		t.Errorf("MigrateCertificates: expected surviving entry keyed by %s", addr)
	}
}
