package blocksync

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lbryio/lbcwallet/internal/node"
	"github.com/lbryio/lbcwallet/internal/txmodel"
)

type fakeSource struct {
	files  [][]*node.Block
	best   int32
	blocks map[int32]*node.Block
}

func (s *fakeSource) BestHeight(_ context.Context) (int32, error) { return s.best, nil }
func (s *fakeSource) BlockFileCount(_ context.Context) (int, error) { return len(s.files), nil }
func (s *fakeSource) ReadBlockFile(_ context.Context, i int) ([]*node.Block, error) {
	return s.files[i], nil
}
func (s *fakeSource) ReadBlock(_ context.Context, height int32) (*node.Block, error) {
	return s.blocks[height], nil
}

type fakeTips struct{ height int32 }

func (t *fakeTips) GetSyncHeight(_ context.Context) (int32, error) { return t.height, nil }
func (t *fakeTips) SetSyncHeight(_ context.Context, h int32) error { t.height = h; return nil }

type countingObserver struct{ count int }

func (o *countingObserver) ObserveTransaction(_ context.Context, _ *node.Block, _ *txmodel.Transaction) error {
	o.count++
	return nil
}

func TestInitialSyncProcessesAllBlocksOnce(t *testing.T) {
	tx := txmodel.New()
	blocks := []*node.Block{
		{Height: 1, Transactions: []*txmodel.Transaction{tx}},
		{Height: 2, Transactions: []*txmodel.Transaction{tx, tx}},
	}
	source := &fakeSource{files: [][]*node.Block{blocks}, best: 2}
	tips := &fakeTips{}
	obs := &countingObserver{}

	d := New(source, tips, []TxObserver{obs}, nil, zerolog.Nop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if obs.count != 3 {
		t.Errorf("observed %d transactions, want 3", obs.count)
	}
	if tips.height != 2 {
		t.Errorf("sync height = %d, want 2", tips.height)
	}
}

func TestStopHaltsBetweenFiles(t *testing.T) {
	tx := txmodel.New()
	file0 := []*node.Block{{Height: 1, Transactions: []*txmodel.Transaction{tx}}}
	file1 := []*node.Block{{Height: 2, Transactions: []*txmodel.Transaction{tx}}}
	source := &fakeSource{files: [][]*node.Block{file0, file1}, best: 2}
	tips := &fakeTips{}
	obs := &countingObserver{}

	d := New(source, tips, []TxObserver{obs}, nil, zerolog.Nop())
	d.mu.Lock()
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()
	close(d.stopCh)

	if err := d.initialSync(context.Background()); err != nil {
		t.Fatalf("initialSync: %v", err)
	}
	if obs.count != 0 {
		t.Errorf("expected no transactions processed once stop is requested before any file, got %d", obs.count)
	}
}

func TestEmitDropsWhenChannelFull(t *testing.T) {
	events := make(chan Event) // unbuffered, nothing draining it
	d := New(&fakeSource{}, &fakeTips{}, nil, events, zerolog.Nop())
	d.emit(Event{ID: EventBlockInit})
}
