package refresher

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"bltp/internal/hub"
	"bltp/internal/market"
	"bltp/internal/source"
	"bltp/internal/state"

	"go.uber.org/zap"
)

// fakeSource serves canned quotes and errors per symbol.
type fakeSource struct {
	mu      sync.Mutex
	prices  map[string]float64
	fail    map[string]error
	calls   []string
	callAt  []time.Time
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSource) record(sym string) {
	f.mu.Lock()
	f.calls = append(f.calls, sym)
	f.callAt = append(f.callAt, time.Now())
	f.mu.Unlock()
}

func (f *fakeSource) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) IndexQuote(ctx context.Context, inst source.Instrument) (market.IndexQuote, error) {
	f.record(inst.Symbol)
	if err := f.wait(ctx); err != nil {
		return market.IndexQuote{}, err
	}
	if err := f.fail[inst.Symbol]; err != nil {
		return market.IndexQuote{}, err
	}
	return market.IndexQuote{Symbol: inst.Symbol, Name: inst.Name, Price: f.prices[inst.Symbol]}, nil
}

func (f *fakeSource) BondQuote(ctx context.Context, inst source.Instrument) (market.BondRecord, error) {
	f.record(inst.Symbol)
	if err := f.fail[inst.Symbol]; err != nil {
		return market.BondRecord{}, err
	}
	return market.BondRecord{ID: inst.Symbol, Symbol: inst.Symbol, Name: inst.Name, Liquidity: 80}, nil
}

type countingSink struct {
	mu    sync.Mutex
	kinds []string
}

func (s *countingSink) ID() string   { return "counter" }
func (s *countingSink) Open() bool   { return true }
func (s *countingSink) Close() error { return nil }

func (s *countingSink) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, string(msg))
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.kinds)
}

var instruments = []source.Instrument{{Symbol: "A", Name: "Alpha"}, {Symbol: "B", Name: "Beta"}}

func newStore(t *testing.T) (*state.Store, *countingSink) {
	t.Helper()
	h := hub.New(zap.NewNop())
	sink := &countingSink{}
	if _, err := h.Register(sink); err != nil {
		t.Fatal(err)
	}
	return state.New(state.Options{Hub: h, LiquidityStep: 5}), sink
}

// go test -v --run TestRefreshIndicesPartialFailure
func TestRefreshIndicesPartialFailure(t *testing.T) {
	store, sink := newStore(t)
	store.MergeIndices(map[string]market.IndexQuote{"A": {Symbol: "A", Price: 10}})

	src := &fakeSource{
		prices: map[string]float64{"A": 11, "B": 20},
		fail:   map[string]error{"A": errors.New("timeout")},
	}
	r := New(Options{Store: store, Indices: src, IndexList: instruments, Delay: time.Millisecond, Logger: zap.NewNop()})

	fresh, err := r.RefreshIndices(context.Background())
	if err != nil {
		t.Fatalf("RefreshIndices() error: %v", err)
	}
	if len(fresh) != 1 || fresh["B"].Price != 20 {
		t.Errorf("fresh = %+v", fresh)
	}

	indices := store.Indices()
	if indices["A"].Price != 10 {
		t.Errorf("A should keep its prior value, got %v", indices["A"].Price)
	}
	if indices["B"].Price != 20 {
		t.Errorf("B should be fresh, got %v", indices["B"].Price)
	}
	if sink.count() != 2 {
		t.Errorf("expected a MARKET_UPDATE for the refresh, got %d broadcasts", sink.count())
	}
}

// go test -v --run TestRefreshIndicesAllFail
func TestRefreshIndicesAllFail(t *testing.T) {
	store, sink := newStore(t)
	boom := errors.New("boom")
	src := &fakeSource{fail: map[string]error{"A": boom, "B": boom}}
	r := New(Options{Store: store, Indices: src, IndexList: instruments, Logger: zap.NewNop()})

	fresh, err := r.RefreshIndices(context.Background())
	if err != nil || len(fresh) != 0 {
		t.Fatalf("RefreshIndices() = %v, %v", fresh, err)
	}
	if sink.count() != 0 {
		t.Error("broadcast emitted although every symbol failed")
	}
}

// go test -v --run TestRefreshIndicesDelayBetweenCalls
func TestRefreshIndicesDelayBetweenCalls(t *testing.T) {
	store, _ := newStore(t)
	src := &fakeSource{prices: map[string]float64{"A": 1, "B": 2}}
	delay := 30 * time.Millisecond
	r := New(Options{Store: store, Indices: src, IndexList: instruments, Delay: delay, Logger: zap.NewNop()})

	if _, err := r.RefreshIndices(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(src.calls) != 2 || src.calls[0] != "A" || src.calls[1] != "B" {
		t.Fatalf("calls = %v, want sequential [A B]", src.calls)
	}
	if gap := src.callAt[1].Sub(src.callAt[0]); gap < delay {
		t.Errorf("gap between calls %s < delay %s", gap, delay)
	}
}

// go test -v --run TestRefreshIndicesSingleFlight
func TestRefreshIndicesSingleFlight(t *testing.T) {
	store, _ := newStore(t)
	src := &fakeSource{
		prices:  map[string]float64{"A": 1, "B": 2},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	r := New(Options{Store: store, Indices: src, IndexList: instruments, Logger: zap.NewNop()})

	done := make(chan error, 1)
	go func() {
		_, err := r.RefreshIndices(context.Background())
		done <- err
	}()
	<-src.started

	if _, err := r.RefreshIndices(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("overlapping refresh error = %v, want ErrAlreadyRunning", err)
	}

	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("first refresh error: %v", err)
	}

	// guard released
	if _, err := r.RefreshIndices(context.Background()); err != nil {
		t.Errorf("refresh after completion error = %v", err)
	}
}

// go test -v --run TestRefreshIndicesCancel
func TestRefreshIndicesCancel(t *testing.T) {
	store, _ := newStore(t)
	src := &fakeSource{prices: map[string]float64{"A": 1, "B": 2}}
	r := New(Options{Store: store, Indices: src, IndexList: instruments, Delay: time.Hour, Logger: zap.NewNop()})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	fresh, err := r.RefreshIndices(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the inter-call delay")
	}
	if len(fresh) != 1 || store.Indices()["A"].Price != 1 {
		t.Errorf("quotes fetched before cancellation should be merged, got %+v", fresh)
	}
}

// go test -v --run TestRefreshIndicesNotConfigured
func TestRefreshIndicesNotConfigured(t *testing.T) {
	store, sink := newStore(t)
	src := &fakeSource{fail: map[string]error{"A": source.ErrNotConfigured, "B": source.ErrNotConfigured}}
	r := New(Options{Store: store, Indices: src, IndexList: instruments, Delay: time.Hour, Logger: zap.NewNop()})

	if _, err := r.RefreshIndices(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(src.calls) != 1 {
		t.Errorf("expected refresh to stop after the first not-configured error, calls=%v", src.calls)
	}
	if sink.count() != 0 {
		t.Error("unexpected broadcast")
	}
}

// go test -v --run TestRefreshBonds
func TestRefreshBonds(t *testing.T) {
	store, sink := newStore(t)
	store.SetBonds(map[string]market.BondRecord{
		"A":      {ID: "A", Name: "mock A", Liquidity: 30},
		"BOND_1": {ID: "BOND_1", Name: "mock", Liquidity: 40},
	})
	src := &fakeSource{fail: map[string]error{"B": errors.New("no data")}}
	r := New(Options{Store: store, Bonds: src, BondList: instruments, Logger: zap.NewNop()})

	merged, err := r.RefreshBonds(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if merged["A"].Name != "Alpha" || merged["A"].Liquidity != 80 {
		t.Errorf("real A did not replace mock A: %+v", merged["A"])
	}
	if merged["BOND_1"].Name != "mock" {
		t.Errorf("mock-only bond changed: %+v", merged["BOND_1"])
	}
	if _, ok := merged["B"]; ok {
		t.Error("failed bond should be absent")
	}
	if sink.count() != 0 {
		t.Error("RefreshBonds must not broadcast")
	}
}

// go test -v --run TestRefreshSharesCallBudget
func TestRefreshSharesCallBudget(t *testing.T) {
	store, _ := newStore(t)
	src := &fakeSource{prices: map[string]float64{"A": 1, "B": 2}}
	delay := 40 * time.Millisecond
	r := New(Options{
		Store:     store,
		Indices:   src,
		Bonds:     src,
		IndexList: instruments,
		BondList:  instruments,
		Delay:     delay,
		Logger:    zap.NewNop(),
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := r.RefreshIndices(context.Background()); err != nil {
			t.Errorf("RefreshIndices: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := r.RefreshBonds(context.Background()); err != nil {
			t.Errorf("RefreshBonds: %v", err)
		}
	}()
	wg.Wait()

	src.mu.Lock()
	at := slices.Clone(src.callAt)
	src.mu.Unlock()

	if len(at) != 4 {
		t.Fatalf("calls = %d, want 4", len(at))
	}
	slices.SortFunc(at, func(a, b time.Time) int { return a.Compare(b) })
	for i := 1; i < len(at); i++ {
		if gap := at[i].Sub(at[i-1]); gap < delay {
			t.Errorf("gap between upstream calls %d and %d = %s, want >= %s", i-1, i, gap, delay)
		}
	}
}
