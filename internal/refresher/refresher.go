package refresher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"bltp/internal/market"
	"bltp/internal/source"
	"bltp/internal/state"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when a refresh of the same kind is in flight.
var ErrAlreadyRunning = errors.New("refresh already running")

type Options struct {
	Store   *state.Store
	Indices source.IndexSource
	Bonds   source.BondSource

	IndexList []source.Instrument
	BondList  []source.Instrument

	// Minimum gap between consecutive upstream calls, shared by index and
	// bond refreshes; keeps N calls/minute under the source quota.
	Delay  time.Duration
	Logger *zap.Logger
}

// Refresher pulls real data into the store one instrument at a time.
type Refresher struct {
	opts Options
	pace *pacer

	indicesRunning atomic.Bool
	bondsRunning   atomic.Bool
}

func New(opts Options) *Refresher {
	if opts.IndexList == nil {
		opts.IndexList = source.TrackedIndices
	}
	if opts.BondList == nil {
		opts.BondList = source.BondETFs
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Refresher{opts: opts, pace: newPacer(opts.Delay)}
}

// RefreshIndices fetches every tracked index and merges the successes into
// the store, which broadcasts MARKET_UPDATE when at least one succeeded.
// Per-instrument failures are logged and the prior value kept.
func (r *Refresher) RefreshIndices(ctx context.Context) (map[string]market.IndexQuote, error) {
	if !r.indicesRunning.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.indicesRunning.Store(false)

	fresh, err := fetchSequential(ctx, r.opts.IndexList, r.pace, r.opts.Indices.IndexQuote, r.opts.Logger.With(zap.String("kind", "index")))

	if r.opts.Store.MergeIndices(fresh) {
		r.opts.Logger.Info("indices refreshed", zap.Int("fresh", len(fresh)), zap.Int("tracked", len(r.opts.IndexList)))
	} else {
		r.opts.Logger.Warn("index refresh produced no quotes")
	}
	return fresh, err
}

// RefreshBonds fetches the bond ETFs and overlays them on the store's bonds,
// returning the merged set.
func (r *Refresher) RefreshBonds(ctx context.Context) (map[string]market.BondRecord, error) {
	if !r.bondsRunning.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.bondsRunning.Store(false)

	real, err := fetchSequential(ctx, r.opts.BondList, r.pace, r.opts.Bonds.BondQuote, r.opts.Logger.With(zap.String("kind", "bond")))

	merged := r.opts.Store.ApplyRealBonds(real)
	r.opts.Logger.Info("bonds refreshed", zap.Int("real", len(real)), zap.Int("total", len(merged)))
	return merged, err
}

// fetchSequential calls fetch for each instrument in order, each call paced
// by p. Failures are skipped. It stops early, returning what it has and the
// context error, when ctx is cancelled.
func fetchSequential[T any](ctx context.Context, list []source.Instrument, p *pacer,
	fetch func(context.Context, source.Instrument) (T, error), logger *zap.Logger) (map[string]T, error) {
	out := make(map[string]T, len(list))

	for _, inst := range list {
		var (
			v        T
			fetchErr error
		)
		if err := p.do(ctx, func() { v, fetchErr = fetch(ctx, inst) }); err != nil {
			return out, err
		}

		if fetchErr != nil {
			// every instrument shares the source, so none will succeed
			if errors.Is(fetchErr, source.ErrNotConfigured) {
				logger.Debug("source not configured, skipping refresh")
				return out, nil
			}
			logger.Warn("failed to fetch quote", zap.String("symbol", inst.Symbol), zap.Error(fetchErr))
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			continue
		}
		out[inst.Symbol] = v
	}
	return out, nil
}

// pacer serialises upstream calls and keeps at least delay between the end
// of one call and the start of the next, across all refresh sequences.
type pacer struct {
	delay time.Duration
	gate  chan struct{}
	last  time.Time // end of the previous call, guarded by gate
}

func newPacer(delay time.Duration) *pacer {
	return &pacer{delay: delay, gate: make(chan struct{}, 1)}
}

// do waits for its turn and the remaining delay, then runs call. It returns
// the context error when ctx is cancelled while waiting.
func (p *pacer) do(ctx context.Context, call func()) error {
	select {
	case p.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.gate }()

	if !p.last.IsZero() {
		if err := sleep(ctx, time.Until(p.last.Add(p.delay))); err != nil {
			return err
		}
	}

	call()
	p.last = time.Now()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
