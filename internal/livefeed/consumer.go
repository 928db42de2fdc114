package livefeed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Source produces updates until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, emit func(LiveUpdate)) error
}

// Consumer keeps the latest update per instrument from a Source.
type Consumer struct {
	mu     sync.RWMutex
	buf    *Buffer
	source Source
	logger *zap.Logger

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewConsumer(src Source, capacity int, logger *zap.Logger) *Consumer {
	return &Consumer{
		buf:    NewBuffer(capacity),
		source: src,
		logger: logger,
	}
}

// Start runs the source in the background. Starting a running consumer is a
// no-op.
func (c *Consumer) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.running {
		return
	}
	c.running = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := c.source.Run(ctx, c.OnUpdate)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("live feed source stopped", zap.Error(err))
		}
	}(c.done)
}

// Stop cancels the source and waits for it to return. Buffered updates are
// kept and remain readable.
func (c *Consumer) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if !c.running {
		return
	}
	c.cancel()
	<-c.done
	c.running = false
}

func (c *Consumer) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.running
}

// OnUpdate merges u into the buffer: latest wins per key.
func (c *Consumer) OnUpdate(u LiveUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Insert(u)
}

func (c *Consumer) GetLatest(key string) (LiveUpdate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buf.Latest(key)
}

// Entries returns the buffered updates, newest first.
func (c *Consumer) Entries() []LiveUpdate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buf.Entries()
}
