package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a periodic job. Run must honour ctx cancellation.
type Task struct {
	Name       string
	Period     time.Duration
	RunAtStart bool
	Run        func(ctx context.Context) error
}

// Scheduler runs each task on its own ticker. A tick that arrives while the
// previous run of the same task is still in flight is skipped.
type Scheduler struct {
	tasks  []Task
	logger *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	skipped atomic.Int64
}

func New(logger *zap.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks, logger: logger}
}

// Start launches one goroutine per task. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Stop cancels every task and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Skipped returns how many ticks were dropped because a run was in flight.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()

	logger := s.logger.With(zap.String("task", t.Name))
	var running atomic.Bool

	trigger := func() {
		// select may pick a pending tick over Done
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			s.skipped.Add(1)
			logger.Warn("previous run still in flight, skipping")
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer running.Store(false)

			start := time.Now()
			if err := t.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("task failed", zap.Error(err), zap.Duration("took", time.Since(start)))
				return
			}
			logger.Debug("task completed", zap.Duration("took", time.Since(start)))
		}()
	}

	if t.RunAtStart {
		trigger()
	}

	ticker := time.NewTicker(t.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trigger()
		}
	}
}
