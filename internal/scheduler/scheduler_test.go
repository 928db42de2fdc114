package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// go test -v --run TestSchedulerRunsPeriodically
func TestSchedulerRunsPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := New(zap.NewNop(), Task{
		Name:   "tick",
		Period: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	s.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if n := runs.Load(); n < 3 {
		t.Errorf("got %d runs, want at least 3", n)
	}

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != after {
		t.Error("task kept running after Stop")
	}
}

// go test -v --run TestSchedulerSkipsWhileRunning
func TestSchedulerSkipsWhileRunning(t *testing.T) {
	var active, maxActive, runs atomic.Int32

	s := New(zap.NewNop(), Task{
		Name:       "slow",
		Period:     2 * time.Millisecond,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			n := active.Add(1)
			defer active.Add(-1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			runs.Add(1)

			select {
			case <-time.After(30 * time.Millisecond):
			case <-ctx.Done():
			}
			return nil
		},
	})

	s.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if maxActive.Load() != 1 {
		t.Errorf("task overlapped itself: max concurrent runs = %d", maxActive.Load())
	}
	if s.Skipped() == 0 {
		t.Error("expected skipped ticks while the slow run was in flight")
	}
	if active.Load() != 0 {
		t.Error("Stop returned before the in-flight run finished")
	}
	if runs.Load() < 2 {
		t.Errorf("got %d runs, want at least 2", runs.Load())
	}
}

// go test -v --run TestSchedulerStopCancelsInFlight
func TestSchedulerStopCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool

	s := New(zap.NewNop(), Task{
		Name:       "blocking",
		Period:     time.Hour,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
	})

	s.Start(context.Background())
	<-started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	if !cancelled.Load() {
		t.Error("in-flight run was not cancelled")
	}
}

// go test -v --run TestSchedulerIndependentTasks
func TestSchedulerIndependentTasks(t *testing.T) {
	var fast atomic.Int32
	block := make(chan struct{})

	s := New(zap.NewNop(),
		Task{Name: "stuck", Period: time.Millisecond, RunAtStart: true, Run: func(ctx context.Context) error {
			select {
			case <-block:
			case <-ctx.Done():
			}
			return errors.New("ignored")
		}},
		Task{Name: "fast", Period: 2 * time.Millisecond, Run: func(ctx context.Context) error {
			fast.Add(1)
			return nil
		}},
	)

	s.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	close(block)
	s.Stop()

	if fast.Load() < 3 {
		t.Errorf("fast task starved by stuck task: %d runs", fast.Load())
	}
}

// go test -v --run TestSchedulerNoRunAfterCancel
func TestSchedulerNoRunAfterCancel(t *testing.T) {
	var runs atomic.Int32
	s := New(zap.NewNop(), Task{
		Name:       "cancelled",
		Period:     time.Millisecond,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if n := runs.Load(); n != 0 {
		t.Errorf("got %d runs on a cancelled context, want 0", n)
	}
}
