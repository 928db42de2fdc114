package hub

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// AsyncSink hands every message to fn on a single worker goroutine. Unlike a
// websocket client it stays registered when its queue is full: the message
// is dropped and counted instead.
type AsyncSink struct {
	id     string
	queue  chan []byte
	fn     func(msg []byte)
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

func NewAsyncSink(id string, buffer int, fn func(msg []byte), logger *zap.Logger) *AsyncSink {
	if buffer < 1 {
		buffer = sendBuffer
	}
	s := &AsyncSink{
		id:     id,
		queue:  make(chan []byte, buffer),
		fn:     fn,
		logger: logger.With(zap.String("sink", id)),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for msg := range s.queue {
		s.fn(msg)
	}
}

func (s *AsyncSink) ID() string { return s.id }

func (s *AsyncSink) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *AsyncSink) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- msg:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("sink queue full, message dropped", zap.Int64("dropped", n))
	}
	return nil
}

// Close stops accepting messages and waits until the queue is drained.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

// Dropped reports how many messages were discarded on a full queue.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}
