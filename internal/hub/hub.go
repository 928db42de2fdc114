package hub

import (
	"encoding/json"
	"errors"
	"sync"

	"bltp/internal/market"

	"go.uber.org/zap"
)

var (
	ErrSinkClosed = errors.New("sink closed")
	ErrSinkFull   = errors.New("sink queue full")
	ErrHubClosed  = errors.New("hub closed")
)

// Sink is one subscriber of broadcast events. Send must not block.
type Sink interface {
	ID() string
	Open() bool
	Send(msg []byte) error
	Close() error
}

// Hub fans out events to every registered sink.
type Hub struct {
	mu     sync.RWMutex
	sinks  map[string]Sink
	closed bool
	logger *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		sinks:  make(map[string]Sink),
		logger: logger,
	}
}

// Handle removes its sink from the hub when closed.
type Handle struct {
	hub  *Hub
	id   string
	once sync.Once
}

func (h *Handle) ID() string { return h.id }

// Close deregisters and closes the sink. Safe to call more than once.
func (h *Handle) Close() {
	h.once.Do(func() { h.hub.remove(h.id) })
}

// Register adds a sink to the broadcast set.
func (h *Hub) Register(s Sink) (*Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	h.sinks[s.ID()] = s
	h.logger.Debug("subscriber registered", zap.String("id", s.ID()), zap.Int("count", len(h.sinks)))
	return &Handle{hub: h, id: s.ID()}, nil
}

// Send encodes ev and delivers it to a single sink.
func (h *Hub) Send(s Sink, ev market.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Send(msg)
}

// Broadcast encodes ev once and sends it to every open sink. Sinks that
// fail are dropped; the failure never reaches the caller.
func (h *Hub) Broadcast(ev market.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]Sink, 0, len(h.sinks))
	for _, s := range h.sinks {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	var failed []string
	for _, s := range targets {
		if !s.Open() {
			continue
		}
		if err := s.Send(msg); err != nil {
			h.logger.Warn("dropping subscriber", zap.String("id", s.ID()), zap.Error(err))
			failed = append(failed, s.ID())
		}
	}

	for _, id := range failed {
		h.remove(id)
	}
}

// Count returns the number of registered sinks.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}

// Clients returns the number of registered websocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, s := range h.sinks {
		if _, ok := s.(*WSClient); ok {
			n++
		}
	}
	return n
}

// Close closes every sink and rejects further registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	sinks := h.sinks
	h.sinks = make(map[string]Sink)
	h.closed = true
	h.mu.Unlock()

	for _, s := range sinks {
		_ = s.Close()
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	s, ok := h.sinks[id]
	delete(h.sinks, id)
	n := len(h.sinks)
	h.mu.Unlock()

	if ok {
		_ = s.Close()
		h.logger.Debug("subscriber removed", zap.String("id", id), zap.Int("count", n))
	}
}
