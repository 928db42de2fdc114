package hub

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// Subscriber registers a sink and delivers its initial snapshot.
type Subscriber interface {
	Subscribe(s Sink) (*Handle, error)
}

// WSClient is a Sink backed by a gorilla websocket connection.
type WSClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	mu     sync.Mutex
	closed bool

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewWSClient(conn *websocket.Conn, logger *zap.Logger) *WSClient {
	id := uuid.NewString()
	return &WSClient{
		id:         id,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		logger:     logger.With(zap.String("client", id)),
		writeWait:  5 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 50 * time.Second,
	}
}

func (c *WSClient) ID() string { return c.id }

func (c *WSClient) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send queues msg for the write pump. A full queue means the peer is not
// keeping up and the client should be dropped.
func (c *WSClient) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSinkClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSinkFull
	}
}

// Close stops the write pump, which closes the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// readPump discards inbound frames and returns when the peer goes away.
func (c *WSClient) readPump(h *Handle) {
	defer h.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				_ = c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// NewUpgrader accepts any origin when allowed contains "*" or is empty.
func NewUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
				return true
			}
			return slices.Contains(allowed, origin)
		},
	}
}

// ServeWS upgrades the request and subscribes the connection. The handler
// returns once the peer disconnects.
func ServeWS(sub Subscriber, upgrader *websocket.Upgrader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		c := NewWSClient(conn, logger)
		go c.writePump()

		h, err := sub.Subscribe(c)
		if err != nil {
			logger.Warn("subscribe failed", zap.Error(err))
			_ = c.Close()
			return
		}
		c.logger.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

		c.readPump(h)
		c.logger.Info("websocket client disconnected")
	}
}
