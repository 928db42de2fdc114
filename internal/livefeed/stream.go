package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"bltp/internal/market"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultBackoff is the wait between reconnect attempts.
const DefaultBackoff = 3 * time.Second

// StreamSource reads BOND_UPDATE events from a running server's websocket
// endpoint and converts each bond into a LiveUpdate keyed by the first word
// of its issuer.
type StreamSource struct {
	url     string
	backoff time.Duration
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

func NewStreamSource(url string, backoff time.Duration, logger *zap.Logger) *StreamSource {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &StreamSource{
		url:     url,
		backoff: backoff,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
	}
}

// Run connects and listens until ctx is cancelled, reconnecting after every
// dial or read failure.
func (s *StreamSource) Run(ctx context.Context, emit func(LiveUpdate)) error {
	for {
		err := s.listen(ctx, emit)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("live feed connection lost, retrying",
			zap.String("url", s.url), zap.Duration("backoff", s.backoff), zap.Error(err))

		t := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *StreamSource) listen(ctx context.Context, emit func(LiveUpdate)) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()
	s.logger.Info("live feed connected", zap.String("url", s.url))

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		for _, u := range s.decode(msg) {
			emit(u)
		}
	}
}

// decode extracts the event type first and only parses bond payloads.
func (s *StreamSource) decode(msg []byte) []LiveUpdate {
	var meta struct {
		Type market.EventKind `json:"type"`
	}
	if err := json.Unmarshal(msg, &meta); err != nil {
		s.logger.Warn("failed to extract event type", zap.Error(err))
		return nil
	}

	var bonds map[string]market.BondRecord
	ts := time.Now()
	switch meta.Type {
	case market.EventBondUpdate:
		var ev struct {
			Data market.BondUpdate `json:"data"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.logger.Warn("failed to parse bond update", zap.Error(err))
			return nil
		}
		bonds, ts = ev.Data.Bonds, ev.Data.Timestamp
	case market.EventInitialData:
		var ev struct {
			Data struct {
				Bonds map[string]market.BondRecord `json:"bonds"`
			} `json:"data"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.logger.Warn("failed to parse initial data", zap.Error(err))
			return nil
		}
		bonds = ev.Data.Bonds
	default:
		return nil
	}

	return FromBonds(bonds, ts)
}

// FromBonds converts bond records into updates in bond id order.
func FromBonds(bonds map[string]market.BondRecord, ts time.Time) []LiveUpdate {
	ids := make([]string, 0, len(bonds))
	for id := range bonds {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]LiveUpdate, 0, len(ids))
	for _, id := range ids {
		out = append(out, FromBond(bonds[id], ts))
	}
	return out
}

// FromBond converts one bond record. The key is the first word of its issuer.
func FromBond(b market.BondRecord, ts time.Time) LiveUpdate {
	trend := b.Trends.Liquidity
	if trend == "" {
		trend = b.Trends.Price
	}
	return LiveUpdate{
		BondID:     IssuerKey(b.Issuer),
		Liquidity:  b.Liquidity,
		Yield:      market.Round(b.Yield, 1),
		Volume:     fmt.Sprintf("₹%dL", b.Volume/100_000),
		Trend:      trend,
		TrendValue: changePercent(b.Liquidity, b.LiquidityChange),
		Timestamp:  ts.UnixMilli(),
	}
}

// IssuerKey returns the first word of an issuer name.
func IssuerKey(issuer string) string {
	if f := strings.Fields(issuer); len(f) > 0 {
		return f[0]
	}
	return issuer
}

func changePercent(liquidity, change int) string {
	prev := liquidity - change
	if prev <= 0 {
		return "+0.0%"
	}
	return fmt.Sprintf("%+.1f%%", float64(change)/float64(prev)*100)
}
