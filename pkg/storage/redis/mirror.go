package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bltp/config"
	"bltp/internal/hub"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Mirror keeps the latest payload of each event type under
// <prefix>:<type> and republishes every event on a channel, so processes
// without a websocket connection can follow the market.
type Mirror struct {
	rdb     *goredis.Client
	prefix  string
	channel string
	ttl     time.Duration
	logger  *zap.Logger
}

func NewMirror(rdb *goredis.Client, cfg config.RedisConfig, logger *zap.Logger) *Mirror {
	return &Mirror{
		rdb:     rdb,
		prefix:  cfg.KeyPrefix,
		channel: cfg.Channel,
		ttl:     cfg.TTL,
		logger:  logger,
	}
}

// Sink returns a hub sink feeding the mirror from a background worker.
func (m *Mirror) Sink(buffer int) *hub.AsyncSink {
	return hub.NewAsyncSink("redis-mirror", buffer, func(msg []byte) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.Write(ctx, msg); err != nil {
			m.logger.Warn("mirror write failed", zap.Error(err))
		}
	}, m.logger)
}

// Write stores and publishes one encoded event atomically.
func (m *Mirror) Write(ctx context.Context, msg []byte) error {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &meta); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if meta.Type == "" {
		return nil
	}

	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, m.Key(meta.Type), msg, m.ttl)
	pipe.Publish(ctx, m.channel, msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror %s: %w", meta.Type, err)
	}
	return nil
}

// Latest returns the most recent payload for an event type, or redis.Nil.
func (m *Mirror) Latest(ctx context.Context, eventType string) ([]byte, error) {
	return m.rdb.Get(ctx, m.Key(eventType)).Bytes()
}

func (m *Mirror) Key(eventType string) string {
	return m.prefix + ":" + eventType
}
