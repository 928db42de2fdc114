package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bltp/config"
	"bltp/internal/livefeed"
	"bltp/internal/market"
	"bltp/logger"

	"go.uber.org/zap"
)

// livefeed follows per-issuer liquidity updates and periodically logs the
// merged heatmap. Without livefeed.url it simulates the feed locally.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src livefeed.Source
	if cfg.LiveFeed.URL != "" {
		src = livefeed.NewStreamSource(cfg.LiveFeed.URL, livefeed.DefaultBackoff, log.Named("stream"))
		log.Info("following server feed", zap.String("url", cfg.LiveFeed.URL))
	} else {
		src = livefeed.NewSimulator(market.NewRand(cfg.Market.Seed), market.RealClock{},
			cfg.LiveFeed.MinInterval, cfg.LiveFeed.MaxInterval)
		log.Info("simulating feed",
			zap.Duration("min_interval", cfg.LiveFeed.MinInterval),
			zap.Duration("max_interval", cfg.LiveFeed.MaxInterval))
	}

	consumer := livefeed.NewConsumer(src, cfg.LiveFeed.Capacity, log.Named("consumer"))
	consumer.Start(ctx)
	defer consumer.Stop()

	ticker := time.NewTicker(cfg.LiveFeed.PrintInterval)
	defer ticker.Stop()

	rows := livefeed.DefaultRows()
	for {
		select {
		case <-ctx.Done():
			log.Info("live feed stopped", zap.Int("buffered", len(consumer.Entries())))
			return
		case <-ticker.C:
			rows = livefeed.MergeRows(rows, consumer)
			for _, r := range rows {
				log.Info("heatmap",
					zap.String("issuer", r.Issuer),
					zap.Int("liquidity", r.Liquidity),
					zap.Float64("yield", r.Yield),
					zap.String("volume", r.Volume),
					zap.String("trend", string(r.Trend)),
					zap.String("trend_value", r.TrendValue),
					zap.String("score", r.Score),
				)
			}
		}
	}
}
