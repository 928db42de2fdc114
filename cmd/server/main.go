package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bltp/config"
	"bltp/internal/api"
	"bltp/internal/assistant"
	"bltp/internal/content"
	"bltp/internal/hub"
	"bltp/internal/market"
	"bltp/internal/refresher"
	"bltp/internal/scheduler"
	"bltp/internal/source"
	"bltp/internal/state"
	"bltp/logger"
	"bltp/pkg/alphavantage"
	"bltp/pkg/gemini"
	"bltp/pkg/storage/postgres"
	"bltp/pkg/storage/redis"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	rnd := market.NewRand(cfg.Market.Seed)
	clock := market.RealClock{}

	h := hub.New(log.Named("hub"))
	store := state.New(state.Options{
		Hub:           h,
		Rand:          rnd,
		Clock:         clock,
		LiquidityStep: cfg.Market.LiquidityStep,
		Logger:        log.Named("store"),
	})
	if err := seed(store, cfg.Market.MockBonds, rnd, clock); err != nil {
		return err
	}

	// side-channel sinks
	sinkTasks, closers, err := attachSinks(ctx, cfg, h, log)
	defer func() {
		for _, c := range closers {
			c()
		}
	}()
	if err != nil {
		return err
	}

	avClient := alphavantage.NewClient(cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.APIKey, cfg.AlphaVantage.Timeout)
	av := source.NewAlphaVantage(avClient, rnd, clock)
	if !av.Configured() {
		log.Warn("alpha vantage api key not set, market refresh disabled")
	}
	ref := refresher.New(refresher.Options{
		Store:   store,
		Indices: av,
		Bonds:   av,
		Delay:   cfg.AlphaVantage.CallDelay,
		Logger:  log.Named("refresher"),
	})

	gem := gemini.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
	if !gem.Configured() {
		log.Warn("gemini api key not set, assistant will answer with fallbacks")
	}

	tasks := append([]scheduler.Task{
		{
			Name:       "indices",
			Period:     cfg.Scheduler.IndexPeriod,
			RunAtStart: true,
			Run: func(ctx context.Context) error {
				_, err := ref.RefreshIndices(ctx)
				return err
			},
		},
		{
			Name:   "liquidity",
			Period: cfg.Scheduler.LiquidityPeriod,
			Run: func(context.Context) error {
				store.PerturbLiquidity()
				return nil
			},
		},
	}, sinkTasks...)
	sched := scheduler.New(log.Named("scheduler"), tasks...)
	sched.Start(ctx)

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewServer(api.Options{
			Store:          store,
			Refresher:      ref,
			History:        av,
			Advisor:        assistant.New(gem, log.Named("assistant")),
			Services:       api.Services{AlphaVantage: av.Configured(), Gemini: gem.Configured()},
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Clock:          clock,
			Logger:         log.Named("api"),
		}).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		sched.Stop()
		h.Close()
		return err
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	// closes websocket clients and drains the journal and mirror queues
	h.Close()
	log.Info("server stopped")
	return nil
}

// seed loads the synthetic bond universe and the embedded content.
func seed(store *state.Store, mockBonds int, rnd market.Rand, clock market.Clock) error {
	store.SetBonds(source.NewSynthetic(rnd, clock).Bonds(mockBonds))

	news, err := content.News(clock.Now())
	if err != nil {
		return err
	}
	store.SetNews(news)

	learning, err := content.Learning()
	if err != nil {
		return err
	}
	store.SetLearning(learning)
	return nil
}

// attachSinks registers the optional journal and mirror. It returns their
// maintenance tasks and the functions that release their connections after
// the hub is closed.
func attachSinks(ctx context.Context, cfg *config.Config, h *hub.Hub, log *zap.Logger) ([]scheduler.Task, []func(), error) {
	var (
		tasks   []scheduler.Task
		closers []func()
	)

	if cfg.Postgres.Enabled {
		pg, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Env)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, func() { _ = pg.Close() })

		if _, err := h.Register(postgres.NewJournal(pg, 0, log.Named("journal"))); err != nil {
			return nil, closers, err
		}
		if cfg.Postgres.Retention > 0 && cfg.Postgres.PrunePeriod > 0 {
			tasks = append(tasks, pruneTask(pg, cfg.Postgres.Retention, cfg.Postgres.PrunePeriod, log.Named("journal")))
		}
		log.Info("event journal enabled", zap.String("db", cfg.Postgres.DBName))
	}

	if cfg.Redis.Enabled {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, func() { _ = rdb.Close() })

		mirror := redis.NewMirror(rdb, cfg.Redis, log.Named("mirror"))
		if _, err := h.Register(mirror.Sink(0)); err != nil {
			return nil, closers, err
		}
		log.Info("redis mirror enabled", zap.String("addr", cfg.Redis.Addr), zap.String("channel", cfg.Redis.Channel))
	}

	return tasks, closers, nil
}

func pruneTask(pg *postgres.PostgresClient, retention, period time.Duration, log *zap.Logger) scheduler.Task {
	return scheduler.Task{
		Name:   "journal-prune",
		Period: period,
		Run: func(ctx context.Context) error {
			n, err := pg.DeleteOldEvents(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			log.Debug("journal pruned", zap.Int64("rows", n))
			return nil
		},
	}
}
