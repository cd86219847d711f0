package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canary/internal/api"
	"canary/internal/config"
	"canary/internal/database"
	"canary/internal/domain"
	"canary/internal/events"
	"canary/internal/metrics"
	"canary/internal/repository"
	"canary/internal/retry"
	"canary/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

var redisConnectRetry = retry.Policy{
	MaxAttempts:   3,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      2 * time.Second,
	BackoffFactor: 2,
}

func runServe(parent context.Context, configPath string, build buildInfo) error {
	cfg, logger, closer, err := loadConfigAndLogger(configPath, "api-main")
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	logger.Info().Str("build", build.Version).Str("commit", build.Commit).Msg("starting canary")

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, cleanup, err := initCache(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer cleanup()

	bus := initEventBus(&logger)
	items := service.NewItemService(db, cache, bus, &logger)
	httpServer := api.NewHTTPServer(cfg, items, &logger)

	go database.NewBackupService(db.Path(), cfg.Backup, &logger).Start(ctx)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

// initCache picks the list cache. A nil cache means every list hits the store.
func initCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.ItemCache, func(), error) {
	noop := func() {}

	ttl, err := cfg.Cache.TTLDuration()
	if err != nil {
		return nil, noop, err
	}

	switch cfg.Cache.Driver {
	case config.CacheDriverMemory:
		logger.Info().Dur("ttl", ttl).Msg("memory item cache enabled")
		return repository.NewMemoryItemCache(ttl), noop, nil
	case config.CacheDriverRedis:
		memory := repository.NewMemoryItemCache(ttl)
		client := repository.NewRedisClient(cfg.Redis)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		err := redisConnectRetry.Do(pingCtx, func(ctx context.Context) error {
			return repository.Ping(ctx, client)
		})
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis connection failed, using memory cache")
			_ = repository.Close(client)
			return memory, noop, nil
		}

		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
		redisCache := repository.NewRedisItemCache(client, cfg.Redis.KeyPrefix, ttl)
		return repository.NewFailoverItemCache(redisCache, memory, logger), func() { _ = repository.Close(client) }, nil
	default:
		return nil, noop, nil
	}
}

func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	audit := logger.With().Str("component", "audit").Logger()

	bus.OnError(func(event *events.Event, err error) {
		audit.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
	})

	bus.SubscribeAll(func(event *events.Event) error {
		audit.Info().
			Uint64("seq", event.Seq).
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Time("at", event.CreatedAt).
			Msg("item event")
		return nil
	})
	return bus
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
		return err
	}

	logger.Info().Msg("API server stopped")
	return nil
}
