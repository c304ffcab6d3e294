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

	"go.uber.org/zap"

	"tebaspos/backend/internal/cache"
	"tebaspos/backend/internal/config"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/events"
	"tebaspos/backend/internal/httpapi"
	"tebaspos/backend/internal/logger"
	"tebaspos/backend/internal/service"
	"tebaspos/backend/internal/stats"
	"tebaspos/backend/internal/store"
	"tebaspos/backend/internal/store/memory"
	pgstore "tebaspos/backend/internal/store/postgres"
	"tebaspos/backend/internal/tracing"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(cfg.Env); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.L()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	app, err := buildApp(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("POS backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	app.close()

	log.Info("server stopped")
}

type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.L().Warn("close error", zap.Error(err))
		}
	}
}

// buildApp wires the repository, dashboard cache, event publisher and
// tracer chosen by cfg. Only postgres is fatal when configured and down;
// redis and kafka degrade to local or no-op implementations.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logger.L()
	a := &app{closers: make([]func() error, 0, 4)}

	if cfg.JaegerEndpoint != "" {
		tp, err := tracing.Init("tebaspos", cfg.JaegerEndpoint)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() error { return tp.Shutdown(context.Background()) })
		}
	}

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set; refusing in-memory fallback: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		if err := pg.EnsureStore(ctx, domain.Store{ID: cfg.StoreID}); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("ensure default store: %w", err)
		}
		repo = pg
		a.closers = append(a.closers, pg.Close)
		log.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(cfg.StoreID)
		log.Info("repository: in-memory")
	}

	var statsCache cache.StatsCache = cache.NewMemoryStatsCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisStatsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			// A process-local cache would go stale across replicas.
			log.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
			_ = redisCache.Close()
			statsCache = cache.NoopStatsCache{}
		} else {
			statsCache = redisCache
			a.closers = append(a.closers, redisCache.Close)
			log.Info("cache: redis")
		}
	} else {
		log.Info("cache: memory")
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicSales)
		log.Info("events: kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopicSales))
	}
	a.closers = append(a.closers, publisher.Close)

	engine := stats.NewEngine(statsCache, cfg.StatsCacheTTL())
	svc := service.New(repo, engine, publisher, cfg.StoreID, cfg.Location())
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo, repo)
	a.handler = httpapi.New(svc, auth, cfg.AllowedOrigin).Handler()
	return a, nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
