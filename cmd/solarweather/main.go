package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/solarweather/internal/api"
	"github.com/star/solarweather/internal/auth"
	"github.com/star/solarweather/internal/cache"
	"github.com/star/solarweather/internal/config"
	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/repository"
	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/stream"
	"github.com/star/solarweather/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	store, err := repository.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var repo repository.Repository = store
	var cacheStats func() cache.CacheStats

	// The memory backend is already in-process; caching it would only copy days.
	if cfg.CacheEnabled && cfg.StoreBackend != config.BackendMemory {
		dayCache := cache.NewDayCache(cache.Config{
			TTL:        cfg.CacheTTL,
			MaxEntries: cfg.CacheMaxEntries,
		}, store, logger)
		go dayCache.Start(ctx)

		repo = dayCache
		cacheStats = dayCache.Stats
	}

	gen := simulation.NewGenerator(cfg.Workers, logger)
	horizon := forecast.HorizonDays(cfg.HorizonYears, time.Now())
	svc := forecast.NewService(repo, gen, horizon, logger)

	srv := api.NewServer(api.Options{
		Addr:           cfg.HTTPAddr,
		Auth:           auth.Config{Enabled: cfg.AuthEnabled, Token: cfg.AuthToken},
		TrustProxy:     cfg.TrustProxy,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		CacheStats:     cacheStats,
		Stream: stream.Config{
			MaxConcurrentPerIP: cfg.StreamMaxPerIP,
			Interval:           cfg.StreamInterval,
		},
		Web: web.Content,
	}, svc, logger)

	go srv.Start(ctx)

	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr,
			"backend", cfg.StoreBackend,
			"horizon_days", horizon,
			"workers", cfg.Workers,
			"auth_enabled", cfg.AuthEnabled,
			"cache_enabled", cacheStats != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
