package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/star/solarweather/internal/config"
)

// New opens the backend selected by cfg.StoreBackend and instruments it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Instrumented, error) {
	logger = logger.With("backend", cfg.StoreBackend)

	var (
		repo Repository
		err  error
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		repo = NewMemory()
	case config.BackendFile:
		repo = NewFile(cfg.FileDir, logger)
	case config.BackendPostgres:
		repo, err = NewPostgres(ctx, cfg.DatabaseURL, logger)
	case config.BackendRedis:
		repo, err = NewRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, logger)
	case config.BackendGCS:
		repo, err = NewGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.StoreBackend, err)
	}

	logger.Info("repository opened")
	return Instrument(repo, cfg.StoreBackend), nil
}

func errResetUnsupported(backend string) error {
	return fmt.Errorf("%s store does not support reset", backend)
}
