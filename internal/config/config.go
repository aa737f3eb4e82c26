package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SOLARWEATHER_"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendGCS      = "gcs"
)

// Config holds all configuration for the forecast service.
type Config struct {
	// Server configuration
	HTTPAddr   string `env:"HTTP_ADDR,default=:8080"`
	TrustProxy bool   `env:"TRUST_PROXY,default=false"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	// Auth for the generation endpoints
	AuthEnabled bool   `env:"AUTH_ENABLED,default=false"`
	AuthToken   string `env:"AUTH_TOKEN"`

	// Storage
	StoreBackend  string `env:"STORE_BACKEND,default=memory"`
	FileDir       string `env:"FILE_DIR,default=/tmp/solarweather"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`
	RedisPrefix   string `env:"REDIS_PREFIX,default=solarweather"`
	GCSBucket     string `env:"GCS_BUCKET"`
	GCSPrefix     string `env:"GCS_PREFIX,default=solarweather"`

	// Simulation
	HorizonYears int `env:"HORIZON_YEARS,default=10"`
	Workers      int `env:"WORKERS"`

	// Day cache in front of the repository
	CacheEnabled    bool          `env:"CACHE_ENABLED,default=true"`
	CacheTTL        time.Duration `env:"CACHE_TTL,default=10m"`
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES,default=4096"`

	// Per-client rate limiting, 0 disables it
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20"`

	// Day stream
	StreamMaxPerIP int           `env:"STREAM_MAX_PER_IP,default=4"`
	StreamInterval time.Duration `env:"STREAM_INTERVAL,default=0s"`
}

// Load loads configuration from SOLARWEATHER_* environment variables.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith loads configuration from l, applying EnvPrefix.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	if c.AuthEnabled && c.AuthToken == "" {
		errs = append(errs, errors.New(EnvPrefix+"AUTH_TOKEN is required when auth is enabled"))
	}
	if c.HorizonYears < 1 {
		errs = append(errs, fmt.Errorf(EnvPrefix+"HORIZON_YEARS must be at least 1, got %d", c.HorizonYears))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf(EnvPrefix+"LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.FileDir == "" {
			errs = append(errs, errors.New(EnvPrefix+"FILE_DIR is required for the file backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New(EnvPrefix+"DATABASE_URL is required for the postgres backend"))
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New(EnvPrefix+"REDIS_ADDR is required for the redis backend"))
		}
	case BackendGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New(EnvPrefix+"GCS_BUCKET is required for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}

	if c.CacheEnabled && c.CacheTTL <= 0 {
		errs = append(errs, errors.New(EnvPrefix+"CACHE_TTL must be positive when the cache is enabled"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New(EnvPrefix+"RATE_LIMIT_RPS must not be negative"))
	}
	if c.StreamMaxPerIP < 1 {
		errs = append(errs, fmt.Errorf(EnvPrefix+"STREAM_MAX_PER_IP must be at least 1, got %d", c.StreamMaxPerIP))
	}
	if c.StreamInterval < 0 || c.StreamInterval > 10*time.Second {
		errs = append(errs, fmt.Errorf(EnvPrefix+"STREAM_INTERVAL must be between 0s and 10s, got %s", c.StreamInterval))
	}

	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf(EnvPrefix+"LOG_LEVEL: %w", err)
	}
	return level, nil
}

// NewLogger builds the service logger.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
