package config

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return LoadWith(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 10, cfg.HorizonYears)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.AuthEnabled)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, 4, cfg.StreamMaxPerIP)
	assert.Zero(t, cfg.StreamInterval)
}

func TestLoad_Custom(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"SOLARWEATHER_HTTP_ADDR":      ":9000",
		"SOLARWEATHER_STORE_BACKEND":  "redis",
		"SOLARWEATHER_REDIS_ADDR":     "cache:6379",
		"SOLARWEATHER_REDIS_DB":       "2",
		"SOLARWEATHER_HORIZON_YEARS":  "1",
		"SOLARWEATHER_WORKERS":        "3",
		"SOLARWEATHER_CACHE_TTL":      "30s",
		"SOLARWEATHER_RATE_LIMIT_RPS": "2.5",
		"SOLARWEATHER_LOG_FORMAT":     "text",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 1, cfg.HorizonYears)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_UnprefixedIgnored(t *testing.T) {
	cfg, err := load(t, map[string]string{"HTTP_ADDR": ":1"})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"auth without token", map[string]string{"SOLARWEATHER_AUTH_ENABLED": "true"}, "AUTH_TOKEN is required"},
		{"bad bool", map[string]string{"SOLARWEATHER_AUTH_ENABLED": "maybe"}, "failed to process config"},
		{"unknown backend", map[string]string{"SOLARWEATHER_STORE_BACKEND": "mongo"}, `unknown store backend "mongo"`},
		{"postgres without url", map[string]string{"SOLARWEATHER_STORE_BACKEND": "postgres"}, "DATABASE_URL is required"},
		{"gcs without bucket", map[string]string{"SOLARWEATHER_STORE_BACKEND": "gcs"}, "GCS_BUCKET is required"},
		{"zero horizon", map[string]string{"SOLARWEATHER_HORIZON_YEARS": "0"}, "HORIZON_YEARS must be at least 1"},
		{"bad level", map[string]string{"SOLARWEATHER_LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad format", map[string]string{"SOLARWEATHER_LOG_FORMAT": "xml"}, "LOG_FORMAT must be json or text"},
		{"no streams", map[string]string{"SOLARWEATHER_STREAM_MAX_PER_IP": "0"}, "STREAM_MAX_PER_IP must be at least 1"},
		{"slow stream", map[string]string{"SOLARWEATHER_STREAM_INTERVAL": "1m"}, "STREAM_INTERVAL must be between"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(t, tt.env)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Config{
		LogLevel:     "info",
		LogFormat:    "json",
		StoreBackend: "mongo",
		HorizonYears: 0,
		AuthEnabled:  true,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_TOKEN")
	assert.Contains(t, err.Error(), "HORIZON_YEARS")
	assert.Contains(t, err.Error(), "mongo")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.NewLogger(&buf).Warn("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
