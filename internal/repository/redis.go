package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

// redisBatch is the number of days written per pipeline round trip.
const redisBatch = 500

// Redis stores the simulation under three keys: a create-once lock, a hash of
// day records and the summary. The summary is written last, so its presence
// means the days are complete.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisClient(client, opts.Prefix, logger), nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	if prefix == "" {
		prefix = "solarweather"
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) lockKey() string    { return r.prefix + ":lock" }
func (r *Redis) daysKey() string    { return r.prefix + ":days" }
func (r *Redis) summaryKey() string { return r.prefix + ":summary" }

func (r *Redis) Store(ctx context.Context, s *simulation.Simulation) (err error) {
	acquired, err := r.client.SetNX(ctx, r.lockKey(), s.ID.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire simulation lock: %w", err)
	}
	if !acquired {
		return ErrAlreadyExists
	}
	defer func() {
		if err == nil {
			return
		}
		// Release the lock so a later Store can retry.
		if delErr := r.client.Del(context.WithoutCancel(ctx), r.daysKey(), r.lockKey()).Err(); delErr != nil {
			r.logger.Error("failed to release simulation lock", "error", delErr)
		}
	}()

	records := dayRecords(s)
	for start := 0; start < len(records); start += redisBatch {
		end := min(start+redisBatch, len(records))
		fields := make([]any, 0, 2*(end-start))
		for _, rec := range records[start:end] {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encoding day %d: %w", rec.Number, err)
			}
			fields = append(fields, strconv.Itoa(rec.Number), data)
		}
		if err := r.client.HSet(ctx, r.daysKey(), fields...).Err(); err != nil {
			return fmt.Errorf("failed to write days %d-%d: %w", start, end-1, err)
		}
	}

	summary, err := json.Marshal(NewSummaryRecord(s.Summary))
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := r.client.Set(ctx, r.summaryKey(), summary, 0).Err(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	r.logger.Info("simulation stored in redis", "id", s.ID.String(), "days", len(records), "prefix", r.prefix)
	return nil
}

func (r *Redis) Exists(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, r.summaryKey()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check simulation: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) FetchDay(ctx context.Context, n int) (weather.Day, error) {
	data, err := r.client.HGet(ctx, r.daysKey(), strconv.Itoa(n)).Bytes()
	if errors.Is(err, redis.Nil) {
		s, err := r.FetchSummary(ctx)
		if err != nil {
			return weather.Day{}, err
		}
		return weather.Day{}, dayOutOfRange(n, s.Horizon)
	}
	if err != nil {
		return weather.Day{}, fmt.Errorf("failed to get day %d: %w", n, err)
	}

	var rec DayRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return weather.Day{}, fmt.Errorf("decoding day %d: %w", n, err)
	}
	return rec.Day()
}

func (r *Redis) FetchSummary(ctx context.Context) (simulation.Summary, error) {
	data, err := r.client.Get(ctx, r.summaryKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return simulation.Summary{}, ErrNotFound
	}
	if err != nil {
		return simulation.Summary{}, fmt.Errorf("failed to get summary: %w", err)
	}

	var rec SummaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return simulation.Summary{}, fmt.Errorf("decoding summary: %w", err)
	}
	return rec.Summary(), nil
}

// Reset deletes every key of this repository.
func (r *Redis) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.summaryKey(), r.daysKey(), r.lockKey()).Err(); err != nil {
		return fmt.Errorf("failed to reset simulation: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
