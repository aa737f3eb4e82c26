package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// runContract exercises the behavior every backend must share.
func runContract(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	if r, ok := repo.(Resetter); ok {
		require.NoError(t, r.Reset(ctx))
	}

	t.Run("empty", func(t *testing.T) {
		exists, err := repo.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.FetchDay(ctx, 0)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.FetchSummary(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.NoError(t, repo.Ping(ctx))
	})

	sim := simulation.Build(360)

	t.Run("store", func(t *testing.T) {
		require.NoError(t, repo.Store(ctx, sim))

		exists, err := repo.Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("store twice", func(t *testing.T) {
		err := repo.Store(ctx, simulation.Build(10))
		assert.ErrorIs(t, err, ErrAlreadyExists)

		s, err := repo.FetchSummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 360, s.Horizon)
	})

	t.Run("fetch day round trip", func(t *testing.T) {
		for _, n := range []int{0, 1, 23, 64, 100, 180, 359} {
			d, err := repo.FetchDay(ctx, n)
			require.NoError(t, err, "day %d", n)
			assert.Equal(t, sim.Days[n], d, "day %d", n)
		}
		for _, n := range sim.PeakDays {
			d, err := repo.FetchDay(ctx, n)
			require.NoError(t, err)
			assert.Equal(t, weather.RainPeak, d.Condition)
		}
	})

	t.Run("fetch day outside horizon", func(t *testing.T) {
		for _, n := range []int{-1, 360, 5000} {
			_, err := repo.FetchDay(ctx, n)
			assert.ErrorIs(t, err, simulation.ErrDayNotFound, "day %d", n)
			assert.True(t, IsNotFound(err))
		}
	})

	t.Run("summary", func(t *testing.T) {
		s, err := repo.FetchSummary(ctx)
		require.NoError(t, err)

		assert.Equal(t, sim.ID, s.ID)
		assert.True(t, sim.CreatedAt.Equal(s.CreatedAt))
		assert.Equal(t, sim.MaxPerimeter, s.MaxPerimeter)
		assert.Equal(t, sim.PeakDays, s.PeakDays)
		assert.Equal(t, sim.DryCount, s.DryCount)
		assert.Equal(t, sim.RainCount, s.RainCount)
		assert.Equal(t, sim.OptimalCount, s.OptimalCount)
		assert.Equal(t, sim.NormalCount, s.NormalCount)
	})

	if r, ok := repo.(Resetter); ok {
		t.Run("reset", func(t *testing.T) {
			require.NoError(t, r.Reset(ctx))

			exists, err := repo.Exists(ctx)
			require.NoError(t, err)
			assert.False(t, exists)

			require.NoError(t, repo.Store(ctx, simulation.Build(5)))
			require.NoError(t, r.Reset(ctx))
		})
	}
}

// runConcurrentStore checks that exactly one of several racing writers wins.
func runConcurrentStore(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dupes   int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Store(ctx, simulation.Build(30))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrAlreadyExists):
				dupes++
			default:
				t.Errorf("unexpected store error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, dupes)
}
