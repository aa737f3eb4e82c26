package simulation

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/solarweather/internal/orbit"
	"github.com/star/solarweather/internal/weather"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestBuild_Empty(t *testing.T) {
	s := Build(0)

	assert.Empty(t, s.Days)
	assert.Equal(t, 0, s.Total())
	assert.Equal(t, 0.0, s.MaxPerimeter)
	assert.NotNil(t, s.PeakDays)
	assert.Empty(t, s.PeakDays)
	assert.True(t, NewValidator().Validate(s))
}

func TestBuild_SingleDay(t *testing.T) {
	s := Build(1)

	require.Len(t, s.Days, 1)
	assert.Equal(t, weather.Dry, s.Days[0].Condition)
	assert.Equal(t, 1, s.DryCount)
	assert.Equal(t, 0, s.RainCount)
	assert.Empty(t, s.PeakDays)
	assert.Equal(t, 0.0, s.MaxPerimeter)
}

func TestBuild_TenYearPeaks(t *testing.T) {
	s := Build(3653)

	assert.Equal(t, []int{2808, 2952, 3492}, s.PeakDays)
	assert.Equal(t, 1202, s.RainCount)
	assert.InDelta(t, 6262.300354242005, s.MaxPerimeter, 1e-9)
	for _, n := range s.PeakDays {
		assert.Equal(t, weather.RainPeak, s.Days[n].Condition, "day %d", n)
		assert.Equal(t, s.MaxPerimeter, s.Days[n].Perimeter, "day %d", n)
	}
}

func TestBuild_Year(t *testing.T) {
	s := Build(360)

	require.Len(t, s.Days, 360)
	assert.Equal(t, 360, s.Horizon)
	assert.Equal(t, 360, s.Total())
	assert.Greater(t, s.RainCount, 0)
	assert.Greater(t, s.DryCount, 0)
	assert.Greater(t, s.OptimalCount, 0)
	require.NotEmpty(t, s.PeakDays)

	var rain, dry, optimal, normal int
	for i, d := range s.Days {
		assert.Equal(t, i, d.Number)
		switch d.Condition {
		case weather.Rain, weather.RainPeak:
			rain++
			assert.LessOrEqual(t, d.Perimeter, s.MaxPerimeter)
		case weather.Dry:
			dry++
		case weather.Optimal:
			optimal++
		default:
			normal++
		}
	}
	assert.Equal(t, s.RainCount, rain)
	assert.Equal(t, s.DryCount, dry)
	assert.Equal(t, s.OptimalCount, optimal)
	assert.Equal(t, s.NormalCount, normal)

	for _, n := range s.PeakDays {
		assert.Equal(t, weather.RainPeak, s.Days[n].Condition)
		assert.Equal(t, s.MaxPerimeter, s.Days[n].Perimeter)
	}

	v := NewValidator()
	assert.True(t, v.Validate(s))
	assert.Empty(t, v.Errors())
}

func TestBuild_KnownDays(t *testing.T) {
	s := Build(360)

	assert.Equal(t, weather.Dry, s.Days[0].Condition)
	assert.Equal(t, weather.Dry, s.Days[180].Condition)
	assert.Equal(t, weather.Optimal, s.Days[64].Condition)
	assert.Equal(t, weather.Optimal, s.Days[116].Condition)
	assert.True(t, s.Days[23].Condition.IsRain())
	assert.Equal(t, weather.Normal, s.Days[45].Condition)
}

func TestMarkPeaks_Idempotent(t *testing.T) {
	s := Build(360)
	before := append([]weather.Day(nil), s.Days...)

	s.markPeaks()
	assert.Equal(t, before, s.Days)
}

func TestLookupDay(t *testing.T) {
	s := Build(10)

	d, err := s.LookupDay(0)
	require.NoError(t, err)
	assert.Equal(t, weather.Dry, d.Condition)

	d, err = s.LookupDay(9)
	require.NoError(t, err)
	assert.Equal(t, 9, d.Number)

	for _, n := range []int{-1, 10, 1000} {
		_, err := s.LookupDay(n)
		assert.ErrorIs(t, err, ErrDayNotFound, "day %d", n)
	}
}

func TestLookupDay_ReturnsCopy(t *testing.T) {
	s := Build(5)

	d, err := s.LookupDay(2)
	require.NoError(t, err)
	d.Condition = weather.Optimal
	d.Perimeter = -1

	assert.NotEqual(t, d, s.Days[2])
}

func TestBuildParallel_MatchesSequential(t *testing.T) {
	seq := Build(720)

	for _, workers := range []int{1, 3, 8} {
		par, err := BuildParallel(context.Background(), 720, NewWorkerPool(workers, testLogger()))
		require.NoError(t, err)

		assert.Equal(t, seq.Days, par.Days, "workers=%d", workers)
		assert.Equal(t, seq.MaxPerimeter, par.MaxPerimeter)
		assert.Equal(t, seq.PeakDays, par.PeakDays)
		assert.Equal(t, seq.DryCount, par.DryCount)
		assert.Equal(t, seq.RainCount, par.RainCount)
		assert.Equal(t, seq.OptimalCount, par.OptimalCount)
		assert.Equal(t, seq.NormalCount, par.NormalCount)
	}
}

func TestBuildParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := BuildParallel(ctx, 100_000, NewWorkerPool(4, testLogger()))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWorkerPool_MinimumOneWorker(t *testing.T) {
	wp := NewWorkerPool(0, testLogger())
	assert.Equal(t, 1, wp.workers)

	days, err := wp.ClassifyBatch(context.Background(), 3, orbit.ReferenceBodies)
	require.NoError(t, err)
	assert.Len(t, days, 3)
}

func TestGenerate(t *testing.T) {
	g := NewGenerator(4, testLogger())

	s, err := g.Generate(context.Background(), 360)
	require.NoError(t, err)
	assert.Equal(t, 360, s.Total())
	assert.NotEmpty(t, s.PeakDays)
}

func TestGenerate_NegativeDayCount(t *testing.T) {
	g := NewGenerator(2, testLogger())

	s, err := g.Generate(context.Background(), -5)
	assert.Nil(t, s)

	var vf *ValidationFailure
	require.True(t, errors.As(err, &vf))
	require.NotEmpty(t, vf.Errors)
	assert.Equal(t, "horizon", vf.Errors[0].Field)
	assert.Contains(t, err.Error(), "must be non-negative")
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(*Simulation) bool { return false }
func (rejectingValidator) Errors() []ValidationError {
	return []ValidationError{{Field: "days", Message: "rejected"}}
}

func TestGenerate_CustomValidator(t *testing.T) {
	g := NewGenerator(2, testLogger()).WithValidator(func() Validator { return rejectingValidator{} })

	_, err := g.Generate(context.Background(), 10)

	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, "days: rejected", vf.Errors[0].Error())
}
