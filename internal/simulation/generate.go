package simulation

import (
	"context"
	"log/slog"
	"time"

	"github.com/star/solarweather/internal/metrics"
	"github.com/star/solarweather/internal/weather"
)

// Generator builds and validates simulations.
type Generator struct {
	pool         *WorkerPool
	newValidator func() Validator
	logger       *slog.Logger
}

// NewGenerator creates a generator that classifies days on the given number of workers.
func NewGenerator(workers int, logger *slog.Logger) *Generator {
	return &Generator{
		pool:         NewWorkerPool(workers, logger),
		newValidator: NewValidator,
		logger:       logger,
	}
}

// WithValidator replaces the validator factory. Validators keep per-call
// state, so a new one is created for every simulation.
func (g *Generator) WithValidator(newValidator func() Validator) *Generator {
	g.newValidator = newValidator
	return g
}

// Generate builds a simulation for dayCount days. It either returns a fully
// aggregated simulation or fails as a whole: a *ValidationFailure when the
// result does not validate, ctx.Err() when cancelled.
func (g *Generator) Generate(ctx context.Context, dayCount int) (*Simulation, error) {
	start := time.Now()

	s, err := BuildParallel(ctx, dayCount, g.pool)
	if err != nil {
		return nil, err
	}

	v := g.newValidator()
	if !v.Validate(s) {
		metrics.IncSimulationsRejected()
		return nil, &ValidationFailure{Errors: v.Errors()}
	}

	duration := time.Since(start)
	metrics.RecordSimulation(duration, map[string]int{
		weather.Dry.String():     s.DryCount,
		weather.Rain.String():    s.RainCount,
		weather.Optimal.String(): s.OptimalCount,
		weather.Normal.String():  s.NormalCount,
	})

	g.logger.Info("simulation generated",
		"id", s.ID.String(),
		"day_count", len(s.Days),
		"rainy_days", s.RainCount,
		"dry_days", s.DryCount,
		"optimal_days", s.OptimalCount,
		"normal_days", s.NormalCount,
		"max_perimeter", s.MaxPerimeter,
		"peak_days", len(s.PeakDays),
		"duration_ms", duration.Milliseconds(),
	)

	return s, nil
}
