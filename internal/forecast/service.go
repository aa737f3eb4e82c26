// Package forecast implements the use cases behind the public API: generate
// the forecast once and answer questions about it.
//
// Business outcomes (already generated, invalid input, day not found) are
// returned as tagged results. The error return is reserved for failures of
// the backing store.
package forecast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/star/solarweather/internal/repository"
	"github.com/star/solarweather/internal/simulation"
)

// Service runs the forecast use cases against a repository.
type Service struct {
	repo        repository.Repository
	generator   *simulation.Generator
	defaultDays int
	logger      *slog.Logger

	mu         sync.Mutex
	rebuilt    *simulation.Simulation // days recomputed for the stored summary
	rebuiltFor uuid.UUID
}

// NewService creates a service. defaultDays is the horizon used when a
// generation request does not name one.
func NewService(repo repository.Repository, generator *simulation.Generator, defaultDays int, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		generator:   generator,
		defaultDays: defaultDays,
		logger:      logger,
	}
}

// DefaultDays returns the horizon used when none is requested.
func (s *Service) DefaultDays() int {
	return s.defaultDays
}

// Generate builds, validates and stores a forecast for the given number of
// days. The store is checked first so an existing forecast is not recomputed.
func (s *Service) Generate(ctx context.Context, days int) (GenerateResult, error) {
	exists, err := s.repo.Exists(ctx)
	if err != nil {
		return GenerateResult{}, err
	}
	if exists {
		return GenerateResult{Outcome: AlreadyExists}, nil
	}

	sim, err := s.generator.Generate(ctx, days)
	var vf *simulation.ValidationFailure
	if errors.As(err, &vf) {
		s.logger.Warn("simulation rejected", "day_count", days, "errors", len(vf.Errors))
		return GenerateResult{Outcome: Invalid, Errors: vf.Errors}, nil
	}
	if err != nil {
		return GenerateResult{}, err
	}

	// A concurrent request may have stored first.
	if err := s.repo.Store(ctx, sim); errors.Is(err, repository.ErrAlreadyExists) {
		return GenerateResult{Outcome: AlreadyExists}, nil
	} else if err != nil {
		return GenerateResult{}, err
	}

	s.remember(sim)
	return GenerateResult{Outcome: Created, Summary: sim.Summary}, nil
}

// GenerateYears is Generate with the horizon given in calendar years from now.
func (s *Service) GenerateYears(ctx context.Context, years int) (GenerateResult, error) {
	return s.Generate(ctx, HorizonDays(years, time.Now()))
}

// QueryDay returns the forecast for day n.
func (s *Service) QueryDay(ctx context.Context, n int) (QueryResult, error) {
	d, err := s.repo.FetchDay(ctx, n)
	if repository.IsNotFound(err) {
		return QueryResult{Outcome: NotFound}, nil
	}
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Outcome: Found, Day: d}, nil
}

// Summary returns the stored aggregate statistics.
func (s *Service) Summary(ctx context.Context) (SummaryResult, error) {
	sum, err := s.repo.FetchSummary(ctx)
	if repository.IsNotFound(err) {
		return SummaryResult{Outcome: NotFound}, nil
	}
	if err != nil {
		return SummaryResult{}, err
	}
	return SummaryResult{Outcome: Found, Summary: sum}, nil
}

// Days returns every day of the stored forecast. Classification is
// deterministic, so the days are recomputed from the stored horizon instead
// of being read back one by one.
func (s *Service) Days(ctx context.Context) (DaysResult, error) {
	sum, err := s.repo.FetchSummary(ctx)
	if repository.IsNotFound(err) {
		return DaysResult{Outcome: NotFound}, nil
	}
	if err != nil {
		return DaysResult{}, err
	}

	sim := s.rebuild(sum)
	return DaysResult{Outcome: Found, Summary: sum, Days: sim.Days}, nil
}

// Periods groups the stored forecast into periods of equal weather.
func (s *Service) Periods(ctx context.Context) (PeriodsResult, error) {
	res, err := s.Days(ctx)
	if err != nil || res.Outcome == NotFound {
		return PeriodsResult{Outcome: res.Outcome}, err
	}

	periods := simulation.Periods(res.Days)
	return PeriodsResult{
		Outcome: Found,
		Periods: periods,
		Counts:  simulation.CountPeriods(periods),
	}, nil
}

// Ready reports whether the backing store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) remember(sim *simulation.Simulation) {
	s.mu.Lock()
	s.rebuilt, s.rebuiltFor = sim, sim.ID
	s.mu.Unlock()
}

// rebuild returns the days for sum, recomputing them once per stored simulation.
func (s *Service) rebuild(sum simulation.Summary) *simulation.Simulation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rebuilt != nil && s.rebuiltFor == sum.ID {
		return s.rebuilt
	}

	sim := simulation.Build(sum.Horizon)
	if sim.RainCount != sum.RainCount || sim.DryCount != sum.DryCount || sim.MaxPerimeter != sum.MaxPerimeter {
		s.logger.Warn("recomputed forecast differs from stored summary",
			"id", sum.ID.String(),
			"stored_rainy_days", sum.RainCount,
			"recomputed_rainy_days", sim.RainCount,
		)
	}
	s.rebuilt, s.rebuiltFor = sim, sum.ID
	return sim
}
