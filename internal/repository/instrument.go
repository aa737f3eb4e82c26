package repository

import (
	"context"
	"time"

	"github.com/star/solarweather/internal/metrics"
	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

var resultClassifiers = []metrics.ErrorClassifier{
	metrics.Is(ErrAlreadyExists, "already_exists"),
	metrics.Is(ErrNotFound, "not_found"),
	metrics.Is(simulation.ErrDayNotFound, "not_found"),
}

// Instrumented records Prometheus metrics for every call to the wrapped repository.
type Instrumented struct {
	next    Repository
	backend string
}

// Instrument wraps repo, labeling its metrics with backend.
func Instrument(repo Repository, backend string) *Instrumented {
	return &Instrumented{next: repo, backend: backend}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	metrics.ObserveStore(i.backend, op, start, err, resultClassifiers...)
}

func (i *Instrumented) Store(ctx context.Context, s *simulation.Simulation) error {
	start := time.Now()
	err := i.next.Store(ctx, s)
	i.observe("store", start, err)
	return err
}

func (i *Instrumented) Exists(ctx context.Context) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx)
	i.observe("exists", start, err)
	return ok, err
}

func (i *Instrumented) FetchDay(ctx context.Context, n int) (weather.Day, error) {
	start := time.Now()
	d, err := i.next.FetchDay(ctx, n)
	i.observe("fetch_day", start, err)
	return d, err
}

func (i *Instrumented) FetchSummary(ctx context.Context) (simulation.Summary, error) {
	start := time.Now()
	s, err := i.next.FetchSummary(ctx)
	i.observe("fetch_summary", start, err)
	return s, err
}

// Reset forwards to the wrapped repository if it supports resetting.
func (i *Instrumented) Reset(ctx context.Context) error {
	r, ok := i.next.(Resetter)
	if !ok {
		return errResetUnsupported(i.backend)
	}
	start := time.Now()
	err := r.Reset(ctx)
	i.observe("reset", start, err)
	return err
}

func (i *Instrumented) Ping(ctx context.Context) error {
	return i.next.Ping(ctx)
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}

// Backend returns the backend label.
func (i *Instrumented) Backend() string {
	return i.backend
}
