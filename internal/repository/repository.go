// Package repository persists a generated simulation and serves it back one
// day at a time. Every backend stores at most one simulation: Store is a
// create-once operation, not an upsert.
package repository

import (
	"context"
	"errors"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

var (
	// ErrAlreadyExists is returned by Store when a simulation is already stored.
	ErrAlreadyExists = errors.New("simulation already exists")
	// ErrNotFound is returned when no simulation has been stored yet.
	ErrNotFound = errors.New("no simulation stored")
)

// Repository is the read/write contract shared by every backend.
// FetchDay returns an error wrapping simulation.ErrDayNotFound when the day
// falls outside the stored horizon.
type Repository interface {
	Store(ctx context.Context, s *simulation.Simulation) error
	Exists(ctx context.Context) (bool, error)
	FetchDay(ctx context.Context, n int) (weather.Day, error)
	FetchSummary(ctx context.Context) (simulation.Summary, error)
	Ping(ctx context.Context) error
	Close() error
}

// Resetter is implemented by backends that can discard the stored simulation.
type Resetter interface {
	Reset(ctx context.Context) error
}

// IsNotFound reports whether err means the requested data does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, simulation.ErrDayNotFound)
}
