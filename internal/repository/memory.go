package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

// Memory keeps the simulation in process memory. It is owned by whoever
// creates it and shared by reference.
type Memory struct {
	current atomic.Pointer[simulation.Simulation]
	mu      sync.Mutex // serializes Store and Reset
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{}
}

// Store keeps s. The simulation must not be modified afterwards.
func (m *Memory) Store(_ context.Context, s *simulation.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Load() != nil {
		return ErrAlreadyExists
	}
	m.current.Store(s)
	return nil
}

func (m *Memory) Exists(context.Context) (bool, error) {
	return m.current.Load() != nil, nil
}

func (m *Memory) FetchDay(_ context.Context, n int) (weather.Day, error) {
	s := m.current.Load()
	if s == nil {
		return weather.Day{}, ErrNotFound
	}
	return s.LookupDay(n)
}

func (m *Memory) FetchSummary(context.Context) (simulation.Summary, error) {
	s := m.current.Load()
	if s == nil {
		return simulation.Summary{}, ErrNotFound
	}
	return s.Summary, nil
}

// Simulation returns the stored simulation, or nil if none has been stored.
func (m *Memory) Simulation() *simulation.Simulation {
	return m.current.Load()
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Store(nil)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
