package simulation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/star/solarweather/internal/orbit"
	"github.com/star/solarweather/internal/weather"
)

// classifyJob is a unit of work for the worker pool.
type classifyJob struct {
	day int
}

// WorkerPool classifies days on a fixed number of goroutines.
// Each day is independent, so the pool only has to put results back in order.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// ClassifyBatch classifies days [0, dayCount) and returns them in day order.
// If ctx is cancelled before every day is classified, it returns ctx.Err().
func (wp *WorkerPool) ClassifyBatch(ctx context.Context, dayCount int, bodies [3]orbit.BodyConfig) ([]weather.Day, error) {
	if dayCount <= 0 {
		return nil, nil
	}

	jobs := make(chan classifyJob, wp.workers*2)
	results := make(chan weather.Day, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				day := weather.NewDayWith(job.day, bodies)
				select {
				case results <- day:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i := 0; i < dayCount; i++ {
			select {
			case jobs <- classifyJob{day: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results by index.
	days := make([]weather.Day, dayCount)
	var received int
	for day := range results {
		days[day.Number] = day
		received++
	}

	if received != dayCount {
		if err := ctx.Err(); err != nil {
			wp.logger.Warn("classification cancelled",
				"classified", received,
				"day_count", dayCount,
			)
			return nil, err
		}
	}

	return days, nil
}

// BuildParallel is Build with the classification phase spread over the pool.
// The aggregation phase still runs once, over the days in order.
func BuildParallel(ctx context.Context, dayCount int, pool *WorkerPool) (*Simulation, error) {
	s := newSimulation(dayCount)
	days, err := pool.ClassifyBatch(ctx, dayCount, orbit.ReferenceBodies)
	if err != nil {
		return nil, err
	}
	s.Days = append(s.Days, days...)
	s.finish()
	return s, nil
}
