// Package simulation runs the day-by-day forecast over a horizon and derives
// the aggregate statistics.
//
// A simulation is built in two phases: every day is classified independently,
// then the completed list is scanned once to compute counts and the maximum rain
// perimeter, and the days sharing that perimeter are relabeled as rain peaks.
// The relabeling is the only change made to a day after classification. Once
// Build returns, a Simulation is read-only and safe for concurrent readers.
package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/star/solarweather/internal/orbit"
	"github.com/star/solarweather/internal/weather"
)

// ErrDayNotFound is returned when a day index falls outside the simulated horizon.
var ErrDayNotFound = errors.New("day not found")

// Summary holds the aggregate statistics of a simulation.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Horizon      int       `json:"horizon"`
	MaxPerimeter float64   `json:"max_perimeter"` // 0 when no day rains
	PeakDays     []int     `json:"peak_days"`
	DryCount     int       `json:"dry_days"`
	RainCount    int       `json:"rainy_days"` // includes peak days
	OptimalCount int       `json:"optimal_days"`
	NormalCount  int       `json:"normal_days"`
}

// Total returns the number of classified days.
func (s Summary) Total() int {
	return s.DryCount + s.RainCount + s.OptimalCount + s.NormalCount
}

// Simulation is a completed forecast.
type Simulation struct {
	Summary
	Sun  orbit.Body
	Days []weather.Day
}

// Build classifies dayCount days sequentially using the reference bodies.
// A negative dayCount yields an empty simulation that fails validation.
func Build(dayCount int) *Simulation {
	return BuildWith(dayCount, orbit.ReferenceBodies)
}

// BuildWith is Build for an arbitrary three-body configuration.
func BuildWith(dayCount int, bodies [3]orbit.BodyConfig) *Simulation {
	s := newSimulation(dayCount)
	for i := 0; i < dayCount; i++ {
		s.Days = append(s.Days, weather.NewDayWith(i, bodies))
	}
	s.finish()
	return s
}

func newSimulation(dayCount int) *Simulation {
	return &Simulation{
		Summary: Summary{
			ID:        uuid.New(),
			CreatedAt: time.Now().UTC(),
			Horizon:   dayCount,
			PeakDays:  []int{},
		},
		Sun:  orbit.Sun(),
		Days: make([]weather.Day, 0, max(dayCount, 0)),
	}
}

// finish runs the aggregation phase followed by the peak relabeling phase.
func (s *Simulation) finish() {
	s.aggregate()
	s.markPeaks()
}

// aggregate computes the counts, the maximum rain perimeter and the peak days.
// Days must already be classified and in day order.
func (s *Simulation) aggregate() {
	var rain []int
	var dry, optimal int

	for i, d := range s.Days {
		switch d.Condition {
		case weather.Rain:
			rain = append(rain, i)
		case weather.Dry:
			dry++
		case weather.Optimal:
			optimal++
		}
	}

	s.MaxPerimeter = 0
	for j, i := range rain {
		if j == 0 || s.Days[i].Perimeter > s.MaxPerimeter {
			s.MaxPerimeter = s.Days[i].Perimeter
		}
	}

	s.PeakDays = []int{}
	for _, i := range rain {
		// Exact comparison: every perimeter comes from the same formula.
		if s.Days[i].Perimeter == s.MaxPerimeter {
			s.PeakDays = append(s.PeakDays, s.Days[i].Number)
		}
	}

	s.RainCount = len(rain)
	s.DryCount = dry
	s.OptimalCount = optimal
	s.NormalCount = len(s.Days) - (len(rain) + dry + optimal)
}

// markPeaks relabels the peak days. Applying it twice has no further effect.
func (s *Simulation) markPeaks() {
	for _, n := range s.PeakDays {
		s.Days[n].Condition = weather.RainPeak
	}
}

// LookupDay returns the forecast for day n.
func (s *Simulation) LookupDay(n int) (weather.Day, error) {
	if n < 0 || n >= len(s.Days) {
		return weather.Day{}, fmt.Errorf("day %d of %d: %w", n, len(s.Days), ErrDayNotFound)
	}
	return s.Days[n], nil
}
