package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/star/solarweather/internal/geometry"
	"github.com/star/solarweather/internal/orbit"
	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

// BodyRecord is the stored form of a positioned body.
type BodyRecord struct {
	Name      string  `json:"name"`
	Velocity  float64 `json:"velocity"`
	Clockwise bool    `json:"clockwise"`
	Radius    float64 `json:"radius"`
	Angle     float64 `json:"angle"`
}

// DayRecord is the stored form of a day.
type DayRecord struct {
	Number    int               `json:"day"`
	Bodies    []BodyRecord      `json:"bodies"`
	Condition weather.Condition `json:"condition"`
	Perimeter float64           `json:"perimeter"`
}

// NewDayRecord converts a day to its stored form.
func NewDayRecord(d weather.Day) DayRecord {
	r := DayRecord{
		Number:    d.Number,
		Bodies:    make([]BodyRecord, len(d.Bodies)),
		Condition: d.Condition,
		Perimeter: d.Perimeter,
	}
	for i, b := range d.Bodies {
		r.Bodies[i] = BodyRecord{
			Name:      b.Name,
			Velocity:  b.VelocityDeg,
			Clockwise: b.Clockwise,
			Radius:    b.Position.Radius,
			Angle:     b.Position.AngleDegrees,
		}
	}
	return r
}

// Day rebuilds the day. Converting a day to a record and back yields an equal day.
func (r DayRecord) Day() (weather.Day, error) {
	var d weather.Day
	if len(r.Bodies) != len(d.Bodies) {
		return d, fmt.Errorf("day %d: expected %d bodies, got %d", r.Number, len(d.Bodies), len(r.Bodies))
	}
	d.Number = r.Number
	d.Condition = r.Condition
	d.Perimeter = r.Perimeter
	for i, b := range r.Bodies {
		d.Bodies[i] = orbit.Body{
			Name:        b.Name,
			VelocityDeg: b.Velocity,
			Clockwise:   b.Clockwise,
			Position:    geometry.Polar{Radius: b.Radius, AngleDegrees: b.Angle},
		}
	}
	return d, nil
}

// SummaryRecord is the stored form of the aggregate statistics.
type SummaryRecord struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Horizon      int       `json:"horizon"`
	MaxPerimeter float64   `json:"max_perimeter"`
	PeakDays     []int     `json:"peak_days"`
	DryCount     int       `json:"dry_days"`
	RainCount    int       `json:"rainy_days"`
	OptimalCount int       `json:"optimal_days"`
	NormalCount  int       `json:"normal_days"`
}

// NewSummaryRecord converts a summary to its stored form.
func NewSummaryRecord(s simulation.Summary) SummaryRecord {
	return SummaryRecord(s)
}

// Summary rebuilds the summary.
func (r SummaryRecord) Summary() simulation.Summary {
	s := simulation.Summary(r)
	if s.PeakDays == nil {
		s.PeakDays = []int{}
	}
	return s
}

// dayRecords converts every day of s.
func dayRecords(s *simulation.Simulation) []DayRecord {
	out := make([]DayRecord, len(s.Days))
	for i, d := range s.Days {
		out[i] = NewDayRecord(d)
	}
	return out
}

// dayOutOfRange is the error returned for a day outside the stored horizon.
func dayOutOfRange(n, horizon int) error {
	return fmt.Errorf("day %d of %d: %w", n, horizon, simulation.ErrDayNotFound)
}
