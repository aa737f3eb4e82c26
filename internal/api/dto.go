package api

import (
	"time"

	"github.com/star/solarweather/internal/geometry"
	"github.com/star/solarweather/internal/orbit"
	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

type bodyResponse struct {
	Name            string  `json:"name"`
	Velocity        float64 `json:"velocity"`
	Clockwise       bool    `json:"clockwise"`
	Radius          float64 `json:"radius"`
	Angle           float64 `json:"angle"`
	AngleNormalized float64 `json:"angle_normalized"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
}

func newBodyResponse(b orbit.Body) bodyResponse {
	c := b.Cartesian()
	return bodyResponse{
		Name:            b.Name,
		Velocity:        b.VelocityDeg,
		Clockwise:       b.Clockwise,
		Radius:          b.Position.Radius,
		Angle:           b.Position.AngleDegrees,
		AngleNormalized: geometry.NormalizeDegrees(b.Position.AngleDegrees),
		X:               c.X,
		Y:               c.Y,
	}
}

type dayResponse struct {
	Day       int               `json:"day"`
	Condition weather.Condition `json:"condition"`
	Perimeter float64           `json:"perimeter"`
	Bodies    []bodyResponse    `json:"bodies,omitempty"`
}

func newDayResponse(d weather.Day, withBodies bool) dayResponse {
	resp := dayResponse{Day: d.Number, Condition: d.Condition, Perimeter: d.Perimeter}
	if withBodies {
		resp.Bodies = make([]bodyResponse, len(d.Bodies))
		for i, b := range d.Bodies {
			resp.Bodies[i] = newBodyResponse(b)
		}
	}
	return resp
}

type summaryResponse struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Horizon      int       `json:"horizon"`
	MaxPerimeter float64   `json:"max_perimeter"`
	PeakDays     []int     `json:"peak_days"`
	DryDays      int       `json:"dry_days"`
	RainyDays    int       `json:"rainy_days"`
	OptimalDays  int       `json:"optimal_days"`
	NormalDays   int       `json:"normal_days"`
}

func newSummaryResponse(s simulation.Summary) summaryResponse {
	return summaryResponse{
		ID:           s.ID.String(),
		CreatedAt:    s.CreatedAt,
		Horizon:      s.Horizon,
		MaxPerimeter: s.MaxPerimeter,
		PeakDays:     s.PeakDays,
		DryDays:      s.DryCount,
		RainyDays:    s.RainCount,
		OptimalDays:  s.OptimalCount,
		NormalDays:   s.NormalCount,
	}
}

type periodResponse struct {
	Condition     weather.Condition `json:"condition"`
	Start         int               `json:"start_day"`
	End           int               `json:"end_day"`
	Length        int               `json:"length"`
	PeakDay       *int              `json:"peak_day,omitempty"`
	PeakPerimeter float64           `json:"peak_perimeter,omitempty"`
}

type periodsResponse struct {
	Counts  simulation.PeriodCounts `json:"counts"`
	Periods []periodResponse        `json:"periods"`
}

func newPeriodsResponse(periods []simulation.Period, counts simulation.PeriodCounts) periodsResponse {
	resp := periodsResponse{Counts: counts, Periods: make([]periodResponse, len(periods))}
	for i, p := range periods {
		resp.Periods[i] = periodResponse{
			Condition:     p.Condition,
			Start:         p.Start,
			End:           p.End,
			Length:        p.Length(),
			PeakDay:       p.PeakDay,
			PeakPerimeter: p.PeakPerimeter,
		}
	}
	return resp
}

// Legacy response shapes, kept byte-compatible with the first public API.

type legacySummary struct {
	DaysWithMaxRain []int   `json:"daysWithMaxRain"`
	DryDays         int     `json:"dryDays"`
	MaxPerimeter    float64 `json:"maxPerimeter"`
	NormalDays      int     `json:"normalDays"`
	OptimalDays     int     `json:"optimalDays"`
	RainyDays       int     `json:"rainyDays"`
}

type legacyCreated struct {
	Created bool          `json:"created"`
	Data    legacySummary `json:"data"`
}

type legacyWeather struct {
	Dia   int    `json:"dia"`
	Clima string `json:"clima"`
}

type messageResponse struct {
	Message string `json:"message"`
}
