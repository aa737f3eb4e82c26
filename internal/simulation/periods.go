package simulation

import "github.com/star/solarweather/internal/weather"

// Period is a run of consecutive days sharing a condition. Rain and rain-peak
// days belong to the same rain period.
type Period struct {
	Condition     weather.Condition `json:"condition"`
	Start         int               `json:"start_day"`
	End           int               `json:"end_day"` // inclusive
	PeakDay       *int              `json:"peak_day,omitempty"`
	PeakPerimeter float64           `json:"peak_perimeter,omitempty"`
}

// Length returns the number of days in the period.
func (p Period) Length() int {
	return p.End - p.Start + 1
}

// PeriodCounts tallies periods per condition.
type PeriodCounts struct {
	Dry     int `json:"dry"`
	Rain    int `json:"rain"`
	Optimal int `json:"optimal"`
	Normal  int `json:"normal"`
}

// family folds rain peaks into rain.
func family(c weather.Condition) weather.Condition {
	if c.IsRain() {
		return weather.Rain
	}
	return c
}

// Periods groups consecutive days into periods. Days must be in day order.
// For rain periods, PeakDay is the first day with the largest perimeter.
func Periods(days []weather.Day) []Period {
	var periods []Period

	for _, d := range days {
		cond := family(d.Condition)

		if n := len(periods); n > 0 && periods[n-1].Condition == cond && periods[n-1].End == d.Number-1 {
			p := &periods[n-1]
			p.End = d.Number
			if cond == weather.Rain && d.Perimeter > p.PeakPerimeter {
				p.PeakDay = intPtr(d.Number)
				p.PeakPerimeter = d.Perimeter
			}
			continue
		}

		p := Period{Condition: cond, Start: d.Number, End: d.Number}
		if cond == weather.Rain {
			p.PeakDay = intPtr(d.Number)
			p.PeakPerimeter = d.Perimeter
		}
		periods = append(periods, p)
	}

	return periods
}

// CountPeriods tallies periods per condition.
func CountPeriods(periods []Period) PeriodCounts {
	var c PeriodCounts
	for _, p := range periods {
		switch p.Condition {
		case weather.Dry:
			c.Dry++
		case weather.Rain:
			c.Rain++
		case weather.Optimal:
			c.Optimal++
		default:
			c.Normal++
		}
	}
	return c
}

func intPtr(v int) *int {
	return &v
}
