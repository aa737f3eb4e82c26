package simulation

import (
	"fmt"
	"strings"

	"github.com/star/solarweather/internal/weather"
)

// ValidationError describes one structural problem found in a simulation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationFailure is returned when a simulation does not pass validation.
// It carries every error found, not only the first.
type ValidationFailure struct {
	Errors []ValidationError
}

func (f *ValidationFailure) Error() string {
	msgs := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		msgs[i] = e.Error()
	}
	return "simulation validation failed: " + strings.Join(msgs, "; ")
}

// Validator checks a simulation before it is handed to callers.
type Validator interface {
	Validate(s *Simulation) bool
	Errors() []ValidationError
}

type simulationValidator struct {
	errors []ValidationError
}

// NewValidator returns the validator applied by Generate.
func NewValidator() Validator {
	return &simulationValidator{}
}

// Validate reports whether s is structurally sound. Errors from a previous
// call are discarded.
func (v *simulationValidator) Validate(s *Simulation) bool {
	v.errors = nil

	if s.Horizon < 0 {
		v.add("horizon", fmt.Sprintf("must be non-negative, got %d", s.Horizon))
	}
	if want := max(s.Horizon, 0); len(s.Days) != want {
		v.add("days", fmt.Sprintf("expected %d days, got %d", want, len(s.Days)))
	}
	for i, d := range s.Days {
		if d.Number != i {
			v.add("days", fmt.Sprintf("day at index %d is numbered %d", i, d.Number))
			break
		}
	}
	if total := s.Total(); total != len(s.Days) {
		v.add("counts", fmt.Sprintf("counts add up to %d, want %d", total, len(s.Days)))
	}
	if (s.RainCount > 0) != (len(s.PeakDays) > 0) {
		v.add("peak_days", fmt.Sprintf("%d peak days for %d rainy days", len(s.PeakDays), s.RainCount))
	}
	for _, n := range s.PeakDays {
		if n < 0 || n >= len(s.Days) {
			v.add("peak_days", fmt.Sprintf("peak day %d outside horizon", n))
			continue
		}
		d := s.Days[n]
		if d.Condition != weather.RainPeak {
			v.add("peak_days", fmt.Sprintf("peak day %d has condition %s", n, d.Condition))
		}
		if d.Perimeter != s.MaxPerimeter {
			v.add("peak_days", fmt.Sprintf("peak day %d perimeter %g differs from max %g", n, d.Perimeter, s.MaxPerimeter))
		}
	}

	return len(v.errors) == 0
}

// Errors returns the errors accumulated by the last Validate call.
func (v *simulationValidator) Errors() []ValidationError {
	return v.errors
}

func (v *simulationValidator) add(field, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: msg})
}
