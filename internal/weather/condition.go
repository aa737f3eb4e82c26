package weather

import "fmt"

// Condition is the weather produced by the alignment of the bodies on a given day.
type Condition uint8

const (
	// Normal is the default: the bodies form a triangle that does not contain the sun.
	Normal Condition = iota
	// Rain: the bodies form a triangle that contains the sun.
	Rain
	// RainPeak is a rain day whose perimeter equals the maximum over the simulation.
	// It is only assigned after every day has been classified.
	RainPeak
	// Dry: the bodies are aligned with each other and with the sun.
	Dry
	// Optimal: the bodies are aligned with each other but not with the sun.
	Optimal
)

// Conditions lists every condition in a stable order.
var Conditions = []Condition{Normal, Rain, RainPeak, Dry, Optimal}

func (c Condition) String() string {
	switch c {
	case Normal:
		return "normal"
	case Rain:
		return "rain"
	case RainPeak:
		return "rain_peak"
	case Dry:
		return "dry"
	case Optimal:
		return "optimal"
	default:
		return "unknown"
	}
}

// Legacy returns the condition name used by the first version of the public API.
func (c Condition) Legacy() string {
	switch c {
	case Normal:
		return "normal"
	case Rain:
		return "lluvia"
	case RainPeak:
		return "pico"
	case Dry:
		return "sequia"
	case Optimal:
		return "optima"
	default:
		return "unknown"
	}
}

// IsRain reports whether the condition belongs to the rain family.
func (c Condition) IsRain() bool {
	return c == Rain || c == RainPeak
}

// ParseCondition parses both the current and the legacy names.
func ParseCondition(s string) (Condition, bool) {
	for _, c := range Conditions {
		if s == c.String() || s == c.Legacy() {
			return c, true
		}
	}
	return Normal, false
}

// MarshalText implements encoding.TextMarshaler.
func (c Condition) MarshalText() ([]byte, error) {
	if c > Optimal {
		return nil, fmt.Errorf("unknown weather condition %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Condition) UnmarshalText(text []byte) error {
	parsed, ok := ParseCondition(string(text))
	if !ok {
		return fmt.Errorf("unknown weather condition %q", text)
	}
	*c = parsed
	return nil
}
