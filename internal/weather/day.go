// Package weather classifies a single day from the relative position of the
// orbiting bodies and the sun.
package weather

import (
	"github.com/star/solarweather/internal/geometry"
	"github.com/star/solarweather/internal/orbit"
)

// Day is the forecast for one day. It is not modified after NewDay returns,
// except for the rain to rain-peak relabeling performed by the simulation.
type Day struct {
	Number    int           `json:"day"`
	Bodies    [3]orbit.Body `json:"bodies"`
	Perimeter float64       `json:"perimeter"`
	Condition Condition     `json:"condition"`
}

// NewDay positions the reference bodies on the given day and classifies it.
func NewDay(number int) Day {
	return NewDayWith(number, orbit.ReferenceBodies)
}

// NewDayWith positions the given bodies on the given day and classifies it.
// The central body is always at the origin.
func NewDayWith(number int, configs [3]orbit.BodyConfig) Day {
	d := Day{Number: number}
	for i, cfg := range configs {
		d.Bodies[i] = orbit.At(cfg, number)
	}
	d.Condition, d.Perimeter = Classify(d.Bodies)
	return d
}

// Positions returns the cartesian position of each body, in the same order as Bodies.
func (d Day) Positions() [3]geometry.Cartesian {
	var out [3]geometry.Cartesian
	for i, b := range d.Bodies {
		out[i] = b.Cartesian()
	}
	return out
}

// Classify decides the condition for three positioned bodies around a central
// body at the origin. The perimeter is zero unless the bodies form a triangle.
func Classify(bodies [3]orbit.Body) (Condition, float64) {
	ref, b, c := order(bodies)
	return ClassifyPositions(ref.Cartesian(), b.Cartesian(), c.Cartesian(), geometry.Origin)
}

// ClassifyPositions is Classify on raw coordinates. ref must be the outermost body.
func ClassifyPositions(ref, b, c, central geometry.Cartesian) (Condition, float64) {
	slopeB := geometry.RoundedSlope(ref, b)
	slopeC := geometry.RoundedSlope(ref, c)

	if slopeB == slopeC {
		if slopeB == geometry.RoundedSlope(ref, central) {
			return Dry, 0
		}
		return Optimal, 0
	}

	perimeter := geometry.Perimeter(ref, b, c)
	if geometry.IsInsideTriangle(ref, b, c, central) {
		return Rain, perimeter
	}
	return Normal, perimeter
}

// order returns the body with the largest orbital radius first, followed by
// the other two in their original order.
func order(bodies [3]orbit.Body) (orbit.Body, orbit.Body, orbit.Body) {
	ref := 0
	for i := 1; i < len(bodies); i++ {
		if bodies[i].Radius() > bodies[ref].Radius() {
			ref = i
		}
	}

	rest := make([]orbit.Body, 0, 2)
	for i, b := range bodies {
		if i != ref {
			rest = append(rest, b)
		}
	}
	return bodies[ref], rest[0], rest[1]
}
