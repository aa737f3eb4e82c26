// Package geometry provides the planar primitives used to classify orbital
// alignments: polar and cartesian points, slopes, distances and a
// point-in-triangle test.
//
// Angles are expressed in degrees everywhere outside this package and are never
// normalized here. Callers that render angles for humans should use
// NormalizeDegrees; classification must use the raw accumulated value.
package geometry

import "math"

// Polar is a position expressed as a distance from the origin and an angle in degrees.
type Polar struct {
	Radius       float64 `json:"radius"`
	AngleDegrees float64 `json:"angle"`
}

// Cartesian is a position on the orbital plane.
type Cartesian struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Origin is the fixed position of the central body.
var Origin = Cartesian{}

// ToCartesian converts a polar position to cartesian coordinates.
func ToCartesian(p Polar) Cartesian {
	rad := p.AngleDegrees * math.Pi / 180.0
	return Cartesian{
		X: p.Radius * math.Cos(rad),
		Y: p.Radius * math.Sin(rad),
	}
}

// Slope returns the slope of the line through p1 and p2.
// A vertical line yields ±Inf; coincident points yield NaN.
func Slope(p1, p2 Cartesian) float64 {
	return (p2.Y - p1.Y) / (p2.X - p1.X)
}

// RoundedSlope returns Slope rounded to one decimal place.
//
// Slopes computed through trigonometric functions of π almost never compare
// equal even when the points are aligned, so alignment is decided on the
// rounded value. Halves round up (toward +Inf). Infinite slopes pass through
// unchanged, so two vertical lines still compare equal.
func RoundedSlope(p1, p2 Cartesian) float64 {
	return roundTenths(Slope(p1, p2))
}

func roundTenths(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return math.Floor(float64(v*10)+0.5) / 10
}

// Distance returns the Euclidean distance between two points.
func Distance(p1, p2 Cartesian) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	// Explicit conversions keep the compiler from fusing into an FMA.
	return math.Sqrt(float64(dx*dx) + float64(dy*dy))
}

// IsInsideTriangle reports whether p lies inside (or on the border of) the
// triangle abc.
//
// It solves p = a + w1·(b−a) + w2·(c−a) and checks w1 ≥ 0, w2 ≥ 0 and
// w1+w2 ≤ 1. The triangle must not be degenerate: callers check collinearity
// before calling.
func IsInsideTriangle(a, b, c, p Cartesian) bool {
	d := Cartesian{X: b.X - a.X, Y: b.Y - a.Y}
	e := Cartesian{X: c.X - a.X, Y: c.Y - a.Y}

	w1 := (e.X*(a.Y-p.Y) + e.Y*(p.X-a.X)) / (d.X*e.Y - d.Y*e.X)

	var w2 float64
	if e.Y != 0 {
		w2 = (p.Y - a.Y - w1*d.Y) / e.Y
	} else {
		// Edge ac is horizontal; solve the x component instead.
		w2 = (p.X - a.X - w1*d.X) / e.X
	}

	return w1 >= 0.0 && w2 >= 0.0 && (w1+w2) <= 1.0
}

// Perimeter returns the perimeter of the triangle abc.
func Perimeter(a, b, c Cartesian) float64 {
	return Distance(a, b) + Distance(a, c) + Distance(b, c)
}

// NormalizeDegrees maps an angle onto [0, 360). It is intended for display only.
func NormalizeDegrees(deg float64) float64 {
	n := math.Mod(deg, 360)
	if n < 0 {
		n += 360
	}
	return n
}
