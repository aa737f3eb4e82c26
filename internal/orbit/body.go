// Package orbit models bodies moving on circular orbits around a fixed central
// body at a constant angular velocity.
package orbit

import (
	"fmt"

	"github.com/star/solarweather/internal/geometry"
)

// BodyConfig holds the fixed orbital parameters of a body.
type BodyConfig struct {
	Name        string
	Radius      float64 // orbital radius, distance from the central body
	VelocityDeg float64 // angular velocity in degrees per day
	Clockwise   bool
}

// Body is one body positioned on its orbit.
type Body struct {
	Name        string         `json:"name"`
	VelocityDeg float64        `json:"velocity"`
	Clockwise   bool           `json:"clockwise"`
	Position    geometry.Polar `json:"position"`
}

// Reference configuration. The outermost body is the alignment reference.
var (
	Betasoide = BodyConfig{Name: "betasoide", Radius: 2000, VelocityDeg: 3, Clockwise: true}
	Vulcano   = BodyConfig{Name: "vulcano", Radius: 1000, VelocityDeg: 5, Clockwise: false}
	Ferengi   = BodyConfig{Name: "ferengi", Radius: 500, VelocityDeg: 1, Clockwise: true}

	// ReferenceBodies is the three-body system the forecast runs on.
	ReferenceBodies = [3]BodyConfig{Betasoide, Vulcano, Ferengi}
)

// Sun returns the central body. It sits at the origin and never moves.
func Sun() Body {
	return Body{Name: "sun"}
}

// NewBody creates a body from its configuration, positioned at angle 0.
func NewBody(cfg BodyConfig) Body {
	return Body{
		Name:        cfg.Name,
		VelocityDeg: cfg.VelocityDeg,
		Clockwise:   cfg.Clockwise,
		Position:    geometry.Polar{Radius: cfg.Radius},
	}
}

// At creates a body from its configuration and advances it to the given day.
func At(cfg BodyConfig, day int) Body {
	b := NewBody(cfg)
	b.Advance(day)
	return b
}

// Advance sets the body's angle to its position on the given day, measured from day 0.
// It is an absolute set, not a step: calling it twice with the same day is a no-op.
func (b *Body) Advance(day int) {
	deg := b.VelocityDeg * float64(day)
	if b.Clockwise {
		deg = -deg
	}
	b.Position.AngleDegrees = deg
}

// Cartesian returns the body's position on the orbital plane.
func (b Body) Cartesian() geometry.Cartesian {
	return geometry.ToCartesian(b.Position)
}

// Radius returns the body's orbital radius.
func (b Body) Radius() float64 {
	return b.Position.Radius
}

// Validate checks that a configuration can produce a meaningful orbit.
func (cfg BodyConfig) Validate() error {
	if cfg.Name == "" {
		return fmt.Errorf("body name is required")
	}
	if cfg.Radius <= 0 {
		return fmt.Errorf("body %s: radius must be positive, got %g", cfg.Name, cfg.Radius)
	}
	return nil
}
