// Package layout runs the force-directed simulation that positions graph
// nodes, and the viewport transform used to look at it.
package layout

import (
	"math"
	"time"
)

// Params configures forces, cooling and the viewport.
type Params struct {
	Width  float64
	Height float64

	// Charge is the many-body strength; negative repels.
	Charge          float64
	LinkDistance    float64
	CenterStrength  float64
	CollideRadius   float64
	CollideStrength float64

	AlphaMin        float64
	AlphaDecay      float64
	VelocityDecay   float64
	DragAlphaTarget float64
	NudgeAlpha      float64

	// ReleaseDelay is how long after settling seeded association pins are
	// released.
	ReleaseDelay time.Duration
	TickInterval time.Duration

	MinScale      float64
	MaxScale      float64
	FramePadding  float64
	FrameDuration time.Duration
}

// DefaultParams returns the standard simulation settings.
func DefaultParams() Params {
	return Params{
		Width:           1200,
		Height:          800,
		Charge:          -300,
		LinkDistance:    120,
		CenterStrength:  0.05,
		CollideRadius:   28,
		CollideStrength: 0.7,
		AlphaMin:        0.001,
		AlphaDecay:      1 - math.Pow(0.001, 1.0/300),
		VelocityDecay:   0.4,
		DragAlphaTarget: 0.3,
		NudgeAlpha:      0.3,
		ReleaseDelay:    1500 * time.Millisecond,
		TickInterval:    16 * time.Millisecond,
		MinScale:        0.2,
		MaxScale:        4,
		FramePadding:    60,
		FrameDuration:   600 * time.Millisecond,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.Width == 0 {
		p.Width = d.Width
	}
	if p.Height == 0 {
		p.Height = d.Height
	}
	if p.Charge == 0 {
		p.Charge = d.Charge
	}
	if p.LinkDistance == 0 {
		p.LinkDistance = d.LinkDistance
	}
	if p.CenterStrength == 0 {
		p.CenterStrength = d.CenterStrength
	}
	if p.CollideRadius == 0 {
		p.CollideRadius = d.CollideRadius
	}
	if p.CollideStrength == 0 {
		p.CollideStrength = d.CollideStrength
	}
	if p.AlphaMin == 0 {
		p.AlphaMin = d.AlphaMin
	}
	if p.AlphaDecay == 0 {
		p.AlphaDecay = d.AlphaDecay
	}
	if p.VelocityDecay == 0 {
		p.VelocityDecay = d.VelocityDecay
	}
	if p.DragAlphaTarget == 0 {
		p.DragAlphaTarget = d.DragAlphaTarget
	}
	if p.NudgeAlpha == 0 {
		p.NudgeAlpha = d.NudgeAlpha
	}
	if p.ReleaseDelay == 0 {
		p.ReleaseDelay = d.ReleaseDelay
	}
	if p.TickInterval == 0 {
		p.TickInterval = d.TickInterval
	}
	if p.MinScale == 0 {
		p.MinScale = d.MinScale
	}
	if p.MaxScale == 0 {
		p.MaxScale = d.MaxScale
	}
	if p.FramePadding == 0 {
		p.FramePadding = d.FramePadding
	}
	if p.FrameDuration == 0 {
		p.FrameDuration = d.FrameDuration
	}
	return p
}
