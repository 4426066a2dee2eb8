package layout

import "math"

// Body is the simulation state of one node.
type Body struct {
	ID     string
	X, Y   float64
	VX, VY float64

	Pinned bool
	PX, PY float64

	// Seeded marks a pin placed by an expansion; it is released after the
	// layout settles. Dragging pins are not seeded.
	Seeded      bool
	Association bool
}

// Link connects two bodies by index.
type Link struct {
	Source int
	Target int
}

// Step advances bodies by one tick at the given alpha. Pinned bodies stay
// at their pin with zero velocity.
func Step(bodies []*Body, links []Link, p Params, alpha float64) {
	applyLinks(bodies, links, p, alpha)
	applyCharge(bodies, p, alpha)
	applyCenter(bodies, p, alpha)
	applyCollide(bodies, p)

	keep := 1 - p.VelocityDecay
	for _, b := range bodies {
		if b.Pinned {
			b.X, b.Y = b.PX, b.PY
			b.VX, b.VY = 0, 0
			continue
		}
		b.VX *= keep
		b.VY *= keep
		b.X += b.VX
		b.Y += b.VY
	}
}

// applyLinks pulls linked bodies toward LinkDistance. Strength and bias
// follow endpoint degrees so hubs move less than leaves.
func applyLinks(bodies []*Body, links []Link, p Params, alpha float64) {
	if len(links) == 0 {
		return
	}
	count := make([]int, len(bodies))
	for _, l := range links {
		count[l.Source]++
		count[l.Target]++
	}
	for i, l := range links {
		if l.Source == l.Target {
			continue
		}
		s, t := bodies[l.Source], bodies[l.Target]
		dx := t.X + t.VX - s.X - s.VX
		dy := t.Y + t.VY - s.Y - s.VY
		if dx == 0 && dy == 0 {
			dx, dy = jiggle(i), jiggle(i+1)
		}
		d := math.Hypot(dx, dy)
		strength := 1 / float64(minInt(count[l.Source], count[l.Target]))
		f := (d - p.LinkDistance) / d * alpha * strength
		dx, dy = dx*f, dy*f
		bias := float64(count[l.Source]) / float64(count[l.Source]+count[l.Target])
		t.VX -= dx * bias
		t.VY -= dy * bias
		s.VX += dx * (1 - bias)
		s.VY += dy * (1 - bias)
	}
}

// applyCharge is pairwise repulsion falling off with squared distance.
func applyCharge(bodies []*Body, p Params, alpha float64) {
	for i := 0; i < len(bodies); i++ {
		a := bodies[i]
		for j := i + 1; j < len(bodies); j++ {
			b := bodies[j]
			dx := b.X - a.X
			dy := b.Y - a.Y
			if dx == 0 && dy == 0 {
				dx, dy = jiggle(i+j), jiggle(i-j)
			}
			d2 := dx*dx + dy*dy
			if d2 < 1 {
				d2 = math.Sqrt(d2)
			}
			w := p.Charge * alpha / d2
			a.VX += dx * w
			a.VY += dy * w
			b.VX -= dx * w
			b.VY -= dy * w
		}
	}
}

// applyCenter nudges every body toward the viewport center.
func applyCenter(bodies []*Body, p Params, alpha float64) {
	cx, cy := p.Width/2, p.Height/2
	k := p.CenterStrength * alpha
	for _, b := range bodies {
		b.VX += (cx - b.X) * k
		b.VY += (cy - b.Y) * k
	}
}

// applyCollide separates bodies whose circles overlap.
func applyCollide(bodies []*Body, p Params) {
	minDist := 2 * p.CollideRadius
	for i := 0; i < len(bodies); i++ {
		a := bodies[i]
		for j := i + 1; j < len(bodies); j++ {
			b := bodies[j]
			dx := (b.X + b.VX) - (a.X + a.VX)
			dy := (b.Y + b.VY) - (a.Y + a.VY)
			if dx == 0 && dy == 0 {
				dx, dy = jiggle(i+j+1), jiggle(j-i)
			}
			d := math.Hypot(dx, dy)
			if d >= minDist {
				continue
			}
			f := (minDist - d) / d * p.CollideStrength * 0.5
			dx, dy = dx*f, dy*f
			a.VX -= dx
			a.VY -= dy
			b.VX += dx
			b.VY += dy
		}
	}
}

// jiggle is a tiny deterministic offset used to separate coincident bodies.
func jiggle(seed int) float64 {
	return (float64(seed%7) - 3.5) * 1e-6
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Energy is the sum of squared velocities.
func Energy(bodies []*Body) float64 {
	e := 0.0
	for _, b := range bodies {
		e += b.VX*b.VX + b.VY*b.VY
	}
	return e
}
