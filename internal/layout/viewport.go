package layout

import (
	"math"
	"sync"
	"time"

	"github.com/msalah0e/kgx/internal/graph"
)

// Transform maps layout coordinates to screen: screen = world*K + (X,Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the unscaled, untranslated transform.
var Identity = Transform{K: 1}

// Apply maps a layout point to the screen.
func (t Transform) Apply(p graph.Point) graph.Point {
	return graph.Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to layout coordinates.
func (t Transform) Invert(p graph.Point) graph.Point {
	return graph.Point{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

func lerp(a, b Transform, f float64) Transform {
	return Transform{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
		K: a.K + (b.K-a.K)*f,
	}
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Viewport holds the pan/zoom state and any running framing animation.
type Viewport struct {
	mu     sync.Mutex
	params Params
	now    func() time.Time

	from, to Transform
	start    time.Time
	duration time.Duration
}

// NewViewport returns a viewport at the identity transform.
func NewViewport(p Params) *Viewport {
	return &Viewport{params: p.WithDefaults(), now: time.Now, from: Identity, to: Identity}
}

// Transform returns the transform at the current instant, following any
// running animation.
func (v *Viewport) Transform() Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentLocked()
}

func (v *Viewport) currentLocked() Transform {
	if v.duration <= 0 {
		return v.to
	}
	f := float64(v.now().Sub(v.start)) / float64(v.duration)
	if f >= 1 {
		v.from, v.duration = v.to, 0
		return v.to
	}
	if f < 0 {
		f = 0
	}
	return lerp(v.from, v.to, easeInOutCubic(f))
}

// Animating reports whether a framing animation is in progress.
func (v *Viewport) Animating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentLocked()
	return v.duration > 0
}

// Set jumps to t, cancelling any animation. The scale is clamped.
func (v *Viewport) Set(t Transform) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t.K = v.clamp(t.K)
	v.from, v.to, v.duration = t, t, 0
}

// Pan shifts the view by a screen delta.
func (v *Viewport) Pan(dx, dy float64) Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := v.currentLocked()
	t.X += dx
	t.Y += dy
	v.from, v.to, v.duration = t, t, 0
	return t
}

// ZoomAt scales by factor keeping the screen point anchor fixed.
func (v *Viewport) ZoomAt(anchor graph.Point, factor float64) Transform {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := v.currentLocked()
	world := t.Invert(anchor)
	t.K = v.clamp(t.K * factor)
	t.X = anchor.X - world.X*t.K
	t.Y = anchor.Y - world.Y*t.K
	v.from, v.to, v.duration = t, t, 0
	return t
}

// Animate moves to target over d with ease-in-out cubic timing.
func (v *Viewport) Animate(target Transform, d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	target.K = v.clamp(target.K)
	v.from = v.currentLocked()
	v.to = target
	v.start = v.now()
	v.duration = d
}

// FrameOn animates to fit points, and reports whether there was anything to
// frame.
func (v *Viewport) FrameOn(points []graph.Point) bool {
	t, ok := Fit(points, v.params)
	if !ok {
		return false
	}
	v.Animate(t, v.params.FrameDuration)
	return true
}

func (v *Viewport) clamp(k float64) float64 {
	return math.Max(v.params.MinScale, math.Min(v.params.MaxScale, k))
}

// Fit returns the transform that centers the bounding box of points in the
// viewport with padding on each side. A single point is shown at MaxScale/2
// capped to 1.5.
func Fit(points []graph.Point, p Params) (Transform, bool) {
	if len(points) == 0 {
		return Transform{}, false
	}
	p = p.WithDefaults()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	w, h := maxX-minX, maxY-minY
	availW := math.Max(1, p.Width-2*p.FramePadding)
	availH := math.Max(1, p.Height-2*p.FramePadding)

	var k float64
	switch {
	case w == 0 && h == 0:
		k = math.Min(1.5, p.MaxScale/2)
	case w == 0:
		k = availH / h
	case h == 0:
		k = availW / w
	default:
		k = math.Min(availW/w, availH/h)
	}
	k = math.Max(p.MinScale, math.Min(p.MaxScale, k))

	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	return Transform{X: p.Width/2 - cx*k, Y: p.Height/2 - cy*k, K: k}, true
}

// FramePoints collects the position of selected and each neighbor that has
// one. It returns nil when the selected node itself has no position yet.
func FramePoints(pos interface {
	Position(id string) (graph.Point, bool)
}, selected string, neighbors []string) []graph.Point {
	sp, ok := pos.Position(selected)
	if !ok {
		return nil
	}
	out := []graph.Point{sp}
	for _, id := range neighbors {
		if p, ok := pos.Position(id); ok {
			out = append(out, p)
		}
	}
	return out
}
