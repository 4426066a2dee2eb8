package layout

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/logger"
)

// Frame is published after every simulation tick.
type Frame struct {
	Tick      uint64
	Alpha     float64
	Settled   bool
	Positions map[string]graph.Point
}

// Simulator is the narrow surface the rest of the program drives.
type Simulator interface {
	Start(nodes []*graph.Node, edges []*graph.Edge)
	Stop()
	OnTick(fn func(Frame))
	SetPinned(id string, p *graph.Point)
}

// Simulation is a force-directed layout running on its own ticker
// goroutine. All body state is private; callers read position snapshots.
type Simulation struct {
	mu          sync.Mutex
	params      Params
	log         *logger.Logger
	bodies      []*Body
	index       map[string]int
	links       []Link
	fingerprint string
	alpha       float64
	alphaTarget float64
	dragging    string
	ticks       uint64
	settled     bool
	released    bool
	release     *time.Timer
	listeners   []func(Frame)

	running bool
	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}
}

var _ Simulator = (*Simulation)(nil)

// NewSimulation creates an idle simulation.
func NewSimulation(p Params, log *logger.Logger) *Simulation {
	return &Simulation{
		params: p.WithDefaults(),
		log:    logger.OrNop(log).With("component", "layout"),
		index:  make(map[string]int),
		wake:   make(chan struct{}, 1),
	}
}

// Params returns the effective parameters.
func (s *Simulation) Params() Params {
	return s.params
}

// OnTick registers a listener called after each tick, outside the lock.
func (s *Simulation) OnTick(fn func(Frame)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Start loads nodes and edges and makes sure the tick loop is running. A
// call with the same node and edge content as the last one does not reheat.
func (s *Simulation) Start(nodes []*graph.Node, edges []*graph.Edge) {
	s.Load(nodes, edges)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.running = true
		s.quit = make(chan struct{})
		s.done = make(chan struct{})
		go s.loop(s.quit, s.done)
	}
	s.signal()
}

// Load re-seeds bodies without starting the loop. Existing bodies keep
// position, velocity and pins; new ones start at their seed position, near
// an already placed neighbor, or on a spiral around the center. Returns
// whether the content changed.
func (s *Simulation) Load(nodes []*graph.Node, edges []*graph.Edge) bool {
	fp := fingerprint(nodes, edges)

	s.mu.Lock()
	defer s.mu.Unlock()
	if fp == s.fingerprint && len(s.bodies) > 0 {
		return false
	}
	s.fingerprint = fp

	old := make(map[string]*Body, len(s.bodies))
	for _, b := range s.bodies {
		old[b.ID] = b
	}

	bodies := make([]*Body, 0, len(nodes))
	index := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, dup := index[n.ID]; dup {
			continue
		}
		b, ok := old[n.ID]
		if !ok {
			b = &Body{ID: n.ID}
			if n.Position != nil {
				b.X, b.Y = n.Position.X, n.Position.Y
			} else {
				b.X, b.Y = math.NaN(), math.NaN()
			}
			if n.Pinned != nil {
				b.Pinned, b.Seeded = true, true
				b.PX, b.PY = n.Pinned.X, n.Pinned.Y
				b.X, b.Y = b.PX, b.PY
			}
		}
		b.Association = n.IsAssociation()
		index[n.ID] = len(bodies)
		bodies = append(bodies, b)
	}

	links := make([]Link, 0, len(edges))
	for _, e := range edges {
		si, okS := index[e.Source]
		ti, okT := index[e.Target]
		if okS && okT {
			links = append(links, Link{Source: si, Target: ti})
		}
	}

	s.placeUnpositioned(bodies, links)
	s.bodies, s.index, s.links = bodies, index, links
	if _, ok := index[s.dragging]; s.dragging != "" && !ok {
		s.dragging, s.alphaTarget = "", 0
	}
	s.alpha = 1
	s.settled = false
	s.released = false
	if s.release != nil {
		s.release.Stop()
		s.release = nil
	}
	return true
}

func (s *Simulation) placeUnpositioned(bodies []*Body, links []Link) {
	cx, cy := s.params.Width/2, s.params.Height/2
	spiral := 0
	for i, b := range bodies {
		if !math.IsNaN(b.X) {
			continue
		}
		if nb := placedNeighbor(bodies, links, i); nb != nil {
			a := float64(i) * math.Pi * (3 - math.Sqrt(5))
			b.X = nb.X + s.params.CollideRadius*math.Cos(a)
			b.Y = nb.Y + s.params.CollideRadius*math.Sin(a)
			continue
		}
		r := 10 * math.Sqrt(0.5+float64(spiral))
		a := float64(spiral) * math.Pi * (3 - math.Sqrt(5))
		b.X, b.Y = cx+r*math.Cos(a), cy+r*math.Sin(a)
		spiral++
	}
}

func placedNeighbor(bodies []*Body, links []Link, i int) *Body {
	for _, l := range links {
		other := -1
		switch i {
		case l.Source:
			other = l.Target
		case l.Target:
			other = l.Source
		}
		if other >= 0 && other != i && !math.IsNaN(bodies[other].X) {
			return bodies[other]
		}
	}
	return nil
}

// Tick advances the simulation once and notifies listeners. Returns false
// when the layout has settled and nothing moved.
func (s *Simulation) Tick() bool {
	s.mu.Lock()
	if s.settled && s.alphaTarget == 0 {
		s.mu.Unlock()
		return false
	}
	s.alpha += (s.alphaTarget - s.alpha) * s.params.AlphaDecay
	Step(s.bodies, s.links, s.params, s.alpha)
	s.ticks++

	if s.alpha < s.params.AlphaMin && s.alphaTarget == 0 {
		s.settled = true
		s.scheduleRelease()
	}
	frame := s.frameLocked()
	listeners := append([]func(Frame){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(frame)
	}
	return true
}

// scheduleRelease arms the release timer once per settle if seeded pins
// remain.
func (s *Simulation) scheduleRelease() {
	if s.released || s.release != nil || !s.hasSeededPins() {
		return
	}
	s.release = time.AfterFunc(s.params.ReleaseDelay, s.ReleasePins)
}

func (s *Simulation) hasSeededPins() bool {
	for _, b := range s.bodies {
		if b.Seeded && b.Pinned {
			return true
		}
	}
	return false
}

// ReleasePins frees seeded association pins and reheats the layout a little
// so released nodes integrate.
func (s *Simulation) ReleasePins() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = nil
	freed := 0
	for _, b := range s.bodies {
		if b.Seeded && b.Pinned && b.Association {
			b.Pinned, b.Seeded = false, false
			freed++
		}
	}
	s.released = true
	if freed == 0 {
		return
	}
	s.alpha = math.Max(s.alpha, s.params.NudgeAlpha)
	s.settled = false
	s.log.Debug("released association pins", "count", freed)
	s.signal()
}

// SetPinned fixes a body at p, or releases it when p is nil.
func (s *Simulation) SetPinned(id string, p *graph.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.body(id)
	if b == nil {
		return
	}
	if p == nil {
		b.Pinned, b.Seeded = false, false
	} else {
		b.Pinned = true
		b.PX, b.PY = p.X, p.Y
		b.X, b.Y = p.X, p.Y
	}
	s.reheatLocked(s.params.NudgeAlpha)
}

// DragStart pins a body where it is and keeps the simulation warm.
func (s *Simulation) DragStart(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.body(id)
	if b == nil {
		return false
	}
	b.Pinned, b.Seeded = true, false
	b.PX, b.PY = b.X, b.Y
	s.dragging = id
	s.alphaTarget = s.params.DragAlphaTarget
	s.reheatLocked(s.params.DragAlphaTarget)
	return true
}

// DragMove moves the pin of a dragged body.
func (s *Simulation) DragMove(id string, p graph.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.body(id)
	if b == nil {
		return false
	}
	b.Pinned = true
	b.PX, b.PY = p.X, p.Y
	return true
}

// DragEnd releases the pin so physics resumes control. The simulation is
// allowed to cool even when the body vanished during the drag.
func (s *Simulation) DragEnd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging == id {
		s.dragging = ""
	}
	s.alphaTarget = 0
	b := s.body(id)
	if b == nil {
		return false
	}
	b.Pinned, b.Seeded = false, false
	return true
}

func (s *Simulation) reheatLocked(alpha float64) {
	if s.alpha < alpha {
		s.alpha = alpha
	}
	s.settled = false
	s.signal()
}

func (s *Simulation) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Simulation) body(id string) *Body {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.bodies[i]
}

// Position returns the current coordinates of a node.
func (s *Simulation) Position(id string) (graph.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.body(id)
	if b == nil {
		return graph.Point{}, false
	}
	return graph.Point{X: b.X, Y: b.Y}, true
}

// Pinned reports whether a node is currently pinned.
func (s *Simulation) Pinned(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.body(id)
	return b != nil && b.Pinned
}

// Positions returns a snapshot of all coordinates.
func (s *Simulation) Positions() map[string]graph.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionsLocked()
}

func (s *Simulation) positionsLocked() map[string]graph.Point {
	out := make(map[string]graph.Point, len(s.bodies))
	for _, b := range s.bodies {
		out[b.ID] = graph.Point{X: b.X, Y: b.Y}
	}
	return out
}

func (s *Simulation) frameLocked() Frame {
	return Frame{Tick: s.ticks, Alpha: s.alpha, Settled: s.settled, Positions: s.positionsLocked()}
}

// Alpha returns the current energy level.
func (s *Simulation) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// Settled reports whether the layout has cooled below AlphaMin.
func (s *Simulation) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Stop halts the tick loop and pending timers. Safe to call repeatedly.
func (s *Simulation) Stop() {
	s.mu.Lock()
	if s.release != nil {
		s.release.Stop()
		s.release = nil
	}
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	quit, done := s.quit, s.done
	s.mu.Unlock()

	close(quit)
	<-done
}

func (s *Simulation) loop(quit, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.params.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if !s.safeTick() {
				select {
				case <-quit:
					return
				case <-s.wake:
				}
			}
		}
	}
}

// safeTick keeps the loop alive if a tick panics; the cycle is skipped.
func (s *Simulation) safeTick() (moved bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("layout tick failed", "error", fmt.Sprint(r))
			moved = true
		}
	}()
	return s.Tick()
}

func fingerprint(nodes []*graph.Node, edges []*graph.Edge) string {
	g := graph.New()
	for _, n := range nodes {
		if n != nil {
			g.UpsertNode(graph.NewNode(n.ID, "", nil, nil))
		}
	}
	for _, e := range edges {
		if e != nil {
			g.AddEdge(graph.NewEdge(e.Source, e.Target, e.Type, nil))
		}
	}
	return g.Fingerprint()
}
