package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msalah0e/kgx/internal/cache"
	"github.com/msalah0e/kgx/internal/filter"
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/layout"
	"github.com/msalah0e/kgx/internal/logger"
	"github.com/msalah0e/kgx/internal/merge"
	"github.com/msalah0e/kgx/internal/parser"
)

var (
	// ErrSuperseded is returned by Query when a newer query replaced it.
	ErrSuperseded = errors.New("query superseded")
	// ErrUnknownNode is returned when expanding a node not in the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Source fetches raw payloads for the parser.
type Source interface {
	Query(ctx context.Context, text string) (any, error)
	Associations(ctx context.Context, nodeID string) (any, error)
}

// Options configures a Session.
type Options struct {
	Source   Source
	Cache    cache.Cache
	CacheTTL time.Duration
	// CacheScope names the source behind the cache, so a cache shared by
	// several sources never answers for the wrong one.
	CacheScope string
	Merge    merge.Options
	Layout   layout.Params
	// Animate runs the simulation on its own ticker. When false the layout
	// only advances through Settle.
	Animate bool
	Logger  *logger.Logger
}

// Session owns one exploration. All transitions go through Reduce under a
// single mutex so subscribers never see a partial update.
type Session struct {
	ID string

	mu     sync.Mutex
	state  State
	filter *filter.Filter
	cancel context.CancelFunc
	closed bool

	src      Source
	cache    cache.Cache
	cacheTTL time.Duration
	scope    string
	animate  bool
	sim      *layout.Simulation
	view     *layout.Viewport
	log      *logger.Logger

	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewSession returns an idle session.
func NewSession(opts Options) *Session {
	id := uuid.NewString()
	log := logger.OrNop(opts.Logger).With("session", id[:8])
	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		ID:       id,
		state:    NewState(opts.Merge),
		src:      opts.Source,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		scope:    opts.CacheScope,
		animate:  opts.Animate,
		sim:      layout.NewSimulation(opts.Layout, log),
		view:     layout.NewViewport(opts.Layout),
		log:      log,
		ctx:      ctx,
		stop:     stop,
		subs:     make(map[int]func(Snapshot)),
	}
	s.sim.OnTick(func(layout.Frame) { s.publish() })
	return s
}

// Simulation exposes the layout for drag handling.
func (s *Session) Simulation() *layout.Simulation { return s.sim }

// Viewport exposes the pan/zoom state.
func (s *Session) Viewport() *layout.Viewport { return s.view }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// dispatch applies ev, syncs the layout when the graph changed and notifies
// subscribers.
func (s *Session) dispatch(ev Event) State {
	s.mu.Lock()
	prev, next := s.applyLocked(ev)
	s.mu.Unlock()

	if next.Revision != prev.Revision {
		s.publish()
	}
	return next
}

func (s *Session) applyLocked(ev Event) (prev, next State) {
	prev = s.state
	next = Reduce(prev, ev)
	s.state = next
	if next.Graph != prev.Graph {
		s.syncLayoutLocked()
	}
	if next.Selected != prev.Selected || next.Graph != prev.Graph {
		s.frameLocked()
	}
	return prev, next
}

func (s *Session) syncLayoutLocked() {
	if s.closed {
		return
	}
	nodes, edges := s.state.Graph.Nodes(), s.state.Graph.Edges()
	if s.animate {
		s.sim.Start(nodes, edges)
	} else {
		s.sim.Load(nodes, edges)
	}
}

// frameLocked fits the selection and its neighbors into view. Framing is
// skipped while positions are unknown.
func (s *Session) frameLocked() {
	sel := s.state.Selected
	if sel == "" {
		return
	}
	pts := layout.FramePoints(s.sim, sel, s.state.Graph.Neighbors(sel))
	if !s.view.FrameOn(pts) {
		s.log.Debug("framing skipped", "node", sel)
	}
}

// Query replaces the graph with the result of text. A running query is
// cancelled and its late result discarded. Returns ErrNothingFound for an
// empty result and ErrSuperseded if a newer query took over.
func (s *Session) Query(ctx context.Context, text string) error {
	if s.src == nil {
		return fmt.Errorf("query: no source configured")
	}
	token := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.applyLocked(QueryIssued{Token: token, Text: text})
	s.mu.Unlock()
	s.publish()
	s.log.Debug("query issued", "token", token, "text", text)

	payload, err := s.src.Query(ctx, text)
	if err != nil {
		st := s.dispatch(QueryFailed{Token: token, Err: err})
		if st.Token != token {
			return ErrSuperseded
		}
		return fmt.Errorf("query: %w", err)
	}

	frag := parser.Parse(payload, parser.Options{})
	st := s.dispatch(QueryResolved{Token: token, Fragment: frag})
	if st.Token != token {
		return ErrSuperseded
	}
	s.log.Info("query resolved", "nodes", len(frag.Nodes), "edges", len(frag.Edges))
	if frag.Empty() {
		return ErrNothingFound
	}
	return nil
}

// Click selects id and expands it in the background. Returns false when id
// is not in the graph.
func (s *Session) Click(id string) bool {
	s.mu.Lock()
	if s.closed || !s.state.Graph.HasNode(id) {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.dispatch(NodeClicked{ID: id})
	go func() {
		defer s.wg.Done()
		if _, err := s.fetchAssociations(s.ctx, id); err != nil && !errors.Is(err, ErrNothingFound) {
			s.log.Warn("expansion failed", "node", id, "error", err)
		}
	}()
	return true
}

// Expand selects id and waits for its associations to merge.
func (s *Session) Expand(ctx context.Context, id string) (merge.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return merge.Result{}, ErrClosed
	}
	known := s.state.Graph.HasNode(id)
	s.mu.Unlock()
	if !known {
		return merge.Result{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}

	s.dispatch(NodeClicked{ID: id})
	return s.fetchAssociations(ctx, id)
}

func (s *Session) fetchAssociations(ctx context.Context, id string) (merge.Result, error) {
	frag, err := s.associations(ctx, id)
	if err != nil {
		s.dispatch(AssociationsFailed{Origin: id, Err: err})
		return merge.Result{}, fmt.Errorf("expand %s: %w", id, err)
	}
	st := s.dispatch(AssociationsResolved{Origin: id, Fragment: frag, Positions: s.sim})
	res := st.LastMerge
	s.log.Debug("associations merged", "node", id, "added", len(res.AddedNodes), "edges", res.AddedEdges, "pruned", len(res.Pruned))
	if res.Empty {
		return res, ErrNothingFound
	}
	return res, nil
}

// associations returns the parsed expansion of id, through the cache when
// one is configured. Only non-empty fragments are cached.
func (s *Session) associations(ctx context.Context, id string) (parser.Fragment, error) {
	key := s.cacheKey(id)
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("cache read failed", "key", key, "error", err)
		}
		if ok {
			var doc graph.Document
			if err := json.Unmarshal(data, &doc); err == nil {
				s.log.Debug("cache hit", "key", key)
				return parser.Fragment{Nodes: doc.Nodes, Edges: doc.Edges}, nil
			}
		}
	}
	if s.src == nil {
		return parser.Fragment{}, fmt.Errorf("no source configured")
	}

	payload, err := s.src.Associations(ctx, id)
	if err != nil {
		return parser.Fragment{}, err
	}
	frag := parser.Parse(payload, parser.Options{Expansion: true})

	if s.cache != nil && !frag.Empty() {
		data, err := json.Marshal(graph.Document{Nodes: frag.Nodes, Edges: frag.Edges})
		if err == nil {
			err = s.cache.Set(ctx, key, data, s.cacheTTL)
		}
		if err != nil {
			s.log.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return frag, nil
}

func (s *Session) cacheKey(id string) string {
	if s.scope == "" {
		return "assoc:" + id
	}
	return "assoc:" + s.scope + ":" + id
}

// Background clears the selection.
func (s *Session) Background() {
	s.dispatch(BackgroundClicked{})
}

// SetFilter compiles and applies a node filter. An empty expression shows
// everything.
func (s *Session) SetFilter(expr string) error {
	f, err := filter.Compile(expr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	s.dispatch(FilterChanged{Expr: f.String()})
	return nil
}

// Settle advances a non-animated layout until it cools or maxTicks pass.
func (s *Session) Settle(maxTicks int) {
	for i := 0; i < maxTicks && !s.sim.Settled(); i++ {
		s.sim.Tick()
	}
	s.mu.Lock()
	s.frameLocked()
	s.mu.Unlock()
}

// Wait blocks until background expansions finish.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Subscribe registers fn for every state change and layout frame. The
// returned func unregisters it.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Session) publish() {
	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Close cancels outstanding work and stops the simulation.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
	s.sim.Stop()
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.Warn("closing cache", "error", err)
		}
	}
}
