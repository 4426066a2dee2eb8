// Package merge folds an expansion ("associations of node X") result into
// an existing graph.
package merge

import (
	"math"

	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/parser"
)

// Positions is a read-only view of current node coordinates.
type Positions interface {
	Position(id string) (graph.Point, bool)
}

// Options controls seed placement of new nodes around the origin.
type Options struct {
	BaseRadius float64
	PerNode    float64
	MaxRadius  float64
}

// DefaultOptions returns the standard ring geometry.
func DefaultOptions() Options {
	return Options{BaseRadius: 120, PerNode: 12, MaxRadius: 300}
}

// Radius returns the seed ring radius for count incoming nodes.
func (o Options) Radius(count int) float64 {
	return math.Min(o.MaxRadius, o.BaseRadius+o.PerNode*float64(count))
}

// Result describes what a merge did.
type Result struct {
	// Empty is set when the incoming fragment held nothing; the graph is
	// returned unchanged and callers surface a "nothing found" notice.
	Empty        bool
	AddedNodes   []string
	MergedNodes  []string
	AddedEdges   int
	DroppedEdges int
	Pruned       []string
	Seeds        map[string]graph.Point
}

// Merge returns a new graph holding current extended by incoming, expanded
// from originID. current is never modified.
//
// New nodes are seeded on a ring around the origin and pinned when the
// origin has a known position; existing nodes keep their position and take
// incoming properties. Incoming edges are kept only when both endpoints are
// present and the edge is new. Association nodes left without edges are
// pruned, except the origin and any keep IDs, and dangling edges are
// dropped last.
func Merge(current *graph.Graph, originID string, incoming parser.Fragment, pos Positions, opts Options, keep ...string) (*graph.Graph, Result) {
	if current == nil {
		current = graph.New()
	}
	if incoming.Empty() {
		return current, Result{Empty: true}
	}
	if opts.MaxRadius == 0 {
		opts = DefaultOptions()
	}

	out := current.Clone()
	res := Result{Seeds: make(map[string]graph.Point)}

	center, centered := originPosition(out, originID, pos)
	count := len(incoming.Nodes)
	radius := opts.Radius(count)

	for i, in := range incoming.Nodes {
		if in == nil || in.ID == "" {
			continue
		}
		if existing, ok := out.Node(in.ID); ok {
			wasAssociation := existing.IsAssociation()
			out.UpsertNode(in.Clone())
			existing.Properties[graph.PropAssociation] = wasAssociation
			res.MergedNodes = append(res.MergedNodes, in.ID)
			continue
		}

		n := in.Clone()
		n.Properties[graph.PropAssociation] = true
		n.Position, n.Pinned = nil, nil
		if centered {
			angle := 2 * math.Pi * float64(i) / float64(count)
			p := graph.Point{
				X: center.X + radius*math.Cos(angle),
				Y: center.Y + radius*math.Sin(angle),
			}
			seed, pin := p, p
			n.Position, n.Pinned = &seed, &pin
			res.Seeds[n.ID] = p
		}
		out.UpsertNode(n)
		res.AddedNodes = append(res.AddedNodes, n.ID)
	}

	for _, in := range incoming.Edges {
		if in == nil {
			continue
		}
		e := in.Clone()
		if e.ID == "" {
			e.ID = graph.MakeEdgeID(e.Source, e.Target, e.Type)
		}
		if out.HasEdge(e.ID) || !out.HasNode(e.Source) || !out.HasNode(e.Target) {
			res.DroppedEdges++
			continue
		}
		out.AddEdge(e)
		res.AddedEdges++
	}

	res.Pruned = out.PruneOrphanAssociations(append([]string{originID}, keep...)...)
	out.PruneDangling()
	return out, res
}

func originPosition(g *graph.Graph, originID string, pos Positions) (graph.Point, bool) {
	if pos != nil {
		if p, ok := pos.Position(originID); ok {
			return p, true
		}
	}
	return g.Position(originID)
}
