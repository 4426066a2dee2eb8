package merge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/parser"
)

type staticPositions map[string]graph.Point

func (s staticPositions) Position(id string) (graph.Point, bool) {
	p, ok := s[id]
	return p, ok
}

func assoc(id string) *graph.Node {
	return graph.NewNode(id, "", nil, map[string]any{graph.PropAssociation: true})
}

func plain(id string) *graph.Node {
	return graph.NewNode(id, "", nil, map[string]any{graph.PropAssociation: false})
}

func edge(a, b string) *graph.Edge {
	return graph.NewEdge(a, b, "REL", map[string]any{graph.PropAssociation: true})
}

func assertNoDangling(t *testing.T, g *graph.Graph) {
	t.Helper()
	for _, e := range g.Edges() {
		assert.True(t, g.HasNode(e.Source), "edge %s has missing source", e.ID)
		assert.True(t, g.HasNode(e.Target), "edge %s has missing target", e.ID)
	}
}

func TestMergeEmptyIsIdentity(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))
	g.UpsertNode(assoc("B"))
	g.UpsertNode(assoc("orphan"))
	g.AddEdge(edge("A", "B"))

	out, res := Merge(g, "A", parser.Fragment{}, nil, DefaultOptions())
	assert.True(t, res.Empty)
	assert.True(t, out.SameShape(g))
	assert.Equal(t, g.Fingerprint(), out.Fingerprint())

	again, _ := Merge(out, "B", parser.Fragment{}, nil, DefaultOptions())
	assert.True(t, again.SameShape(g))
}

func TestMergeExpandThenEmptyExpansion(t *testing.T) {
	g := graph.New()
	a := plain("A")
	a.Position = &graph.Point{X: 100, Y: 50}
	g.UpsertNode(a)

	in := parser.Fragment{
		Nodes: []*graph.Node{assoc("B"), assoc("C")},
		Edges: []*graph.Edge{edge("A", "B"), edge("B", "C")},
	}
	out, res := Merge(g, "A", in, nil, DefaultOptions())

	require.Equal(t, 3, out.Len())
	require.Equal(t, 2, out.EdgeCount())
	assert.ElementsMatch(t, []string{"B", "C"}, res.AddedNodes)
	assert.Equal(t, 2, res.AddedEdges)

	radius := DefaultOptions().Radius(2)
	for _, id := range []string{"B", "C"} {
		n, ok := out.Node(id)
		require.True(t, ok)
		assert.True(t, n.IsAssociation())
		require.NotNil(t, n.Pinned, "%s should be pinned", id)
		require.NotNil(t, n.Position)
		d := math.Hypot(n.Pinned.X-100, n.Pinned.Y-50)
		assert.InDelta(t, radius, d, 1e-9)
	}

	origin, _ := out.Node("A")
	assert.Equal(t, graph.Point{X: 100, Y: 50}, *origin.Position, "origin must not move")
	assert.False(t, origin.IsAssociation())

	after, res2 := Merge(out, "D", parser.Fragment{}, nil, DefaultOptions())
	assert.True(t, res2.Empty)
	assert.True(t, after.SameShape(out))
	assert.Equal(t, 3, after.Len())
	assert.Equal(t, 2, after.EdgeCount())
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))
	in := parser.Fragment{Nodes: []*graph.Node{assoc("B")}, Edges: []*graph.Edge{edge("A", "B")}}

	_, _ = Merge(g, "A", in, nil, DefaultOptions())
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestMergeDropsDanglingEdges(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))

	in := parser.Fragment{
		Nodes: []*graph.Node{assoc("B")},
		Edges: []*graph.Edge{edge("A", "B"), edge("B", "ghost"), edge("ghost", "other")},
	}
	out, res := Merge(g, "A", in, nil, DefaultOptions())

	assert.Equal(t, 1, out.EdgeCount())
	assert.Equal(t, 2, res.DroppedEdges)
	assertNoDangling(t, out)
}

func TestMergeKeepsExtraIDs(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))
	g.UpsertNode(assoc("selected"))
	g.UpsertNode(assoc("stale"))

	in := parser.Fragment{
		Nodes: []*graph.Node{assoc("B")},
		Edges: []*graph.Edge{edge("A", "B")},
	}
	out, res := Merge(g, "A", in, nil, DefaultOptions(), "selected")

	assert.True(t, out.HasNode("selected"))
	assert.False(t, out.HasNode("stale"))
	assert.Equal(t, []string{"stale"}, res.Pruned)
}

func TestMergeDropsDuplicateEdges(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))
	g.UpsertNode(plain("B"))
	g.AddEdge(edge("A", "B"))

	in := parser.Fragment{Edges: []*graph.Edge{edge("B", "A")}}
	out, res := Merge(g, "A", in, nil, DefaultOptions())

	assert.Equal(t, 1, out.EdgeCount())
	assert.Equal(t, 1, res.DroppedEdges)
	assert.False(t, res.Empty)
}

func TestMergePrunesOrphanAssociations(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))
	g.UpsertNode(assoc("stale"))

	in := parser.Fragment{
		Nodes: []*graph.Node{assoc("B"), assoc("lonely")},
		Edges: []*graph.Edge{edge("A", "B")},
	}
	out, res := Merge(g, "A", in, nil, DefaultOptions())

	assert.True(t, out.HasNode("B"))
	assert.False(t, out.HasNode("lonely"), "new association without edges is pruned")
	assert.False(t, out.HasNode("stale"), "previous orphan association is pruned")
	assert.True(t, out.HasNode("A"), "non-association nodes survive")
	assert.ElementsMatch(t, []string{"stale", "lonely"}, res.Pruned)

	deg := out.Degrees()
	for _, n := range out.Nodes() {
		if n.IsAssociation() {
			assert.Positive(t, deg[n.ID], "association %s left with no edges", n.ID)
		}
	}
	assertNoDangling(t, out)
}

func TestMergeKeepsOriginWithoutEdges(t *testing.T) {
	g := graph.New()
	g.UpsertNode(assoc("X"))

	in := parser.Fragment{Nodes: []*graph.Node{assoc("Y")}}
	out, _ := Merge(g, "X", in, nil, DefaultOptions())

	assert.True(t, out.HasNode("X"), "origin survives with degree zero")
	assert.False(t, out.HasNode("Y"))
}

func TestMergeExistingNodeKeepsPositionAndFlag(t *testing.T) {
	g := graph.New()
	a := plain("A")
	a.Position = &graph.Point{X: 1, Y: 2}
	g.UpsertNode(a)
	b := plain("B")
	b.Position = &graph.Point{X: 30, Y: 40}
	g.UpsertNode(b)

	incomingB := graph.NewNode("B", "Bee", []string{"Material"}, map[string]any{graph.PropAssociation: true, "grade": "x"})
	in := parser.Fragment{Nodes: []*graph.Node{incomingB}, Edges: []*graph.Edge{edge("A", "B")}}
	out, res := Merge(g, "A", in, nil, DefaultOptions())

	assert.Equal(t, []string{"B"}, res.MergedNodes)
	n, _ := out.Node("B")
	assert.Equal(t, graph.Point{X: 30, Y: 40}, *n.Position)
	assert.Nil(t, n.Pinned)
	assert.Equal(t, "Bee", n.DisplayName)
	assert.Equal(t, "x", n.Properties["grade"])
	assert.False(t, n.IsAssociation(), "query nodes stay query nodes")
}

func TestMergeUsesPositionsView(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))

	in := parser.Fragment{Nodes: []*graph.Node{assoc("B")}, Edges: []*graph.Edge{edge("A", "B")}}
	out, res := Merge(g, "A", in, staticPositions{"A": {X: -10, Y: 10}}, DefaultOptions())

	seed, ok := res.Seeds["B"]
	require.True(t, ok)
	assert.InDelta(t, -10+DefaultOptions().Radius(1), seed.X, 1e-9)
	assert.InDelta(t, 10, seed.Y, 1e-9)
	n, _ := out.Node("B")
	assert.Equal(t, seed, *n.Pinned)
}

func TestMergeWithoutOriginPosition(t *testing.T) {
	g := graph.New()
	g.UpsertNode(plain("A"))

	in := parser.Fragment{Nodes: []*graph.Node{assoc("B")}, Edges: []*graph.Edge{edge("A", "B")}}
	out, res := Merge(g, "A", in, nil, DefaultOptions())

	n, _ := out.Node("B")
	assert.Nil(t, n.Position)
	assert.Nil(t, n.Pinned)
	assert.Empty(t, res.Seeds)
}

func TestRadiusBounded(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 132.0, o.Radius(1))
	assert.Equal(t, 300.0, o.Radius(1000))
}
