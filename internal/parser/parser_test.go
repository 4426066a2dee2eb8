package parser

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/kgx/internal/graph"
)

func nodeIDs(f Fragment) []string {
	ids := make([]string, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestParseTripleRow(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"a": []any{map[string]any{"id": "n1"}, "REL", map[string]any{"id": "n2"}}},
		},
	}

	f := Parse(payload, Options{})
	assert.ElementsMatch(t, []string{"n1", "n2"}, nodeIDs(f))
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "n1--REL--n2", f.Edges[0].ID)
	assert.Equal(t, "REL", f.Edges[0].Type)
	assert.Equal(t, "n1", f.Nodes[0].DisplayName, "name defaults to id")
}

func TestParseEmptyObject(t *testing.T) {
	f := Parse(map[string]any{}, Options{})
	assert.Empty(t, f.Nodes)
	assert.Empty(t, f.Edges)
	assert.True(t, f.Empty())

	assert.True(t, Parse(nil, Options{}).Empty())
	assert.True(t, Parse("just text", Options{}).Empty())
	assert.True(t, Parse(map[string]any{"results": "not a list"}, Options{}).Empty())
}

func TestParseSynthesizesChain(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"n": map[string]any{"id": "a"}},
			map[string]any{"n": map[string]any{"id": "b"}},
			map[string]any{"n": map[string]any{"id": "c"}},
		},
	}

	f := Parse(payload, Options{})
	require.Len(t, f.Nodes, 3)
	require.Len(t, f.Edges, 2)
	assert.Equal(t, graph.MakeEdgeID("a", "b", SyntheticType), f.Edges[0].ID)
	assert.Equal(t, graph.MakeEdgeID("b", "c", SyntheticType), f.Edges[1].ID)
	assert.Equal(t, true, f.Edges[0].Properties["synthetic"])
}

func TestParseNoChainForExpansion(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"n": map[string]any{"id": "a"}},
			map[string]any{"n": map[string]any{"id": "b"}},
		},
	}

	f := Parse(payload, Options{Expansion: true})
	assert.Len(t, f.Nodes, 2)
	assert.Empty(t, f.Edges)
	for _, n := range f.Nodes {
		assert.True(t, n.IsAssociation(), "expansion nodes are associations")
	}
}

func TestParseExplicitEdgeDoesNotCreateNodes(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"r": map[string]any{"source": "a", "target": "b", "type": "USES"}},
		},
	}

	f := Parse(payload, Options{})
	assert.Empty(t, f.Nodes)
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "a", f.Edges[0].Source)
	assert.Equal(t, "b", f.Edges[0].Target)
}

func TestParseAssociationPayload(t *testing.T) {
	payload := map[string]any{
		"cypher": "MATCH (n) ...",
		"results": []any{
			map[string]any{
				"n": map[string]any{"id": "A", "name": "Batch A", "labels": []any{"Batch"}},
				"relationships": []any{
					[]any{map[string]any{"id": "A"}, "CONTAINS", map[string]any{"id": "B"}},
				},
				"associatedNodes": []any{
					map[string]any{"id": "B", "name": "Material B"},
					map[string]any{"id": "C"},
				},
			},
		},
	}

	f := Parse(payload, Options{Expansion: true})
	assert.ElementsMatch(t, []string{"A", "B", "C"}, nodeIDs(f))
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "A--CONTAINS--B", f.Edges[0].ID)
	assert.Equal(t, true, f.Edges[0].Properties[graph.PropAssociation])

	for _, n := range f.Nodes {
		if n.ID == "A" {
			assert.Equal(t, "Batch A", n.DisplayName)
			assert.Equal(t, []string{"Batch"}, n.Labels)
		}
	}
}

func TestParseRecursiveFallback(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{
			"payload": []any{
				map[string]any{
					"graph": map[string]any{
						"nodes": []any{map[string]any{"id": "x"}, map[string]any{"id": "y"}},
						"edges": []any{map[string]any{"source": "x", "target": "y", "type": "T"}},
					},
				},
			},
		},
	}

	f := Parse(payload, Options{Expansion: true})
	assert.ElementsMatch(t, []string{"x", "y"}, nodeIDs(f))
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "x--T--y", f.Edges[0].ID)
}

func TestParseSkipsUnresolvableIdentity(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"t": []any{map[string]any{"name": "anon"}, "REL", map[string]any{"id": "n2"}}},
		},
	}

	f := Parse(payload, Options{})
	assert.Empty(t, f.Edges)
	for _, n := range f.Nodes {
		assert.NotEmpty(t, n.ID)
	}
}

func TestParseTripleNeedsBothIdentities(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"a": []any{map[string]any{"id": "n1"}, "REL", map[string]any{"name": "no id"}}},
		},
	}
	f := Parse(payload, Options{})
	assert.True(t, f.Empty())

	payload["data"] = map[string]any{"associatedNodes": []any{map[string]any{"id": "x"}}}
	f = Parse(payload, Options{})
	require.Len(t, f.Nodes, 1)
	assert.Equal(t, "x", f.Nodes[0].ID)
	assert.Empty(t, f.Edges)
}

func TestParseDeduplicates(t *testing.T) {
	triple := []any{map[string]any{"id": "a"}, "R", map[string]any{"id": "b"}}
	reverse := []any{map[string]any{"id": "b"}, "R", map[string]any{"id": "a"}}
	payload := map[string]any{
		"results": []any{
			map[string]any{"x": triple},
			map[string]any{"x": reverse},
			map[string]any{"n": map[string]any{"id": "a", "name": "ignored"}},
		},
	}

	f := Parse(payload, Options{})
	assert.Len(t, f.Nodes, 2)
	assert.Len(t, f.Edges, 1)
}

func TestParseRowIsEntity(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"id": "x", "name": "X"},
			map[string]any{"id": "y"},
		},
	}

	f := Parse(payload, Options{})
	assert.Equal(t, []string{"x", "y"}, nodeIDs(f))
	assert.Len(t, f.Edges, 1)
}

func TestParseTopLevelRelationships(t *testing.T) {
	payload := map[string]any{
		"results": []any{
			map[string]any{"n": map[string]any{"id": "a"}},
			map[string]any{"n": map[string]any{"id": "b"}},
		},
		"relationships": []any{
			map[string]any{"source": "a", "target": "b", "type": "LINKS"},
		},
	}

	f := Parse(payload, Options{})
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "LINKS", f.Edges[0].Type, "real edges suppress path synthesis")
}

func TestParseJSON(t *testing.T) {
	f, err := ParseJSON([]byte(`{"results":[{"a":[{"id":12345678901234567890},"R",{"id":"n2"}]}]}`), Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"12345678901234567890", "n2"}, nodeIDs(f))

	f, err = ParseJSON([]byte(`{not json`), Options{})
	require.Error(t, err)
	assert.True(t, f.Empty())
}

func TestParseDriverValues(t *testing.T) {
	a := dbtype.Node{ElementId: "4:db:1", Labels: []string{"Batch"}, Props: map[string]any{"id": "A", "name": "Batch A"}}
	b := dbtype.Node{ElementId: "4:db:2", Props: map[string]any{"id": "B"}}
	r := dbtype.Relationship{ElementId: "5:db:9", StartElementId: "4:db:1", EndElementId: "4:db:2", Type: "USES"}

	payload := []any{
		map[string]any{"r": r, "n": a, "m": b},
	}

	f := Parse(payload, Options{})
	assert.ElementsMatch(t, []string{"A", "B"}, nodeIDs(f))
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "A--USES--B", f.Edges[0].ID)
}

func TestClassify(t *testing.T) {
	assert.IsType(t, Triple{}, Classify([]any{"a", "R", "b"}))
	assert.IsType(t, Unrecognized{}, Classify([]any{"a", 1, "b"}))
	assert.IsType(t, ExplicitEdge{}, Classify(map[string]any{"source": "a", "target": "b", "type": "R", "id": "e"}))
	assert.IsType(t, BareNode{}, Classify(map[string]any{"id": "a"}))
	assert.IsType(t, Unrecognized{}, Classify(map[string]any{"name": "a"}))
	assert.IsType(t, Unrecognized{}, Classify(nil))
}

func TestFindFragment(t *testing.T) {
	_, ok := FindFragment(map[string]any{"a": []any{1, "two"}})
	assert.False(t, ok)

	found, ok := FindFragment([]any{map[string]any{"deep": map[string]any{"relationships": []any{}}}})
	require.True(t, ok)
	assert.Contains(t, found, "relationships")
}

func TestFragmentGraphDropsDangling(t *testing.T) {
	f := Fragment{
		Nodes: []*graph.Node{graph.NewNode("a", "", nil, nil)},
		Edges: []*graph.Edge{graph.NewEdge("a", "b", "R", nil)},
	}
	g := f.Graph()
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 0, g.EdgeCount())
}
