package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msalah0e/kgx/internal/graph"
)

func sample() *graph.Graph {
	g := graph.New()
	g.UpsertNode(graph.NewNode("b1", "Batch 1", []string{"Batch"}, map[string]any{"qty": json.Number("12")}))
	g.UpsertNode(graph.NewNode("m1", "Steel", []string{"Material"}, map[string]any{"grade": "A"}))
	assoc := graph.NewNode("m2", "Copper", []string{"Material"}, nil)
	assoc.Properties[graph.PropAssociation] = true
	g.UpsertNode(assoc)
	g.AddEdge(graph.NewEdge("b1", "m1", "USES", nil))
	g.AddEdge(graph.NewEdge("b1", "m2", "USES", nil))
	return g
}

func TestCompileEmpty(t *testing.T) {
	f, err := Compile("  ")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, "", f.String())

	ok, err := f.Match(graph.NewNode("x", "", nil, nil), 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("labels +")
	assert.Error(t, err)

	_, err = Compile("name")
	assert.ErrorContains(t, err, "want bool")

	_, err = Compile("unknown == 1")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	g := sample()
	tests := []struct {
		expr string
		want []string
	}{
		{`"Material" in labels`, []string{"m1", "m2"}},
		{`degree > 1`, []string{"b1"}},
		{`!association`, []string{"b1", "m1"}},
		{`name.startsWith("Co")`, []string{"m2"}},
		{`id == "m1" || "Batch" in labels`, []string{"b1", "m1"}},
		{`has(props.qty) && props.qty >= 10`, []string{"b1"}},
		{`props.grade == "A"`, []string{"m1"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			require.NoError(t, err)
			keep := f.Apply(g)
			var got []string
			for _, n := range g.Nodes() {
				if keep[n.ID] {
					got = append(got, n.ID)
				}
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.expr, f.String())
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, int64(3), normalizeValue(json.Number("3")))
	assert.Equal(t, 2.5, normalizeValue(json.Number("2.5")))
	assert.Equal(t, int64(7), normalizeValue(7))
	assert.Equal(t, []any{"a", "b"}, normalizeValue([]string{"a", "b"}))
	assert.Equal(t, map[string]any{"n": int64(1)}, normalizeValue(map[string]any{"n": json.Number("1")}))
	assert.Equal(t, "{1 2}", normalizeValue(struct{ A, B int }{1, 2}))
}
