package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/msalah0e/kgx/internal/graph"
)

func TestParsePath(t *testing.T) {
	assert.Equal(t, []string{"Steel", "Carbon", "Hardness"}, parsePath(" Steel ->Carbon->  Hardness "))
	assert.Equal(t, []string{"A"}, parsePath("A -> -> "))
	assert.Nil(t, parsePath(""))
}

func TestChainNames(t *testing.T) {
	g := graph.New()
	g.UpsertNode(graph.NewNode("s", "Steel", nil, nil))
	g.UpsertNode(graph.NewNode("c", "Carbon", nil, nil))
	g.UpsertNode(graph.NewNode("h", "", nil, nil))
	g.AddEdge(graph.NewEdge("s", "c", "CONTAINS", nil))
	g.AddEdge(graph.NewEdge("c", "h", "RAISES", nil))

	assert.Equal(t, []string{"Steel", "Carbon", "h"}, chainNames(g, "s", 3))
	assert.Equal(t, []string{"Steel", "Carbon"}, chainNames(g, "s", 2))
}
