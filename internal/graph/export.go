package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a graph.
type Document struct {
	Nodes []*Node `json:"nodes" yaml:"nodes"`
	Edges []*Edge `json:"edges" yaml:"edges"`
}

// Document returns the graph as an ordered node/edge listing.
func (g *Graph) Document() Document {
	return Document{Nodes: g.Nodes(), Edges: g.Edges()}
}

// ExportJSON returns the graph as pretty-printed JSON.
func (g *Graph) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(g.Document(), "", "  ")
}

// ExportYAML returns the graph as YAML.
func (g *Graph) ExportYAML() ([]byte, error) {
	return yaml.Marshal(g.Document())
}

// ExportDOT returns the graph in Graphviz DOT format.
func (g *Graph) ExportDOT() string {
	var b strings.Builder
	b.WriteString("digraph kgx {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	for _, n := range g.Nodes() {
		label := n.DisplayName
		if len(n.Labels) > 0 {
			label += "\\n(" + strings.Join(n.Labels, ", ") + ")"
		}
		attrs := fmt.Sprintf("label=%q", label)
		if n.IsAssociation() {
			attrs += ", style=\"rounded,dashed\""
		}
		b.WriteString(fmt.Sprintf("  %q [%s];\n", n.ID, attrs))
	}

	b.WriteString("\n")
	for _, e := range g.Edges() {
		b.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n", e.Source, e.Target, e.Type))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderShow produces a terminal tree view of a node and its connections.
func RenderShow(g *Graph, id string, brandFn, subtleFn, infoFn func(string) string) (string, error) {
	result, err := g.ShowNode(id)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	for i, edge := range result.Incoming {
		prefix := "  ├── "
		if i == len(result.Incoming)-1 && len(result.Outgoing) == 0 {
			prefix = "  └── "
		}
		name := ""
		if edge.Source != nil {
			name = edge.Source.DisplayName
		}
		b.WriteString(fmt.Sprintf("%s%s %s %s\n", prefix, subtleFn(edge.Type), subtleFn("──"), brandFn(name)))
		b.WriteString("  │\n")
	}

	b.WriteString(fmt.Sprintf("  ● %s\n", brandFn(result.Node.DisplayName)))
	if len(result.Node.Labels) > 0 {
		b.WriteString(fmt.Sprintf("  │  %s\n", subtleFn(strings.Join(result.Node.Labels, ", "))))
	}
	if result.Node.IsAssociation() {
		b.WriteString(fmt.Sprintf("  │  %s\n", infoFn("association")))
	}

	if len(result.Outgoing) > 0 {
		b.WriteString("  │\n")
	}
	for i, edge := range result.Outgoing {
		prefix := "  ├── "
		if i == len(result.Outgoing)-1 {
			prefix = "  └── "
		}
		name := ""
		if edge.Target != nil {
			name = edge.Target.DisplayName
		}
		b.WriteString(fmt.Sprintf("%s%s %s %s\n", prefix, subtleFn(edge.Type), subtleFn("──"), brandFn(name)))
		if edge.Target != nil && len(edge.Target.Labels) > 0 {
			b.WriteString(fmt.Sprintf("              %s\n", subtleFn(strings.Join(edge.Target.Labels, ", "))))
		}
	}

	return b.String(), nil
}
