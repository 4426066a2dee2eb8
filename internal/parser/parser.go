// Package parser turns loosely shaped query-result payloads into candidate
// graph nodes and edges.
//
// Backend responses are not strictly contracted: a row value may be a single
// entity, an [entity, relation, entity] triple, or an explicit edge object,
// and expansion payloads may bury their data arbitrarily deep. The parser
// never fails on shape; unusable input yields an empty Fragment.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/msalah0e/kgx/internal/graph"
)

// SyntheticType is the relation type of edges synthesized between
// consecutive result nodes when a query returns no relationships.
const SyntheticType = "RELATED"

// Options controls how a payload is interpreted.
type Options struct {
	// Expansion marks everything as an association and disables path
	// synthesis.
	Expansion bool
}

// Fragment is the parser output: candidate nodes and edges, in discovery order.
type Fragment struct {
	Nodes []*graph.Node
	Edges []*graph.Edge
}

// Empty reports whether nothing was found.
func (f Fragment) Empty() bool {
	return len(f.Nodes) == 0 && len(f.Edges) == 0
}

// Graph builds a standalone graph from the fragment. Edges whose endpoints
// are not in the fragment are dropped.
func (f Fragment) Graph() *graph.Graph {
	g := graph.New()
	for _, n := range f.Nodes {
		g.UpsertNode(n.Clone())
	}
	for _, e := range f.Edges {
		g.AddEdge(e.Clone())
	}
	return g
}

// ParseJSON decodes data and parses it. Numbers are kept as json.Number so
// large integer identities survive. A decode error still returns an empty
// fragment alongside the error.
func ParseJSON(data []byte, opts Options) (Fragment, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return Fragment{}, fmt.Errorf("decode result payload: %w", err)
	}
	return Parse(payload, opts), nil
}

// Parse interprets a decoded payload. It first reads the top-level result
// rows; when nothing is found there it searches the whole payload for an
// association or graph substructure.
func Parse(payload any, opts Options) Fragment {
	b := newBuilder(opts)
	b.topLevel(payload)
	if b.empty() {
		if sub, ok := FindFragment(payload); ok {
			b.row(sub)
		}
	}
	b.resolvePending()
	if !opts.Expansion {
		b.synthesizePath()
	}
	return b.fragment()
}

type builder struct {
	opts      Options
	nodes     map[string]*graph.Node
	nodeOrder []string
	edges     map[string]*graph.Edge
	edgeOrder []string
	elements  map[string]string
	pending   []ExplicitEdge
}

func newBuilder(opts Options) *builder {
	return &builder{
		opts:     opts,
		nodes:    make(map[string]*graph.Node),
		edges:    make(map[string]*graph.Edge),
		elements: make(map[string]string),
	}
}

func (b *builder) empty() bool {
	return len(b.nodes) == 0 && len(b.edges) == 0 && len(b.pending) == 0
}

func (b *builder) topLevel(payload any) {
	switch p := payload.(type) {
	case map[string]any:
		if rows, ok := p["results"].([]any); ok {
			for _, r := range rows {
				b.resultRow(r)
			}
		}
		if rels, ok := p["relationships"].([]any); ok {
			for _, r := range rels {
				b.value(r)
			}
		}
		if g, ok := p["graph"].(map[string]any); ok && isGraphWrapper(g) {
			b.row(g)
		}
	case []any:
		for _, r := range p {
			b.resultRow(r)
		}
	}
}

// resultRow handles one entry of a results array. Rows are usually column
// maps; a row that is itself an entity is accepted when none of its columns
// produced anything.
func (b *builder) resultRow(r any) {
	m, ok := r.(map[string]any)
	if !ok {
		b.value(r)
		return
	}
	if b.row(m) {
		return
	}
	switch Classify(m).(type) {
	case BareNode, ExplicitEdge:
		b.value(m)
	}
}

// row applies the per-value rules to every column of an object, in key
// order. Returns whether any column was recognized.
func (b *builder) row(m map[string]any) bool {
	found := false
	for _, k := range sortedKeys(m) {
		if b.value(m[k]) {
			found = true
		}
	}
	return found
}

// value classifies v; lists that are not triples are unpacked one level.
func (b *builder) value(v any) bool {
	switch t := v.(type) {
	case dbtype.Path:
		found := false
		for _, n := range t.Nodes {
			found = b.apply(Classify(n)) || found
		}
		for _, r := range t.Relationships {
			found = b.apply(Classify(r)) || found
		}
		return found
	}
	row := Classify(v)
	if _, ok := row.(Unrecognized); ok {
		list, isList := v.([]any)
		if !isList {
			return false
		}
		found := false
		for _, item := range list {
			found = b.apply(Classify(item)) || found
		}
		return found
	}
	return b.apply(row)
}

func (b *builder) apply(row Row) bool {
	switch r := row.(type) {
	case Triple:
		return b.triple(r)
	case ExplicitEdge:
		if r.ElementRefs {
			b.pending = append(b.pending, r)
			return true
		}
		return b.explicitEdge(r)
	case BareNode:
		_, ok := b.addEntity(r.Entity)
		return ok
	}
	return false
}

// triple registers both endpoints and the edge, or nothing when either
// endpoint has no identity.
func (b *builder) triple(t Triple) bool {
	if _, ok := graph.ExtractID(t.Source); !ok {
		return false
	}
	if _, ok := graph.ExtractID(t.Target); !ok {
		return false
	}
	src, _ := b.addEntity(t.Source)
	dst, _ := b.addEntity(t.Target)
	b.addEdge(src, dst, t.Type, t.Raw)
	return true
}

func (b *builder) explicitEdge(e ExplicitEdge) bool {
	src, okS := graph.ExtractID(e.Source)
	dst, okT := graph.ExtractID(e.Target)
	if !okS || !okT {
		return false
	}
	b.addEdge(src, dst, e.Type, e.Raw)
	return true
}

// resolvePending maps driver element IDs on relationships to the node IDs
// discovered in the same payload.
func (b *builder) resolvePending() {
	for _, e := range b.pending {
		src := b.resolveElement(e.Source)
		dst := b.resolveElement(e.Target)
		if src == "" || dst == "" {
			continue
		}
		b.addEdge(src, dst, e.Type, e.Raw)
	}
	b.pending = nil
}

func (b *builder) resolveElement(v any) string {
	s, _ := v.(string)
	if id, ok := b.elements[s]; ok {
		return id
	}
	return s
}

// addEntity registers a node for an entity unless its ID is already known.
func (b *builder) addEntity(v any) (string, bool) {
	id, ok := graph.ExtractID(v)
	if !ok {
		return "", false
	}
	if _, known := b.nodes[id]; known {
		return id, true
	}

	var n *graph.Node
	switch t := v.(type) {
	case map[string]any:
		props := make(map[string]any, len(t)+1)
		for k, val := range t {
			props[k] = val
		}
		n = graph.NewNode(id, graph.DisplayName(t, id), graph.Labels(t), props)
	case dbtype.Node:
		props := make(map[string]any, len(t.Props)+1)
		for k, val := range t.Props {
			props[k] = val
		}
		n = graph.NewNode(id, graph.DisplayName(t.Props, id), append([]string(nil), t.Labels...), props)
		if t.ElementId != "" {
			b.elements[t.ElementId] = id
		}
	default:
		n = graph.NewNode(id, id, nil, nil)
	}
	n.Properties[graph.PropAssociation] = b.opts.Expansion

	b.nodes[id] = n
	b.nodeOrder = append(b.nodeOrder, id)
	return id, true
}

func (b *builder) addEdge(src, dst, relType string, raw any) {
	id := graph.MakeEdgeID(src, dst, relType)
	if _, dup := b.edges[id]; dup {
		return
	}
	b.edges[id] = graph.NewEdge(src, dst, relType, map[string]any{
		"raw":                 raw,
		graph.PropAssociation: b.opts.Expansion,
	})
	b.edgeOrder = append(b.edgeOrder, id)
}

// synthesizePath chains result nodes in discovery order when a query found
// nodes but no relationships.
func (b *builder) synthesizePath() {
	if len(b.edges) > 0 || len(b.nodeOrder) < 2 {
		return
	}
	for i := 0; i+1 < len(b.nodeOrder); i++ {
		src, dst := b.nodeOrder[i], b.nodeOrder[i+1]
		id := graph.MakeEdgeID(src, dst, SyntheticType)
		if _, dup := b.edges[id]; dup {
			continue
		}
		b.edges[id] = graph.NewEdge(src, dst, SyntheticType, map[string]any{
			"synthetic":           true,
			graph.PropAssociation: false,
		})
		b.edgeOrder = append(b.edgeOrder, id)
	}
}

func (b *builder) fragment() Fragment {
	f := Fragment{
		Nodes: make([]*graph.Node, 0, len(b.nodeOrder)),
		Edges: make([]*graph.Edge, 0, len(b.edgeOrder)),
	}
	for _, id := range b.nodeOrder {
		f.Nodes = append(f.Nodes, b.nodes[id])
	}
	for _, id := range b.edgeOrder {
		f.Edges = append(f.Edges, b.edges[id])
	}
	return f
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
