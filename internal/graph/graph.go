package graph

import (
	"fmt"
	"sort"
	"strings"
)

// PropAssociation marks nodes and edges introduced by an expansion fetch
// rather than the original query.
const PropAssociation = "isAssociation"

// Point is a 2D coordinate in simulation space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node represents a graph entity.
type Node struct {
	ID          string         `json:"id" yaml:"id"`
	DisplayName string         `json:"displayName" yaml:"displayName"`
	Labels      []string       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Properties  map[string]any `json:"properties" yaml:"properties"`
	Position    *Point         `json:"position,omitempty" yaml:"position,omitempty"`
	Pinned      *Point         `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// Edge represents a directed relationship between two nodes.
type Edge struct {
	ID         string         `json:"id" yaml:"id"`
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Type       string         `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties" yaml:"properties"`
}

// Graph holds nodes keyed by ID and edges keyed by canonical edge ID.
// Insertion order is kept so rendering and export are deterministic.
type Graph struct {
	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder []string
	edgeOrder []string
}

// Stats holds summary counts.
type Stats struct {
	Nodes        int
	Edges        int
	Associations int
	Labels       int
}

// SearchResult holds a scored search hit.
type SearchResult struct {
	Node  *Node `json:"node"`
	Score int   `json:"score"`
}

// ShowResult holds the data for displaying a node with its connections.
type ShowResult struct {
	Node     *Node      `json:"node"`
	Outgoing []ShowEdge `json:"outgoing"`
	Incoming []ShowEdge `json:"incoming"`
}

// ShowEdge represents a connected node in a show result.
type ShowEdge struct {
	Type   string `json:"type"`
	Target *Node  `json:"target,omitempty"`
	Source *Node  `json:"source,omitempty"`
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// NewNode builds a node with a non-nil property map and the display name
// falling back to the ID.
func NewNode(id, name string, labels []string, props map[string]any) *Node {
	if props == nil {
		props = make(map[string]any)
	}
	if name == "" {
		name = id
	}
	return &Node{ID: id, DisplayName: name, Labels: labels, Properties: props}
}

// NewEdge builds an edge whose ID is derived from its endpoints and type.
func NewEdge(source, target, relType string, props map[string]any) *Edge {
	if props == nil {
		props = make(map[string]any)
	}
	return &Edge{
		ID:         MakeEdgeID(source, target, relType),
		Source:     source,
		Target:     target,
		Type:       relType,
		Properties: props,
	}
}

// IsAssociation reports whether the node was introduced by an expansion.
func (n *Node) IsAssociation() bool {
	b, _ := n.Properties[PropAssociation].(bool)
	return b
}

// Clone returns a deep-enough copy: property maps, labels and positions are
// copied, property values are shared.
func (n *Node) Clone() *Node {
	c := *n
	c.Labels = append([]string(nil), n.Labels...)
	c.Properties = make(map[string]any, len(n.Properties))
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	if n.Position != nil {
		p := *n.Position
		c.Position = &p
	}
	if n.Pinned != nil {
		p := *n.Pinned
		c.Pinned = &p
	}
	return &c
}

// Clone returns a copy of the edge with its own property map.
func (e *Edge) Clone() *Edge {
	c := *e
	c.Properties = make(map[string]any, len(e.Properties))
	for k, v := range e.Properties {
		c.Properties[k] = v
	}
	return &c
}

// ─── Nodes ───

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// UpsertNode inserts n, or merges it into the existing node with the same
// ID. On merge incoming properties win on conflict, and the incoming display
// name and labels replace the existing ones when provided. The existing
// node's position is never touched. Reports whether the node was new.
func (g *Graph) UpsertNode(n *Node) bool {
	if n == nil || n.ID == "" {
		return false
	}
	existing, ok := g.nodes[n.ID]
	if !ok {
		if n.Properties == nil {
			n.Properties = make(map[string]any)
		}
		if n.DisplayName == "" {
			n.DisplayName = n.ID
		}
		g.nodes[n.ID] = n
		g.nodeOrder = append(g.nodeOrder, n.ID)
		return true
	}
	mergeInto(existing, n)
	return false
}

func mergeInto(dst, src *Node) {
	if src.DisplayName != "" && src.DisplayName != src.ID {
		dst.DisplayName = src.DisplayName
	}
	if len(src.Labels) > 0 {
		dst.Labels = append([]string(nil), src.Labels...)
	}
	if dst.Properties == nil {
		dst.Properties = make(map[string]any, len(src.Properties))
	}
	for k, v := range src.Properties {
		dst.Properties[k] = v
	}
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)
	g.nodeOrder = without(g.nodeOrder, id)
	for _, eid := range append([]string(nil), g.edgeOrder...) {
		e := g.edges[eid]
		if e.Source == id || e.Target == id {
			g.removeEdge(eid)
		}
	}
	return true
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodeIDs returns node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.nodeOrder...)
}

// Position implements a read-only position lookup over node snapshots.
func (g *Graph) Position(id string) (Point, bool) {
	n, ok := g.nodes[id]
	if !ok || n.Position == nil {
		return Point{}, false
	}
	return *n.Position, true
}

// ─── Edges ───

// AddEdge inserts e if both endpoints exist and its ID is new.
func (g *Graph) AddEdge(e *Edge) bool {
	if e == nil {
		return false
	}
	if e.ID == "" {
		e.ID = MakeEdgeID(e.Source, e.Target, e.Type)
	}
	if _, dup := g.edges[e.ID]; dup {
		return false
	}
	if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
		return false
	}
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	return true
}

// HasEdge reports whether an edge with the given ID is present.
func (g *Graph) HasEdge(id string) bool {
	_, ok := g.edges[id]
	return ok
}

// Edge returns an edge by ID.
func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// RemoveEdge deletes an edge by ID.
func (g *Graph) RemoveEdge(id string) bool {
	if _, ok := g.edges[id]; !ok {
		return false
	}
	g.removeEdge(id)
	return true
}

func (g *Graph) removeEdge(id string) {
	delete(g.edges, id)
	g.edgeOrder = without(g.edgeOrder, id)
}

// Edges returns edges in insertion order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// ─── Structure ───

// Degrees counts incident edges per node. Nodes without edges map to zero.
func (g *Graph) Degrees() map[string]int {
	deg := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		deg[id] = 0
	}
	for _, e := range g.edges {
		deg[e.Source]++
		if e.Target != e.Source {
			deg[e.Target]++
		}
	}
	return deg
}

// Neighbors returns the IDs directly connected to id, in edge order.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		var other string
		switch {
		case e.Source == id:
			other = e.Target
		case e.Target == id:
			other = e.Source
		default:
			continue
		}
		if other != id && !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

// Chain walks from id to the first unvisited neighbor, in edge order, until
// it holds max nodes or reaches a dead end. It returns nil for an unknown id.
func (g *Graph) Chain(id string, max int) []string {
	if !g.HasNode(id) {
		return nil
	}
	visited := map[string]bool{id: true}
	out := []string{id}
	for cur := id; max <= 0 || len(out) < max; {
		next := ""
		for _, nb := range g.Neighbors(cur) {
			if !visited[nb] {
				next = nb
				break
			}
		}
		if next == "" {
			break
		}
		visited[next] = true
		out = append(out, next)
		cur = next
	}
	return out
}

// PruneDangling removes edges whose endpoints are missing.
func (g *Graph) PruneDangling() int {
	removed := 0
	for _, eid := range append([]string(nil), g.edgeOrder...) {
		e := g.edges[eid]
		if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
			g.removeEdge(eid)
			removed++
		}
	}
	return removed
}

// PruneOrphanAssociations removes association nodes with no incident edges,
// except the IDs in keep. Returns the removed IDs.
func (g *Graph) PruneOrphanAssociations(keep ...string) []string {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		if k != "" {
			keepSet[k] = true
		}
	}
	deg := g.Degrees()
	var removed []string
	for _, id := range append([]string(nil), g.nodeOrder...) {
		n := g.nodes[id]
		if keepSet[id] || !n.IsAssociation() || deg[id] > 0 {
			continue
		}
		delete(g.nodes, id)
		g.nodeOrder = without(g.nodeOrder, id)
		removed = append(removed, id)
	}
	return removed
}

// Clone returns an independent copy of the graph.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, id := range g.nodeOrder {
		c.nodes[id] = g.nodes[id].Clone()
	}
	c.nodeOrder = append([]string(nil), g.nodeOrder...)
	for _, id := range g.edgeOrder {
		c.edges[id] = g.edges[id].Clone()
	}
	c.edgeOrder = append([]string(nil), g.edgeOrder...)
	return c
}

// SameShape reports whether both graphs hold the same node and edge IDs.
func (g *Graph) SameShape(other *Graph) bool {
	if other == nil {
		return g.Len() == 0 && g.EdgeCount() == 0
	}
	if len(g.nodes) != len(other.nodes) || len(g.edges) != len(other.edges) {
		return false
	}
	for id := range g.nodes {
		if !other.HasNode(id) {
			return false
		}
	}
	for id := range g.edges {
		if !other.HasEdge(id) {
			return false
		}
	}
	return true
}

// Fingerprint identifies the node and edge content, independent of
// positions. Two graphs with the same fingerprint need no layout re-seed.
func (g *Graph) Fingerprint() string {
	ids := g.NodeIDs()
	sort.Strings(ids)
	eids := append([]string(nil), g.edgeOrder...)
	sort.Strings(eids)
	return strings.Join(ids, "\x1f") + "\x1e" + strings.Join(eids, "\x1f")
}

// ─── Query ───

// RelationsOf returns outgoing and incoming edges for a node.
func (g *Graph) RelationsOf(id string) ([]*Edge, []*Edge) {
	var outgoing, incoming []*Edge
	for _, e := range g.Edges() {
		if e.Source == id {
			outgoing = append(outgoing, e)
		}
		if e.Target == id {
			incoming = append(incoming, e)
		}
	}
	return outgoing, incoming
}

// Search finds nodes matching a query string. Scored: id/name(100) > label(20) > property(10).
func (g *Graph) Search(query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var results []SearchResult

	for _, n := range g.Nodes() {
		score := 0
		name := strings.ToLower(n.DisplayName)
		id := strings.ToLower(n.ID)

		if name == q || id == q {
			score += 100
		} else if strings.Contains(name, q) || strings.Contains(id, q) {
			score += 50
		}

		for _, l := range n.Labels {
			if strings.EqualFold(l, q) {
				score += 20
				break
			} else if strings.Contains(strings.ToLower(l), q) {
				score += 15
				break
			}
		}

		for _, v := range n.Properties {
			s, ok := v.(string)
			if ok && strings.Contains(strings.ToLower(s), q) {
				score += 10
				break
			}
		}

		if score > 0 {
			results = append(results, SearchResult{Node: n, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// GetStats returns summary statistics.
func (g *Graph) GetStats() Stats {
	labels := make(map[string]bool)
	assoc := 0
	for _, n := range g.nodes {
		for _, l := range n.Labels {
			labels[l] = true
		}
		if n.IsAssociation() {
			assoc++
		}
	}
	return Stats{
		Nodes:        len(g.nodes),
		Edges:        len(g.edges),
		Associations: assoc,
		Labels:       len(labels),
	}
}

// ShowNode builds the data for displaying a node with its connections.
func (g *Graph) ShowNode(id string) (*ShowResult, error) {
	n, ok := g.Node(id)
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	outgoing, incoming := g.RelationsOf(id)
	result := &ShowResult{Node: n}

	for _, e := range outgoing {
		target, _ := g.Node(e.Target)
		result.Outgoing = append(result.Outgoing, ShowEdge{Type: e.Type, Target: target})
	}
	for _, e := range incoming {
		source, _ := g.Node(e.Source)
		result.Incoming = append(result.Incoming, ShowEdge{Type: e.Type, Source: source})
	}
	return result, nil
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
