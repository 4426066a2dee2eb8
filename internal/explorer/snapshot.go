package explorer

import (
	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/layout"
)

// NodeView is the read-only projection of a node handed to renderers.
type NodeView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Labels      []string       `json:"labels,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	Association bool           `json:"association"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Positioned  bool           `json:"positioned"`
	Pinned      bool           `json:"pinned"`
	Selected    bool           `json:"selected"`
	Neighbor    bool           `json:"neighbor"`
}

// EdgeView is the read-only projection of an edge.
type EdgeView struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Association bool   `json:"association"`
	Highlight   bool   `json:"highlight"`
}

// Snapshot is the renderer hand-off: nodes, edges and the selection, plus
// the view transform and status text.
type Snapshot struct {
	Revision  uint64           `json:"revision"`
	Mode      string           `json:"mode"`
	Selected  string           `json:"selected,omitempty"`
	Query     string           `json:"query,omitempty"`
	Nodes     []NodeView       `json:"nodes"`
	Edges     []EdgeView       `json:"edges"`
	Hidden    int              `json:"hidden"`
	Transform layout.Transform `json:"transform"`
	Loading   bool             `json:"loading"`
	Notice    string           `json:"notice,omitempty"`
	Error     string           `json:"error,omitempty"`
	Filter    string           `json:"filter,omitempty"`
	Alpha     float64          `json:"alpha"`
	Settled   bool             `json:"settled"`
}

// Snapshot projects the current state. Nodes rejected by the filter are
// left out, the selected node excepted, along with edges touching them.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	st := s.state
	f := s.filter
	s.mu.Unlock()

	g := st.Graph
	var keep map[string]bool
	if f != nil {
		keep = f.Apply(g)
		if st.Selected != "" {
			keep[st.Selected] = true
		}
	}
	visible := func(id string) bool { return keep == nil || keep[id] }

	neighbors := make(map[string]bool)
	if st.Selected != "" {
		for _, id := range g.Neighbors(st.Selected) {
			neighbors[id] = true
		}
	}

	pos := s.sim.Positions()
	snap := Snapshot{
		Revision:  st.Revision,
		Mode:      st.Mode().String(),
		Selected:  st.Selected,
		Query:     st.Query,
		Nodes:     make([]NodeView, 0, g.Len()),
		Edges:     make([]EdgeView, 0, g.EdgeCount()),
		Transform: s.view.Transform(),
		Loading:   st.Busy(),
		Notice:    st.Notice,
		Filter:    st.Filter,
		Alpha:     s.sim.Alpha(),
		Settled:   s.sim.Settled(),
	}
	if st.Err != nil {
		snap.Error = st.Err.Error()
	}

	for _, n := range g.Nodes() {
		if !visible(n.ID) {
			snap.Hidden++
			continue
		}
		v := NodeView{
			ID:          n.ID,
			Name:        n.DisplayName,
			Labels:      append([]string(nil), n.Labels...),
			Properties:  publicProps(n),
			Association: n.IsAssociation(),
			Selected:    n.ID == st.Selected,
			Neighbor:    neighbors[n.ID],
			Pinned:      s.sim.Pinned(n.ID),
		}
		if p, ok := pos[n.ID]; ok {
			v.X, v.Y, v.Positioned = p.X, p.Y, true
		}
		snap.Nodes = append(snap.Nodes, v)
	}
	for _, e := range g.Edges() {
		if !visible(e.Source) || !visible(e.Target) {
			continue
		}
		assoc, _ := e.Properties[graph.PropAssociation].(bool)
		snap.Edges = append(snap.Edges, EdgeView{
			ID:          e.ID,
			Source:      e.Source,
			Target:      e.Target,
			Type:        e.Type,
			Association: assoc,
			Highlight:   st.Selected != "" && (e.Source == st.Selected || e.Target == st.Selected),
		})
	}
	return snap
}

// publicProps copies the properties shown to renderers, dropping the
// association marker.
func publicProps(n *graph.Node) map[string]any {
	out := make(map[string]any, len(n.Properties))
	for k, v := range n.Properties {
		if k == graph.PropAssociation {
			continue
		}
		out[k] = v
	}
	return out
}
