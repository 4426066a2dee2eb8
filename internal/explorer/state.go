// Package explorer holds the interaction state of a graph exploration: the
// live graph, the selected node and in-flight fetches.
//
// Transitions are pure: Reduce takes a State and an Event and returns the
// next State without touching the input. Session wraps the reducer with
// asynchronous fetching, the layout simulation and subscriber fan-out.
package explorer

import (
	"errors"

	"github.com/msalah0e/kgx/internal/graph"
	"github.com/msalah0e/kgx/internal/merge"
	"github.com/msalah0e/kgx/internal/parser"
)

// ErrNothingFound is reported when a query or expansion yields no nodes and
// no edges. It is a notice, not a failure.
var ErrNothingFound = errors.New("nothing found")

// Mode is the selection state.
type Mode int

const (
	Idle Mode = iota
	NodeSelected
)

func (m Mode) String() string {
	if m == NodeSelected {
		return "node-selected"
	}
	return "idle"
}

// State is one immutable view of the exploration. Graph is never mutated
// after it is stored; transitions replace it.
type State struct {
	Graph    *graph.Graph
	Selected string

	// Token identifies the live top-level query; results carrying another
	// token are stale.
	Token   string
	Query   string
	Loading bool
	// Pending counts association fetches in flight.
	Pending int

	Notice string
	Err    error
	Filter string

	// LastMerge is the outcome of the most recent association merge.
	LastMerge merge.Result
	Merge     merge.Options
	Revision  uint64
}

// NewState returns an idle state with an empty graph.
func NewState(opts merge.Options) State {
	return State{Graph: graph.New(), Merge: opts}
}

// Mode reports whether a node is selected.
func (s State) Mode() Mode {
	if s.Selected == "" {
		return Idle
	}
	return NodeSelected
}

// Busy reports whether any fetch is outstanding.
func (s State) Busy() bool {
	return s.Loading || s.Pending > 0
}

// Event is a state transition input.
type Event interface {
	isEvent()
}

// QueryIssued starts a fresh top-level query: the graph and selection are
// cleared.
type QueryIssued struct {
	Token string
	Text  string
}

// QueryResolved delivers the parsed result of a top-level query.
type QueryResolved struct {
	Token    string
	Fragment parser.Fragment
}

// QueryFailed reports a failed top-level query.
type QueryFailed struct {
	Token string
	Err   error
}

// NodeClicked selects a node; the caller starts an association fetch.
type NodeClicked struct {
	ID string
}

// BackgroundClicked clears the selection.
type BackgroundClicked struct{}

// AssociationsResolved delivers an expansion of Origin. It merges against
// whatever graph is current on arrival.
type AssociationsResolved struct {
	Origin    string
	Fragment  parser.Fragment
	Positions merge.Positions
}

// AssociationsFailed reports a failed expansion fetch.
type AssociationsFailed struct {
	Origin string
	Err    error
}

// FilterChanged replaces the node filter expression.
type FilterChanged struct {
	Expr string
}

func (QueryIssued) isEvent()          {}
func (QueryResolved) isEvent()        {}
func (QueryFailed) isEvent()          {}
func (NodeClicked) isEvent()          {}
func (BackgroundClicked) isEvent()    {}
func (AssociationsResolved) isEvent() {}
func (AssociationsFailed) isEvent()   {}
func (FilterChanged) isEvent()        {}

// Reduce applies ev to s. Events that do not apply, such as results for a
// superseded query, return s unchanged.
func Reduce(s State, ev Event) State {
	if s.Graph == nil {
		s.Graph = graph.New()
	}
	next := s
	switch e := ev.(type) {
	case QueryIssued:
		next.Graph = graph.New()
		next.Selected = ""
		next.Token = e.Token
		next.Query = e.Text
		next.Loading = true
		next.Notice, next.Err = "", nil
		next.LastMerge = merge.Result{}

	case QueryResolved:
		if e.Token != s.Token {
			return s
		}
		next.Graph = e.Fragment.Graph()
		next.Loading = false
		next.Notice, next.Err = "", nil
		if e.Fragment.Empty() {
			next.Notice = "No results found."
		}

	case QueryFailed:
		if e.Token != s.Token {
			return s
		}
		next.Loading = false
		next.Err = e.Err
		next.Notice = "Query failed: " + errString(e.Err)

	case NodeClicked:
		if !s.Graph.HasNode(e.ID) {
			return s
		}
		next.Selected = e.ID
		next.Pending++
		next.Notice, next.Err = "", nil

	case BackgroundClicked:
		if s.Selected == "" {
			return s
		}
		next.Selected = ""

	case AssociationsResolved:
		next.Pending = decPending(s.Pending)
		g, res := merge.Merge(s.Graph, e.Origin, e.Fragment, e.Positions, mergeOptions(s.Merge), s.Selected)
		next.Graph = g
		next.LastMerge = res
		next.Notice, next.Err = "", nil
		if res.Empty {
			next.Notice = "No associations found for " + e.Origin + "."
		}
		if next.Selected != "" && !g.HasNode(next.Selected) {
			next.Selected = ""
		}

	case AssociationsFailed:
		next.Pending = decPending(s.Pending)
		next.Err = e.Err
		next.Notice = "Could not load associations for " + e.Origin + ": " + errString(e.Err)

	case FilterChanged:
		if e.Expr == s.Filter {
			return s
		}
		next.Filter = e.Expr

	default:
		return s
	}
	next.Revision = s.Revision + 1
	return next
}

func decPending(n int) int {
	if n > 0 {
		return n - 1
	}
	return 0
}

func mergeOptions(o merge.Options) merge.Options {
	if o == (merge.Options{}) {
		return merge.DefaultOptions()
	}
	return o
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
