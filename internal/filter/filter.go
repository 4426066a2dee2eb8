// Package filter compiles CEL expressions that decide which nodes are shown
// while exploring.
//
// An expression sees these variables:
//
//	id          string
//	name        string
//	labels      list(string)
//	props       map(string, dyn)
//	association bool
//	degree      int
//
// For example: `"Batch" in labels && degree > 1`.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/msalah0e/kgx/internal/graph"
)

// Filter is a compiled node predicate. A nil *Filter matches everything.
type Filter struct {
	expr string
	prg  cel.Program
}

var env *cel.Env

func init() {
	var err error
	env, err = cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("labels", cel.ListType(cel.StringType)),
		cel.Variable("props", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("association", cel.BoolType),
		cel.Variable("degree", cel.IntType),
	)
	if err != nil {
		panic(fmt.Sprintf("filter: building CEL env: %v", err))
	}
}

// Compile parses and type-checks expr. An empty expression yields nil.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("invalid filter %q: result is %s, want bool", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter for n with the given degree. Evaluation errors,
// such as a missing map key, count as no match and are returned.
func (f *Filter) Match(n *graph.Node, degree int) (bool, error) {
	if f == nil {
		return true, nil
	}
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	out, _, err := f.prg.Eval(map[string]any{
		"id":          n.ID,
		"name":        n.DisplayName,
		"labels":      labels,
		"props":       normalize(n.Properties),
		"association": n.IsAssociation(),
		"degree":      int64(degree),
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	return ok && b, nil
}

// Apply returns the IDs of nodes in g that match. Nodes that fail to
// evaluate are excluded.
func (f *Filter) Apply(g *graph.Graph) map[string]bool {
	deg := g.Degrees()
	keep := make(map[string]bool, g.Len())
	for _, n := range g.Nodes() {
		if ok, _ := f.Match(n, deg[n.ID]); ok {
			keep[n.ID] = true
		}
	}
	return keep
}

// normalize converts property values into types CEL adapts natively.
func normalize(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		return normalize(t)
	default:
		return fmt.Sprint(t)
	}
}
