package parser

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/msalah0e/kgx/internal/graph"
)

// Row is the classification of one value found inside a result row.
// Exactly one of Triple, ExplicitEdge, BareNode or Unrecognized.
type Row interface {
	isRow()
}

// Triple is an [entity, "RELATION", entity] sequence.
type Triple struct {
	Source any
	Type   string
	Target any
	Raw    []any
}

// ExplicitEdge is an object carrying source, target and type directly.
// Endpoint nodes are not created from it. When ElementRefs is set the
// endpoints are driver element IDs that still need resolving.
type ExplicitEdge struct {
	Source      any
	Target      any
	Type        string
	Raw         any
	ElementRefs bool
}

// BareNode is an object with an identity field.
type BareNode struct {
	Entity any
}

// Unrecognized is anything else.
type Unrecognized struct {
	Value any
}

func (Triple) isRow()       {}
func (ExplicitEdge) isRow() {}
func (BareNode) isRow()     {}
func (Unrecognized) isRow() {}

// Classify inspects a single value and assigns it to one variant. Shapes
// are tried in order: triple, explicit edge, bare node.
func Classify(v any) Row {
	switch t := v.(type) {
	case []any:
		if len(t) == 3 {
			if rel, ok := t[1].(string); ok {
				return Triple{Source: t[0], Type: rel, Target: t[2], Raw: t}
			}
		}
	case map[string]any:
		if isEdgeObject(t) {
			return ExplicitEdge{Source: t["source"], Target: t["target"], Type: relType(t["type"]), Raw: t}
		}
		if _, ok := graph.ExtractID(t); ok {
			return BareNode{Entity: t}
		}
	case dbtype.Relationship:
		return ExplicitEdge{Source: t.StartElementId, Target: t.EndElementId, Type: t.Type, Raw: t, ElementRefs: true}
	case dbtype.Node:
		if _, ok := graph.ExtractID(t); ok {
			return BareNode{Entity: t}
		}
	}
	return Unrecognized{Value: v}
}

func isEdgeObject(m map[string]any) bool {
	_, hasSource := m["source"]
	_, hasTarget := m["target"]
	_, hasType := m["type"]
	return hasSource && hasTarget && hasType
}

func relType(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
