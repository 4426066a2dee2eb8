package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// EdgeIDSeparator joins the sorted endpoints and relation type of an edge ID.
const EdgeIDSeparator = "--"

// idFields is the preference order for identity-like fields on objects.
var idFields = []string{"id", "ID", "uuid", "elementId", "identity", "_id"}

// nameFields is the preference order for human labels on objects.
var nameFields = []string{"name", "displayName", "title", "label"}

// ExtractID derives a stable identifier from an entity as returned by the
// backend. Primitives map to their string form; objects yield the first
// present identity field. Returns false when no identity can be found.
func ExtractID(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t), true
	case map[string]any:
		for _, f := range idFields {
			if id, ok := scalarID(t[f]); ok {
				return id, true
			}
		}
		return "", false
	case dbtype.Node:
		if id, ok := scalarID(t.Props["id"]); ok {
			return id, true
		}
		return t.ElementId, t.ElementId != ""
	case *dbtype.Node:
		if t == nil {
			return "", false
		}
		return ExtractID(*t)
	case dbtype.Relationship:
		if id, ok := scalarID(t.Props["id"]); ok {
			return id, true
		}
		return t.ElementId, t.ElementId != ""
	}
	return "", false
}

// scalarID accepts only primitive identity values; a nested object under an
// id field is not an identity.
func scalarID(v any) (string, bool) {
	switch v.(type) {
	case map[string]any, []any, nil, bool:
		return "", false
	}
	return ExtractID(v)
}

// MakeEdgeID returns an order-independent identifier for the relation
// between a and b, so MakeEdgeID(a, b, t) == MakeEdgeID(b, a, t).
func MakeEdgeID(a, b, relType string) string {
	if b < a {
		a, b = b, a
	}
	return a + EdgeIDSeparator + relType + EdgeIDSeparator + b
}

// DisplayName picks a human label from properties, falling back to id.
func DisplayName(props map[string]any, id string) string {
	for _, f := range nameFields {
		if s, ok := props[f].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return id
}

// Labels reads type tags from an object: `labels` (list or string) then `type`.
func Labels(obj map[string]any) []string {
	switch l := obj["labels"].(type) {
	case []string:
		return append([]string(nil), l...)
	case []any:
		out := make([]string, 0, len(l))
		for _, v := range l {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	case string:
		if l != "" {
			return []string{l}
		}
	}
	if t, ok := obj["type"].(string); ok && t != "" {
		return []string{t}
	}
	return nil
}
