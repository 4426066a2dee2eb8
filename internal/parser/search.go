package parser

// FindFragment walks v depth-first and returns the first object that looks
// like graph data: one exposing associatedNodes or relationships, or a graph
// field wrapping nodes/edges arrays (the wrapper itself is returned).
func FindFragment(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t["associatedNodes"]; ok {
			return t, true
		}
		if _, ok := t["relationships"]; ok {
			return t, true
		}
		if g, ok := t["graph"].(map[string]any); ok && isGraphWrapper(g) {
			return g, true
		}
		for _, k := range sortedKeys(t) {
			if found, ok := FindFragment(t[k]); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range t {
			if found, ok := FindFragment(item); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func isGraphWrapper(g map[string]any) bool {
	_, hasNodes := g["nodes"].([]any)
	_, hasEdges := g["edges"].([]any)
	return hasNodes || hasEdges
}
