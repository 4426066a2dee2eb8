package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// GraphSource adapts a Client to the explorer's payload source: responses
// are decoded into generic JSON values for the parser.
type GraphSource struct {
	Client *Client
}

// Query runs text through the text-to-query endpoint.
func (s GraphSource) Query(ctx context.Context, text string) (any, error) {
	raw, err := s.Client.TextToQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// Associations fetches what is connected to nodeID.
func (s GraphSource) Associations(ctx context.Context, nodeID string) (any, error) {
	raw, err := s.Client.NodeAssociations(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func decode(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding graph payload: %w", err)
	}
	return v, nil
}
