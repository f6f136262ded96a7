package border

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEdges reports edge JSON that does not match the wire format.
var ErrMalformedEdges = errors.New("malformed edge data")

// Axis selects the key names used for an edge pair on the wire.
type Axis uint8

const (
	// Horizontal edges use north/south keys.
	Horizontal Axis = iota
	// Vertical edges use west/east keys.
	Vertical
)

func (a Axis) keys() (lead, trail string) {
	if a == Vertical {
		return "west", "east"
	}
	return "north", "south"
}

type wireSpec struct {
	Weight float64 `json:"weight"`
	Style  string  `json:"style"`
	Color  string  `json:"color,omitempty"`
}

// MarshalJSON encodes a spec as {weight, style, color}; Unset encodes as null.
func (s Spec) MarshalJSON() ([]byte, error) {
	if s.Kind == KindUnset {
		return []byte("null"), nil
	}
	return json.Marshal(wireSpec{Weight: s.Weight, Style: string(s.Style), Color: s.Color})
}

// UnmarshalJSON decodes a spec, applying the normalization rules.
func (s *Spec) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*s = Unset()
		return nil
	}
	var wire wireSpec
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEdges, err)
	}
	style, err := ParseStyle(wire.Style)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEdges, err)
	}
	*s = Stroke(wire.Weight, style, wire.Color)
	return nil
}

// ParseSpec decodes a single spec from its JSON form. Empty input is Unset.
func ParseSpec(value string) (Spec, error) {
	if len(bytes.TrimSpace([]byte(value))) == 0 {
		return Unset(), nil
	}
	var s Spec
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		if errors.Is(err, ErrMalformedEdges) {
			return Unset(), err
		}
		return Unset(), fmt.Errorf("%w: %v", ErrMalformedEdges, err)
	}
	return s, nil
}

// MarshalMatrix encodes an edge matrix. Shared edges encode as a spec object,
// pairs as {north,south} or {west,east}, empty edges as null.
func MarshalMatrix(m Matrix, axis Axis) ([]byte, error) {
	leadKey, trailKey := axis.keys()
	rows := make([][]any, len(m))
	for i, row := range m {
		rows[i] = make([]any, len(row))
		for j, edge := range row {
			switch {
			case edge.Empty():
				rows[i][j] = nil
			case edge.shared:
				rows[i][j] = edge.Lead
			default:
				rows[i][j] = map[string]Spec{leadKey: edge.Lead, trailKey: edge.Trail}
			}
		}
	}
	return json.Marshal(rows)
}

// UnmarshalMatrix decodes an edge matrix written by MarshalMatrix.
func UnmarshalMatrix(data []byte, axis Axis) (Matrix, error) {
	leadKey, trailKey := axis.keys()
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEdges, err)
	}
	m := make(Matrix, len(raw))
	for i, row := range raw {
		m[i] = make([]Edge, len(row))
		for j, entry := range row {
			edge, err := decodeEdge(entry, leadKey, trailKey)
			if err != nil {
				return nil, fmt.Errorf("entry [%d][%d]: %w", i, j, err)
			}
			m[i][j] = edge
		}
	}
	return m, nil
}

func decodeEdge(data json.RawMessage, leadKey, trailKey string) (Edge, error) {
	if isNull(data) {
		return Edge{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Edge{}, fmt.Errorf("%w: %v", ErrMalformedEdges, err)
	}
	_, hasLead := fields[leadKey]
	_, hasTrail := fields[trailKey]
	if hasLead || hasTrail {
		for key := range fields {
			if key != leadKey && key != trailKey {
				return Edge{}, fmt.Errorf("%w: unexpected key %q in edge pair", ErrMalformedEdges, key)
			}
		}
		var lead, trail Spec
		if hasLead {
			if err := lead.UnmarshalJSON(fields[leadKey]); err != nil {
				return Edge{}, err
			}
		}
		if hasTrail {
			if err := trail.UnmarshalJSON(fields[trailKey]); err != nil {
				return Edge{}, err
			}
		}
		return Pair(lead, trail), nil
	}
	if _, ok := fields["weight"]; !ok {
		if _, ok := fields["style"]; !ok {
			return Edge{}, fmt.Errorf("%w: entry is neither a spec nor a %s/%s pair", ErrMalformedEdges, leadKey, trailKey)
		}
	}
	var spec Spec
	if err := spec.UnmarshalJSON(data); err != nil {
		return Edge{}, err
	}
	return Shared(spec), nil
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
