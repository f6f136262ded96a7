package node

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"bloomgrid/api/internal/border"
)

// Declarative attribute names. Serialized documents and other code read and
// write grid state through these.
const (
	AttrColumnWidths  = "data-column-widths"
	AttrRowHeights    = "data-row-heights"
	AttrSpanX         = "data-span-x"
	AttrSpanY         = "data-span-y"
	AttrSkip          = "data-skip"
	AttrEdgesH        = "data-edges-h"
	AttrEdgesV        = "data-edges-v"
	AttrBorderDefault = "data-border-default"
	AttrGapX          = "data-gap-x"
	AttrGapY          = "data-gap-y"
	AttrCorners       = "data-corners"
)

// GridAttrs encodes grid props as declarative attributes.
func GridAttrs(g *GridProps) (map[string]string, error) {
	attrs := map[string]string{
		AttrColumnWidths: JoinTokens(g.Columns),
		AttrRowHeights:   JoinTokens(g.Rows),
	}
	h, err := border.MarshalMatrix(g.Edges.H, border.Horizontal)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", AttrEdgesH, err)
	}
	v, err := border.MarshalMatrix(g.Edges.V, border.Vertical)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", AttrEdgesV, err)
	}
	attrs[AttrEdgesH] = string(h)
	attrs[AttrEdgesV] = string(v)
	if g.EdgeDefault.IsSet() {
		d, err := json.Marshal(g.EdgeDefault)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", AttrBorderDefault, err)
		}
		attrs[AttrBorderDefault] = string(d)
	}
	if len(g.GapX) > 0 {
		attrs[AttrGapX] = strings.Join(g.GapX, ",")
	}
	if len(g.GapY) > 0 {
		attrs[AttrGapY] = strings.Join(g.GapY, ",")
	}
	if g.Corners != nil {
		c, err := json.Marshal(g.Corners)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", AttrCorners, err)
		}
		attrs[AttrCorners] = string(c)
	}
	return attrs, nil
}

// ParseGridAttrs decodes grid props. Missing edge matrices start empty;
// present ones must match the track counts.
func ParseGridAttrs(attrs map[string]string) (*GridProps, error) {
	columns, err := SplitTokens(attrs[AttrColumnWidths])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AttrColumnWidths, err)
	}
	rows, err := SplitTokens(attrs[AttrRowHeights])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", AttrRowHeights, err)
	}
	if len(columns) == 0 || len(rows) == 0 {
		return nil, fmt.Errorf("grid needs at least one column and one row")
	}
	g := NewGridProps(columns, rows)

	if raw := strings.TrimSpace(attrs[AttrEdgesH]); raw != "" {
		m, err := border.UnmarshalMatrix([]byte(raw), border.Horizontal)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", AttrEdgesH, err)
		}
		if err := m.CheckShape(len(rows)+1, len(columns)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", AttrEdgesH, err)
		}
		g.Edges.H = m
	}
	if raw := strings.TrimSpace(attrs[AttrEdgesV]); raw != "" {
		m, err := border.UnmarshalMatrix([]byte(raw), border.Vertical)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", AttrEdgesV, err)
		}
		if err := m.CheckShape(len(rows), len(columns)+1); err != nil {
			return nil, fmt.Errorf("parse %s: %w", AttrEdgesV, err)
		}
		g.Edges.V = m
	}
	if g.EdgeDefault, err = border.ParseSpec(attrs[AttrBorderDefault]); err != nil {
		return nil, fmt.Errorf("parse %s: %w", AttrBorderDefault, err)
	}
	g.GapX = splitList(attrs[AttrGapX])
	g.GapY = splitList(attrs[AttrGapY])
	if raw := strings.TrimSpace(attrs[AttrCorners]); raw != "" {
		var c Corners
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", AttrCorners, err)
		}
		g.Corners = &c
	}
	return g, nil
}

// CellAttrs encodes cell props.
func CellAttrs(c *CellProps) map[string]string {
	attrs := map[string]string{
		AttrSpanX: strconv.Itoa(c.SpanX),
		AttrSpanY: strconv.Itoa(c.SpanY),
	}
	if c.Skip {
		attrs[AttrSkip] = "true"
	}
	return attrs
}

// ParseCellAttrs decodes cell props; spans default to 1.
func ParseCellAttrs(attrs map[string]string) (*CellProps, error) {
	c := &CellProps{SpanX: 1, SpanY: 1}
	var err error
	if c.SpanX, err = parseSpan(attrs[AttrSpanX]); err != nil {
		return nil, fmt.Errorf("parse %s: %w", AttrSpanX, err)
	}
	if c.SpanY, err = parseSpan(attrs[AttrSpanY]); err != nil {
		return nil, fmt.Errorf("parse %s: %w", AttrSpanY, err)
	}
	c.Skip = attrs[AttrSkip] == "true"
	return c, nil
}

func parseSpan(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("span %d is below 1", n)
	}
	return n, nil
}

// JoinTokens renders a token list in its comma-joined form.
func JoinTokens(tokens []SizeToken) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

// SplitTokens parses a comma-joined token list.
func SplitTokens(value string) ([]SizeToken, error) {
	parts := splitList(value)
	tokens := make([]SizeToken, 0, len(parts))
	for _, p := range parts {
		t, err := ParseSizeToken(p)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
