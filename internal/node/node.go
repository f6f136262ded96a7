// Package node stores grid documents as an arena of typed nodes addressed by
// stable integer IDs. The declarative attribute form of a grid is produced
// only at the encoding boundary (see attrs.go).
package node

import (
	"errors"
	"fmt"
	"strings"

	"bloomgrid/api/internal/border"
)

// ID addresses a node in a Tree. IDs are never reused within one tree.
type ID int32

// NoID is the parent of the document root and of detached nodes.
const NoID ID = -1

// Kind identifies the type of node.
type Kind uint8

const (
	KindDocument Kind = iota
	KindGrid
	KindCell
	KindContent
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindGrid:
		return "grid"
	case KindCell:
		return "cell"
	default:
		return "content"
	}
}

var (
	ErrNotFound = errors.New("node not found")
	ErrAttached = errors.New("node already has a parent")
	ErrCycle    = errors.New("node cannot contain itself")
)

// SizeToken is a column width or row height as authored: hug, fill or a
// literal length.
type SizeToken string

const (
	Hug  SizeToken = "hug"
	Fill SizeToken = "fill"
)

// ParseSizeToken normalizes a token. Literal lengths are kept verbatim.
func ParseSizeToken(value string) (SizeToken, error) {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "":
		return "", fmt.Errorf("empty size token")
	case string(Hug):
		return Hug, nil
	case string(Fill):
		return Fill, nil
	}
	if strings.ContainsAny(trimmed, ",;{}") {
		return "", fmt.Errorf("invalid size token %q", value)
	}
	return SizeToken(trimmed), nil
}

// Corners is the grid-level corner rounding.
type Corners struct {
	Radius float64 `json:"radius"`
}

// GridProps is the state of a grid node.
type GridProps struct {
	Columns     []SizeToken
	Rows        []SizeToken
	Edges       border.Edges
	EdgeDefault border.Spec
	GapX        []string
	GapY        []string
	Corners     *Corners
}

// NewGridProps returns props for a grid with the given tracks and empty edges.
func NewGridProps(columns, rows []SizeToken) *GridProps {
	return &GridProps{
		Columns: append([]SizeToken(nil), columns...),
		Rows:    append([]SizeToken(nil), rows...),
		Edges:   border.NewEdges(len(rows), len(columns)),
	}
}

// ColumnCount returns the number of column tracks.
func (g *GridProps) ColumnCount() int { return len(g.Columns) }

// RowCount returns the number of row tracks.
func (g *GridProps) RowCount() int { return len(g.Rows) }

// Outer returns the perimeter view of the grid's edges.
func (g *GridProps) Outer() border.Outer {
	return border.OuterOf(g.Edges.H, g.Edges.V)
}

func (g *GridProps) clone() *GridProps {
	out := &GridProps{
		Columns:     append([]SizeToken(nil), g.Columns...),
		Rows:        append([]SizeToken(nil), g.Rows...),
		Edges:       g.Edges.Clone(),
		EdgeDefault: g.EdgeDefault,
		GapX:        append([]string(nil), g.GapX...),
		GapY:        append([]string(nil), g.GapY...),
	}
	if g.Corners != nil {
		c := *g.Corners
		out.Corners = &c
	}
	return out
}

// CellProps is the state of a cell node.
type CellProps struct {
	SpanX int
	SpanY int
	Skip  bool
}

// ContentProps is the opaque payload of a content root. The core never
// interprets it; content-type plugins do.
type ContentProps struct {
	Type  string
	Text  string
	Attrs map[string]string
}

func (c *ContentProps) clone() *ContentProps {
	out := &ContentProps{Type: c.Type, Text: c.Text}
	if c.Attrs != nil {
		out.Attrs = make(map[string]string, len(c.Attrs))
		for k, v := range c.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Node is one element of the tree.
type Node struct {
	ID       ID
	Kind     Kind
	Parent   ID
	Children []ID

	Grid    *GridProps
	Cell    *CellProps
	Content *ContentProps
}

func (n *Node) clone() *Node {
	out := &Node{
		ID:       n.ID,
		Kind:     n.Kind,
		Parent:   n.Parent,
		Children: append([]ID(nil), n.Children...),
	}
	if n.Grid != nil {
		out.Grid = n.Grid.clone()
	}
	if n.Cell != nil {
		c := *n.Cell
		out.Cell = &c
	}
	if n.Content != nil {
		out.Content = n.Content.clone()
	}
	return out
}
