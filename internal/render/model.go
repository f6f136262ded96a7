// Package render resolves a grid's edge model into one border per cell side
// and writes the result onto a visual surface.
package render

import (
	"errors"
	"fmt"

	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/node"
)

var ErrNotGrid = errors.New("render target is not a grid")

// Sides holds the resolved border of each side. Unset means no border.
type Sides struct {
	Top    border.Spec `json:"top"`
	Right  border.Spec `json:"right"`
	Bottom border.Spec `json:"bottom"`
	Left   border.Spec `json:"left"`
}

func (s *Sides) set(side border.Side, spec border.Spec) {
	switch side {
	case border.Top:
		s.Top = spec
	case border.Right:
		s.Right = spec
	case border.Bottom:
		s.Bottom = spec
	default:
		s.Left = spec
	}
}

func (s Sides) visible() bool {
	return s.Top.Visible() || s.Right.Visible() || s.Bottom.Visible() || s.Left.Visible()
}

// Radii holds per-corner radii in pixels.
type Radii struct {
	TopLeft     float64 `json:"topLeft"`
	TopRight    float64 `json:"topRight"`
	BottomRight float64 `json:"bottomRight"`
	BottomLeft  float64 `json:"bottomLeft"`
}

type CellModel struct {
	ID      node.ID `json:"id"`
	Row     int     `json:"row"`
	Column  int     `json:"column"`
	SpanX   int     `json:"spanX"`
	SpanY   int     `json:"spanY"`
	Skip    bool    `json:"skip"`
	GridRow string  `json:"gridRow"`
	GridCol string  `json:"gridColumn"`
	Borders Sides   `json:"borders"`
	Radius  Radii   `json:"radius"`
}

// Model is the resolved description of one grid for one render pass.
type Model struct {
	Grid           node.ID     `json:"grid"`
	Columns        []string    `json:"columns"`
	Rows           []string    `json:"rows"`
	ColumnTemplate string      `json:"columnTemplate"`
	RowTemplate    string      `json:"rowTemplate"`
	Cells          []CellModel `json:"cells"`
	SuppressOuter  bool        `json:"suppressOuter"`
	Suppressed     []node.ID   `json:"suppressed,omitempty"`
}

// Cell returns the model of the cell at (row, column) in row-major order.
func (m *Model) Cell(row, column int) *CellModel {
	i := row*len(m.Columns) + column
	if row < 0 || column < 0 || column >= len(m.Columns) || i >= len(m.Cells) {
		return nil
	}
	return &m.Cells[i]
}

// Build resolves grid. The outer-stroke suppression of a nested grid is
// derived from the resolved borders of its host cell.
func Build(tree *node.Tree, grid node.ID) (*Model, error) {
	suppress, err := outerSuppressed(tree, grid)
	if err != nil {
		return nil, err
	}
	return build(tree, grid, suppress)
}

func outerSuppressed(tree *node.Tree, grid node.ID) (bool, error) {
	host, ok := tree.HostCell(grid)
	if !ok {
		return false, nil
	}
	h, _ := tree.Get(host)
	if h.Cell.Skip {
		return false, nil
	}
	parent, ok := tree.Get(h.Parent)
	if !ok || parent.Kind != node.KindGrid {
		return false, nil
	}
	pm, err := Build(tree, parent.ID)
	if err != nil {
		return false, fmt.Errorf("resolve host grid %d: %w", parent.ID, err)
	}
	for _, c := range pm.Cells {
		if c.ID == host {
			return c.Borders.visible(), nil
		}
	}
	return false, nil
}

func build(tree *node.Tree, grid node.ID, suppress bool) (*Model, error) {
	g, ok := tree.Get(grid)
	if !ok {
		return nil, fmt.Errorf("%w: %d", node.ErrNotFound, grid)
	}
	if g.Kind != node.KindGrid {
		return nil, fmt.Errorf("%w: %d is a %s", ErrNotGrid, grid, g.Kind)
	}
	p := g.Grid
	rows, cols := p.RowCount(), p.ColumnCount()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("grid %d has no tracks", grid)
	}
	if len(g.Children) != rows*cols {
		return nil, fmt.Errorf("grid %d has %d cells, want %d", grid, len(g.Children), rows*cols)
	}
	if err := p.Edges.Check(rows, cols); err != nil {
		return nil, fmt.Errorf("grid %d: %w", grid, err)
	}

	colLayout := buildLayout(p.Columns, p.GapX, ColumnTrack)
	rowLayout := buildLayout(p.Rows, p.GapY, RowTrack)
	m := &Model{
		Grid:           grid,
		Columns:        colLayout.tracks,
		Rows:           rowLayout.tracks,
		ColumnTemplate: colLayout.template(p.GapX),
		RowTemplate:    rowLayout.template(p.GapY),
		Cells:          make([]CellModel, rows*cols),
		SuppressOuter:  suppress,
	}

	owner := make([]int, rows*cols)
	for i, id := range g.Children {
		c, ok := tree.Get(id)
		if !ok || c.Kind != node.KindCell {
			return nil, fmt.Errorf("grid %d child %d is not a cell", grid, i)
		}
		m.Cells[i] = CellModel{ID: id, Row: i / cols, Column: i % cols, SpanX: 1, SpanY: 1, Skip: c.Cell.Skip}
		owner[i] = i
	}
	for i, id := range g.Children {
		c, _ := tree.Get(id)
		if c.Cell.Skip {
			continue
		}
		cm := &m.Cells[i]
		cm.SpanX = min(max(c.Cell.SpanX, 1), cols-cm.Column)
		cm.SpanY = min(max(c.Cell.SpanY, 1), rows-cm.Row)
		for dr := 0; dr < cm.SpanY; dr++ {
			for dc := 0; dc < cm.SpanX; dc++ {
				owner[(cm.Row+dr)*cols+cm.Column+dc] = i
			}
		}
	}

	pos := resolvePositions(p, colLayout, rowLayout)
	lost := pos.settleSpans(m.Cells, rows, cols, colLayout.gaps, rowLayout.gaps)
	for i := range m.Cells {
		cm := &m.Cells[i]
		cm.GridRow = rowLayout.placement(cm.Row, cm.SpanY)
		cm.GridCol = colLayout.placement(cm.Column, cm.SpanX)
		if cm.Skip {
			continue
		}
		cm.Borders = pos.spanSides(cm.Row, cm.Column, cm.SpanX, cm.SpanY)
		for _, side := range sides {
			if lost[i][side] {
				cm.Borders.set(side, border.Unset())
			}
		}
		if suppress {
			if cm.Row == 0 {
				cm.Borders.Top = border.Unset()
			}
			if cm.Row+cm.SpanY == rows {
				cm.Borders.Bottom = border.Unset()
			}
			if cm.Column == 0 {
				cm.Borders.Left = border.Unset()
			}
			if cm.Column+cm.SpanX == cols {
				cm.Borders.Right = border.Unset()
			}
		}
	}

	if p.Corners != nil && p.Corners.Radius > 0 {
		r := p.Corners.Radius
		m.Cells[owner[0]].Radius.TopLeft = r
		m.Cells[owner[cols-1]].Radius.TopRight = r
		m.Cells[owner[(rows-1)*cols]].Radius.BottomLeft = r
		m.Cells[owner[rows*cols-1]].Radius.BottomRight = r
	}

	for _, cm := range m.Cells {
		if cm.Skip || !cm.Borders.visible() {
			continue
		}
		if content, ok := tree.ContentRoot(cm.ID); ok {
			if n, _ := tree.Get(content); n.Kind == node.KindGrid {
				m.Suppressed = append(m.Suppressed, content)
			}
		}
	}
	return m, nil
}
