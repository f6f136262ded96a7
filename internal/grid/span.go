package grid

import (
	"fmt"

	"bloomgrid/api/internal/node"
)

// SetCellSpan makes cell cover spanX columns and spanY rows. The grid is left
// untouched when the span is invalid or would extend past the grid. Anchors
// whose rectangles intersect the new one are reset to 1x1 first.
func (e *Editor) SetCellSpan(cell node.ID, spanX, spanY int) error {
	c, err := e.cell(cell)
	if err != nil {
		return err
	}
	if spanX < 1 || spanY < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSpan, spanX, spanY)
	}
	g, err := e.grid(c.Parent)
	if err != nil {
		return fmt.Errorf("%w: cell %d", ErrNotChild, cell)
	}
	if err := checkCount(g); err != nil {
		return err
	}
	if c.Cell.Skip {
		return fmt.Errorf("%w: cell %d is covered by another span", ErrInvalidSpan, cell)
	}
	row, col, err := e.RowAndColumn(g.ID, cell)
	if err != nil {
		return err
	}
	rows, cols := g.Grid.RowCount(), g.Grid.ColumnCount()
	if row+spanY > rows || col+spanX > cols {
		return fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d grid", ErrSpanOutOfBounds, spanX, spanY, row, col, rows, cols)
	}

	target := rect{row: row, col: col, rows: spanY, cols: spanX}
	e.eachAnchor(g, func(r, cc int, props *node.CellProps) {
		if props == c.Cell {
			return
		}
		if target.intersects(rect{row: r, col: cc, rows: props.SpanY, cols: props.SpanX}) {
			props.SpanX, props.SpanY = 1, 1
		}
	})
	c.Cell.SpanX, c.Cell.SpanY = spanX, spanY
	e.normalize(g)
	return nil
}

type rect struct {
	row, col   int
	rows, cols int
}

func (a rect) intersects(b rect) bool {
	return a.row < b.row+b.rows && b.row < a.row+a.rows &&
		a.col < b.col+b.cols && b.col < a.col+a.cols
}

// normalize recomputes skip flags from the anchors' spans in row-major order.
// Spans are clamped to the grid, covered cells are reset to 1x1 and an anchor
// whose rectangle would overlap an earlier one collapses to 1x1.
func (e *Editor) normalize(g *node.Node) {
	rows, cols := g.Grid.RowCount(), g.Grid.ColumnCount()
	covered := make([]bool, len(g.Children))
	for i, id := range g.Children {
		props := e.cellProps(id)
		if covered[i] {
			props.Skip = true
			props.SpanX, props.SpanY = 1, 1
			continue
		}
		props.Skip = false
		r, c := i/cols, i%cols
		props.SpanX = clampSpan(props.SpanX, cols-c)
		props.SpanY = clampSpan(props.SpanY, rows-r)
		if overlapsCovered(covered, cols, r, c, props.SpanX, props.SpanY) {
			props.SpanX, props.SpanY = 1, 1
		}
		for dr := 0; dr < props.SpanY; dr++ {
			for dc := 0; dc < props.SpanX; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				if j := (r+dr)*cols + c + dc; j < len(covered) {
					covered[j] = true
				}
			}
		}
	}
}

// Normalize restores span coverage on grid and every grid nested in it.
// Decoded documents go through it before use, since their span and skip
// attributes are taken as written.
func (e *Editor) Normalize(grid node.ID) error {
	if _, err := e.grid(grid); err != nil {
		return err
	}
	var err error
	e.tree.Walk(grid, func(n *node.Node) bool {
		if err != nil {
			return false
		}
		if n.Kind == node.KindGrid {
			if err = checkCount(n); err == nil {
				e.normalize(n)
			}
		}
		return true
	})
	return err
}

func overlapsCovered(covered []bool, cols, r, c, sx, sy int) bool {
	for dr := 0; dr < sy; dr++ {
		for dc := 0; dc < sx; dc++ {
			if j := (r+dr)*cols + c + dc; j < len(covered) && covered[j] {
				return true
			}
		}
	}
	return false
}

func clampSpan(span, room int) int {
	if span < 1 {
		return 1
	}
	if span > room {
		return room
	}
	return span
}

// CheckInvariants verifies track lists, cell count, edge matrix shapes and
// span coverage of grid.
func (e *Editor) CheckInvariants(grid node.ID) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	rows, cols := g.Grid.RowCount(), g.Grid.ColumnCount()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("grid %d has %d rows and %d columns", grid, rows, cols)
	}
	if err := checkCount(g); err != nil {
		return err
	}
	if err := g.Grid.Edges.Check(rows, cols); err != nil {
		return fmt.Errorf("grid %d: %w", grid, err)
	}

	owner := make([]int, len(g.Children))
	for i := range owner {
		owner[i] = -1
	}
	for i, id := range g.Children {
		n, ok := e.tree.Get(id)
		if !ok || n.Kind != node.KindCell {
			return fmt.Errorf("%w: grid %d child %d", ErrNotCell, grid, i)
		}
		if n.Parent != grid {
			return fmt.Errorf("cell %d has parent %d, want %d", id, n.Parent, grid)
		}
		if len(n.Children) != 1 {
			return fmt.Errorf("cell %d has %d content roots, want 1", id, len(n.Children))
		}
		props := n.Cell
		if props.SpanX < 1 || props.SpanY < 1 {
			return fmt.Errorf("%w: cell %d has span %dx%d", ErrInvalidSpan, id, props.SpanX, props.SpanY)
		}
		covered := owner[i] >= 0
		if props.Skip != covered {
			return fmt.Errorf("cell %d skip=%t but covered=%t", id, props.Skip, covered)
		}
		if covered {
			if props.SpanX != 1 || props.SpanY != 1 {
				return fmt.Errorf("covered cell %d has span %dx%d", id, props.SpanX, props.SpanY)
			}
			continue
		}
		r, c := i/cols, i%cols
		if r+props.SpanY > rows || c+props.SpanX > cols {
			return fmt.Errorf("%w: cell %d at (%d,%d) spans %dx%d", ErrSpanOutOfBounds, id, r, c, props.SpanX, props.SpanY)
		}
		for dr := 0; dr < props.SpanY; dr++ {
			for dc := 0; dc < props.SpanX; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				j := (r+dr)*cols + c + dc
				if owner[j] >= 0 {
					return fmt.Errorf("cell %d is covered by two spans", g.Children[j])
				}
				owner[j] = i
			}
		}
	}
	return nil
}
