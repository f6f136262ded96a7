package grid

import (
	"fmt"
	"strings"

	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/node"
)

// SetColumnWidth replaces the token of column i.
func (e *Editor) SetColumnWidth(grid node.ID, i int, value string) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(g.Grid.Columns) {
		return fmt.Errorf("%w: column %d of %d", ErrOutOfBounds, i, len(g.Grid.Columns))
	}
	token, err := node.ParseSizeToken(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	g.Grid.Columns[i] = token
	return nil
}

// SetRowHeight replaces the token of row i.
func (e *Editor) SetRowHeight(grid node.ID, i int, value string) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(g.Grid.Rows) {
		return fmt.Errorf("%w: row %d of %d", ErrOutOfBounds, i, len(g.Grid.Rows))
	}
	token, err := node.ParseSizeToken(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	g.Grid.Rows[i] = token
	return nil
}

// SetCellBorder writes spec to one logical side of cell. For a spanning cell
// the write covers every boundary segment along that side.
func (e *Editor) SetCellBorder(grid, cell node.ID, side border.Side, spec border.Spec) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	row, col, err := e.RowAndColumn(grid, cell)
	if err != nil {
		return err
	}
	props := e.cellProps(cell)
	rows, cols := g.Grid.RowCount(), g.Grid.ColumnCount()
	if err := g.Grid.Edges.Check(rows, cols); err != nil {
		return err
	}
	g.Grid.Edges.SetCellSide(row, col, props.SpanX, props.SpanY, rows, cols, side, spec)
	return nil
}

// SetOuterBorder writes one perimeter entry: index is a column for top and
// bottom, a row for left and right.
func (e *Editor) SetOuterBorder(grid node.ID, side border.Side, index int, spec border.Spec) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	n := g.Grid.ColumnCount()
	if side == border.Left || side == border.Right {
		n = g.Grid.RowCount()
	}
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %s perimeter index %d of %d", ErrOutOfBounds, side, index, n)
	}
	g.Grid.Edges.SetOuter(side, index, spec)
	return nil
}

// SetOuterSide writes spec to every perimeter entry of one side.
func (e *Editor) SetOuterSide(grid node.ID, side border.Side, spec border.Spec) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	n := g.Grid.ColumnCount()
	if side == border.Left || side == border.Right {
		n = g.Grid.RowCount()
	}
	for i := 0; i < n; i++ {
		g.Grid.Edges.SetOuter(side, i, spec)
	}
	return nil
}

// SetEdgeDefault sets the zero-gap fallback. Unset removes it.
func (e *Editor) SetEdgeDefault(grid node.ID, spec border.Spec) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	g.Grid.EdgeDefault = spec
	return nil
}

// SetGapX sets the column gaps: none, one token for every boundary, or one
// token per boundary.
func (e *Editor) SetGapX(grid node.ID, gaps []string) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	clean, err := checkGaps(gaps, g.Grid.ColumnCount()-1)
	if err != nil {
		return err
	}
	g.Grid.GapX = clean
	return nil
}

// SetGapY sets the row gaps.
func (e *Editor) SetGapY(grid node.ID, gaps []string) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	clean, err := checkGaps(gaps, g.Grid.RowCount()-1)
	if err != nil {
		return err
	}
	g.Grid.GapY = clean
	return nil
}

func checkGaps(gaps []string, boundaries int) ([]string, error) {
	if len(gaps) > 1 && len(gaps) != boundaries {
		return nil, fmt.Errorf("%w: %d gap tokens for %d boundaries", ErrInvalidValue, len(gaps), boundaries)
	}
	out := make([]string, 0, len(gaps))
	for _, gap := range gaps {
		gap = strings.TrimSpace(gap)
		if gap == "" || strings.ContainsAny(gap, ",;{}") {
			return nil, fmt.Errorf("%w: gap token %q", ErrInvalidValue, gap)
		}
		out = append(out, gap)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// SetCorners sets the grid corner radius; zero removes the rounding.
func (e *Editor) SetCorners(grid node.ID, radius float64) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	if radius < 0 {
		return fmt.Errorf("%w: radius %g", ErrInvalidValue, radius)
	}
	if radius == 0 {
		g.Grid.Corners = nil
		return nil
	}
	g.Grid.Corners = &node.Corners{Radius: radius}
	return nil
}
