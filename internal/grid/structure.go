package grid

import (
	"fmt"

	"bloomgrid/api/internal/node"
)

// AddRow appends a row, or prepends it when atEnd is false. It returns the
// index of the new row.
func (e *Editor) AddRow(grid node.ID, atEnd bool) (int, error) {
	index := 0
	if atEnd {
		rows, _, err := e.Counts(grid)
		if err != nil {
			return 0, err
		}
		index = rows
	}
	return index, e.AddRowAt(grid, index)
}

// AddColumn appends a column, or prepends it when atEnd is false. It returns
// the index of the new column.
func (e *Editor) AddColumn(grid node.ID, atEnd bool) (int, error) {
	index := 0
	if atEnd {
		_, cols, err := e.Counts(grid)
		if err != nil {
			return 0, err
		}
		index = cols
	}
	return index, e.AddColumnAt(grid, index)
}

// AddRowAt inserts a hug row at index (0..rows). Spans crossing the new
// row grow to include it.
func (e *Editor) AddRowAt(grid node.ID, index int) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	p := g.Grid
	rows, cols := p.RowCount(), p.ColumnCount()
	if index < 0 || index > rows {
		return fmt.Errorf("%w: row %d, grid has %d rows", ErrOutOfBounds, index, rows)
	}
	if err := checkCount(g); err != nil {
		return err
	}
	cells, err := e.makeCells(cols)
	if err != nil {
		return err
	}

	e.eachAnchor(g, func(r, _ int, c *node.CellProps) {
		if r < index && index < r+c.SpanY {
			c.SpanY++
		}
	})
	for i, c := range cells {
		if err := e.tree.InsertAt(grid, index*cols+i, c); err != nil {
			return err
		}
	}
	p.Edges.InsertRow(index, rows, cols)
	p.Rows = insertToken(p.Rows, index, node.Hug)
	p.GapY = insertGap(p.GapY, index)
	e.normalize(g)
	return nil
}

// AddColumnAt inserts a hug column at index (0..columns), one new cell per
// row. Spans crossing the new column grow to include it.
func (e *Editor) AddColumnAt(grid node.ID, index int) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	p := g.Grid
	rows, cols := p.RowCount(), p.ColumnCount()
	if index < 0 || index > cols {
		return fmt.Errorf("%w: column %d, grid has %d columns", ErrOutOfBounds, index, cols)
	}
	if err := checkCount(g); err != nil {
		return err
	}
	cells, err := e.makeCells(rows)
	if err != nil {
		return err
	}

	e.eachAnchor(g, func(_, c int, props *node.CellProps) {
		if c < index && index < c+props.SpanX {
			props.SpanX++
		}
	})
	for r, c := range cells {
		if err := e.tree.InsertAt(grid, r*(cols+1)+index, c); err != nil {
			return err
		}
	}
	p.Edges.InsertColumn(index, rows, cols)
	p.Columns = insertToken(p.Columns, index, node.Hug)
	p.GapX = insertGap(p.GapX, index)
	e.normalize(g)
	return nil
}

// RemoveLastRow removes the bottom row.
func (e *Editor) RemoveLastRow(grid node.ID) error {
	rows, _, err := e.Counts(grid)
	if err != nil {
		return err
	}
	return e.RemoveRowAt(grid, rows-1)
}

// RemoveLastColumn removes the rightmost column.
func (e *Editor) RemoveLastColumn(grid node.ID) error {
	_, cols, err := e.Counts(grid)
	if err != nil {
		return err
	}
	return e.RemoveColumnAt(grid, cols-1)
}

// RemoveRowAt deletes row index. Spans crossing the row shrink by one; an
// anchor that starts on the row and spans further moves down into the first
// row it covers, keeping its content.
func (e *Editor) RemoveRowAt(grid node.ID, index int) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	p := g.Grid
	rows, cols := p.RowCount(), p.ColumnCount()
	if err := checkCount(g); err != nil {
		return err
	}
	if rows <= 1 {
		return fmt.Errorf("%w: grid %d has one row", ErrLastTrack, grid)
	}
	if index < 0 || index >= rows {
		return fmt.Errorf("%w: row %d, grid has %d rows", ErrOutOfBounds, index, rows)
	}

	for i := 0; i < rows*cols; i++ {
		r, c := i/cols, i%cols
		props := e.cellProps(g.Children[i])
		if props.Skip {
			continue
		}
		switch {
		case r < index && index < r+props.SpanY:
			props.SpanY--
		case r == index && props.SpanY > 1:
			below := (r+1)*cols + c
			g.Children[i], g.Children[below] = g.Children[below], g.Children[i]
			props.SpanY--
		}
	}

	doomed := append([]node.ID(nil), g.Children[index*cols:(index+1)*cols]...)
	for _, id := range doomed {
		if err := e.tree.Remove(id); err != nil {
			return err
		}
	}
	p.Edges.RemoveRow(index, rows, cols)
	p.Rows = removeToken(p.Rows, index)
	p.GapY = removeGap(p.GapY, index)
	e.normalize(g)
	return nil
}

// RemoveColumnAt deletes column index. Spans crossing the column shrink by
// one; an anchor that starts on the column and spans further moves right into
// the first column it covers, keeping its content.
func (e *Editor) RemoveColumnAt(grid node.ID, index int) error {
	g, err := e.grid(grid)
	if err != nil {
		return err
	}
	p := g.Grid
	rows, cols := p.RowCount(), p.ColumnCount()
	if err := checkCount(g); err != nil {
		return err
	}
	if cols <= 1 {
		return fmt.Errorf("%w: grid %d has one column", ErrLastTrack, grid)
	}
	if index < 0 || index >= cols {
		return fmt.Errorf("%w: column %d, grid has %d columns", ErrOutOfBounds, index, cols)
	}

	for i := 0; i < rows*cols; i++ {
		c := i % cols
		props := e.cellProps(g.Children[i])
		if props.Skip {
			continue
		}
		switch {
		case c < index && index < c+props.SpanX:
			props.SpanX--
		case c == index && props.SpanX > 1:
			g.Children[i], g.Children[i+1] = g.Children[i+1], g.Children[i]
			props.SpanX--
		}
	}

	doomed := make([]node.ID, 0, rows)
	for r := 0; r < rows; r++ {
		doomed = append(doomed, g.Children[r*cols+index])
	}
	for _, id := range doomed {
		if err := e.tree.Remove(id); err != nil {
			return err
		}
	}
	p.Edges.RemoveColumn(index, rows, cols)
	p.Columns = removeToken(p.Columns, index)
	p.GapX = removeGap(p.GapX, index)
	e.normalize(g)
	return nil
}

// eachAnchor visits every uncovered cell with its logical position.
func (e *Editor) eachAnchor(g *node.Node, fn func(row, column int, c *node.CellProps)) {
	cols := g.Grid.ColumnCount()
	for i, id := range g.Children {
		props := e.cellProps(id)
		if props.Skip {
			continue
		}
		fn(i/cols, i%cols, props)
	}
}

func insertToken(tokens []node.SizeToken, at int, t node.SizeToken) []node.SizeToken {
	tokens = append(tokens, "")
	copy(tokens[at+1:], tokens[at:])
	tokens[at] = t
	return tokens
}

func removeToken(tokens []node.SizeToken, at int) []node.SizeToken {
	return append(tokens[:at], tokens[at+1:]...)
}

// insertGap adds a boundary for a track inserted at position at. Empty and
// single-token lists apply to every boundary and stay as they are; per-boundary
// lists repeat the neighbouring gap.
func insertGap(gaps []string, at int) []string {
	if len(gaps) <= 1 {
		return gaps
	}
	b := at
	if b > len(gaps) {
		b = len(gaps)
	}
	neighbor := b
	if neighbor >= len(gaps) {
		neighbor = len(gaps) - 1
	}
	value := gaps[neighbor]
	gaps = append(gaps, "")
	copy(gaps[b+1:], gaps[b:])
	gaps[b] = value
	return gaps
}

func removeGap(gaps []string, at int) []string {
	if len(gaps) <= 1 {
		return gaps
	}
	b := at
	if b >= len(gaps) {
		b = len(gaps) - 1
	}
	return append(gaps[:b], gaps[b+1:]...)
}
