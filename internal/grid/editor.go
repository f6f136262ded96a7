// Package grid is the structural editor: it grows and shrinks grids, manages
// cell spans and keeps the cell count and span coverage invariants intact
// after every edit.
package grid

import (
	"errors"
	"fmt"

	"bloomgrid/api/internal/node"
)

var (
	ErrNotGrid         = errors.New("node is not a grid")
	ErrNotCell         = errors.New("node is not a cell")
	ErrNotChild        = errors.New("cell is not a direct child of the grid")
	ErrOutOfBounds     = errors.New("index out of bounds")
	ErrLastTrack       = errors.New("cannot remove the only remaining track")
	ErrSpanOutOfBounds = errors.New("span extends past the grid")
	ErrInvalidSpan     = errors.New("invalid span")
	ErrInvalidValue    = errors.New("invalid value")
)

// CellFactory produces new detached cells. Each cell must carry exactly one
// content root.
type CellFactory interface {
	NewCell(tree *node.Tree) (node.ID, error)
}

// CellFactoryFunc adapts a function to CellFactory.
type CellFactoryFunc func(tree *node.Tree) (node.ID, error)

func (f CellFactoryFunc) NewCell(tree *node.Tree) (node.ID, error) { return f(tree) }

// DefaultCellFactory makes a 1x1 cell holding one empty text content root.
var DefaultCellFactory CellFactory = CellFactoryFunc(func(tree *node.Tree) (node.ID, error) {
	cell := tree.NewCell()
	if err := tree.Append(cell, tree.NewContent("text", "")); err != nil {
		return node.NoID, err
	}
	return cell, nil
})

type Editor struct {
	tree    *node.Tree
	factory CellFactory
}

// NewEditor returns an editor over tree. A nil factory selects
// DefaultCellFactory.
func NewEditor(tree *node.Tree, factory CellFactory) *Editor {
	if factory == nil {
		factory = DefaultCellFactory
	}
	return &Editor{tree: tree, factory: factory}
}

func (e *Editor) Tree() *node.Tree { return e.tree }

// NewGrid builds a detached grid of hug tracks filled with factory cells.
func (e *Editor) NewGrid(columns, rows int) (node.ID, error) {
	if columns < 1 || rows < 1 {
		return node.NoID, fmt.Errorf("%w: grid of %dx%d", ErrInvalidValue, columns, rows)
	}
	grid := e.tree.NewGrid(hugTokens(columns), hugTokens(rows))
	cells, err := e.makeCells(columns * rows)
	if err != nil {
		_ = e.tree.Remove(grid)
		return node.NoID, err
	}
	for _, c := range cells {
		if err := e.tree.Append(grid, c); err != nil {
			_ = e.tree.Remove(grid)
			return node.NoID, err
		}
	}
	return grid, nil
}

// NestGrid replaces the content root of cell with a new columns x rows grid
// and returns the nested grid.
func (e *Editor) NestGrid(cell node.ID, columns, rows int) (node.ID, error) {
	if _, err := e.cell(cell); err != nil {
		return node.NoID, err
	}
	nested, err := e.NewGrid(columns, rows)
	if err != nil {
		return node.NoID, err
	}
	if old, ok := e.tree.ContentRoot(cell); ok {
		if err := e.tree.Remove(old); err != nil {
			return node.NoID, err
		}
	}
	if err := e.tree.Append(cell, nested); err != nil {
		return node.NoID, err
	}
	return nested, nil
}

func (e *Editor) makeCells(n int) ([]node.ID, error) {
	cells := make([]node.ID, 0, n)
	for i := 0; i < n; i++ {
		id, err := e.factory.NewCell(e.tree)
		if err == nil {
			if err = e.checkFactoryCell(id); err != nil {
				if n, ok := e.tree.Get(id); ok && n.Parent == node.NoID {
					_ = e.tree.Remove(id)
				}
			}
		}
		if err != nil {
			for _, c := range cells {
				_ = e.tree.Remove(c)
			}
			return nil, fmt.Errorf("create cell: %w", err)
		}
		cells = append(cells, id)
	}
	return cells, nil
}

func (e *Editor) checkFactoryCell(id node.ID) error {
	n, ok := e.tree.Get(id)
	switch {
	case !ok || n.Kind != node.KindCell:
		return fmt.Errorf("%w: factory returned %d", ErrNotCell, id)
	case n.Parent != node.NoID:
		return fmt.Errorf("factory returned attached cell %d", id)
	case len(n.Children) != 1:
		return fmt.Errorf("factory cell %d has %d content roots, want 1", id, len(n.Children))
	}
	return nil
}

func (e *Editor) grid(id node.ID) (*node.Node, error) {
	n, ok := e.tree.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", node.ErrNotFound, id)
	}
	if n.Kind != node.KindGrid {
		return nil, fmt.Errorf("%w: %d is a %s", ErrNotGrid, id, n.Kind)
	}
	return n, nil
}

func (e *Editor) cell(id node.ID) (*node.Node, error) {
	n, ok := e.tree.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", node.ErrNotFound, id)
	}
	if n.Kind != node.KindCell {
		return nil, fmt.Errorf("%w: %d is a %s", ErrNotCell, id, n.Kind)
	}
	return n, nil
}

// Counts returns the number of rows and columns of grid.
func (e *Editor) Counts(grid node.ID) (rows, columns int, err error) {
	g, err := e.grid(grid)
	if err != nil {
		return 0, 0, err
	}
	return g.Grid.RowCount(), g.Grid.ColumnCount(), nil
}

// Cells returns the grid's cells in row-major order.
func (e *Editor) Cells(grid node.ID) ([]node.ID, error) {
	g, err := e.grid(grid)
	if err != nil {
		return nil, err
	}
	return append([]node.ID(nil), g.Children...), nil
}

// RowAndColumn returns the logical position of cell inside grid.
func (e *Editor) RowAndColumn(grid, cell node.ID) (row, column int, err error) {
	g, err := e.grid(grid)
	if err != nil {
		return 0, 0, err
	}
	if _, err := e.cell(cell); err != nil {
		return 0, 0, err
	}
	index, ok := e.tree.IndexOf(grid, cell)
	if !ok {
		return 0, 0, fmt.Errorf("%w: cell %d, grid %d", ErrNotChild, cell, grid)
	}
	cols := g.Grid.ColumnCount()
	return index / cols, index % cols, nil
}

// Cell returns the cell at (row, column).
func (e *Editor) Cell(grid node.ID, row, column int) (node.ID, error) {
	g, err := e.grid(grid)
	if err != nil {
		return node.NoID, err
	}
	rows, cols := g.Grid.RowCount(), g.Grid.ColumnCount()
	if row < 0 || row >= rows || column < 0 || column >= cols {
		return node.NoID, fmt.Errorf("%w: (%d,%d) in %dx%d grid", ErrOutOfBounds, row, column, rows, cols)
	}
	index := row*cols + column
	if index >= len(g.Children) {
		return node.NoID, fmt.Errorf("%w: grid %d has %d cells", ErrOutOfBounds, grid, len(g.Children))
	}
	return g.Children[index], nil
}

// ColumnWidth returns the authored token of column i.
func (e *Editor) ColumnWidth(grid node.ID, i int) (node.SizeToken, error) {
	g, err := e.grid(grid)
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(g.Grid.Columns) {
		return "", fmt.Errorf("%w: column %d of %d", ErrOutOfBounds, i, len(g.Grid.Columns))
	}
	return g.Grid.Columns[i], nil
}

// RowHeight returns the authored token of row i.
func (e *Editor) RowHeight(grid node.ID, i int) (node.SizeToken, error) {
	g, err := e.grid(grid)
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(g.Grid.Rows) {
		return "", fmt.Errorf("%w: row %d of %d", ErrOutOfBounds, i, len(g.Grid.Rows))
	}
	return g.Grid.Rows[i], nil
}

// cellProps returns the props of a grid child. Non-cell children read as an
// uncovered 1x1 cell; CheckInvariants reports them.
func (e *Editor) cellProps(id node.ID) *node.CellProps {
	if n, ok := e.tree.Get(id); ok && n.Cell != nil {
		return n.Cell
	}
	return &node.CellProps{SpanX: 1, SpanY: 1}
}

func checkCount(g *node.Node) error {
	want := g.Grid.RowCount() * g.Grid.ColumnCount()
	if len(g.Children) != want {
		return fmt.Errorf("grid %d has %d cells, want %d", g.ID, len(g.Children), want)
	}
	return nil
}

func hugTokens(n int) []node.SizeToken {
	out := make([]node.SizeToken, n)
	for i := range out {
		out[i] = node.Hug
	}
	return out
}
