package bloom

import (
	"fmt"

	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/grid"
	"bloomgrid/api/internal/node"
	"bloomgrid/api/internal/schedule"
)

// Grid is a handle on one grid of a workspace. Every mutation is recorded in
// history and followed by a render request for its top-level grid.
type Grid struct {
	ws *Workspace
	id node.ID
}

func (g *Grid) ID() node.ID { return g.id }

// mutate runs perform as one history entry. A nil undo restores the
// snapshot taken before perform ran.
func (g *Grid) mutate(label string, perform func(e *grid.Editor) error, undo func(e *grid.Editor) error, opts ...schedule.RequestOption) error {
	w := g.ws
	var undoFn func(node.Snapshot) error
	if undo != nil {
		undoFn = func(node.Snapshot) error { return undo(w.editor) }
	}
	var (
		pushed bool
		err    error
		top    node.ID
		topErr error
	)
	func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		pushed, err = w.history.AddEntry(g.id, label, func() error { return perform(w.editor) }, undoFn)
		top, topErr = w.tree.TopLevelGrid(g.id)
	}()

	if err != nil {
		return err
	}
	if !pushed {
		return fmt.Errorf("%w: %s", ErrSkipped, label)
	}
	if topErr == nil {
		w.scheduler.Request(top, label, opts...)
	}
	return nil
}

// read runs fn against the editor with the workspace locked.
func (g *Grid) read(fn func(e *grid.Editor) error) error {
	g.ws.mu.Lock()
	defer g.ws.mu.Unlock()
	return fn(g.ws.editor)
}

func (g *Grid) Counts() (rows, columns int, err error) {
	err = g.read(func(e *grid.Editor) error {
		rows, columns, err = e.Counts(g.id)
		return err
	})
	return rows, columns, err
}

func (g *Grid) Cells() (cells []node.ID, err error) {
	err = g.read(func(e *grid.Editor) error {
		cells, err = e.Cells(g.id)
		return err
	})
	return cells, err
}

func (g *Grid) Cell(row, column int) (cell node.ID, err error) {
	err = g.read(func(e *grid.Editor) error {
		cell, err = e.Cell(g.id, row, column)
		return err
	})
	return cell, err
}

func (g *Grid) RowAndColumn(cell node.ID) (row, column int, err error) {
	err = g.read(func(e *grid.Editor) error {
		row, column, err = e.RowAndColumn(g.id, cell)
		return err
	})
	return row, column, err
}

// CheckInvariants validates the grid's structure.
func (g *Grid) CheckInvariants() error {
	return g.read(func(e *grid.Editor) error { return e.CheckInvariants(g.id) })
}

// AddRow inserts a row at the start or end and returns its index.
func (g *Grid) AddRow(atEnd bool) (int, error) {
	index := 0
	err := g.mutate("add row",
		func(e *grid.Editor) error {
			var err error
			index, err = e.AddRow(g.id, atEnd)
			return err
		},
		func(e *grid.Editor) error { return e.RemoveRowAt(g.id, index) })
	return index, err
}

// AddColumn inserts a column at the start or end and returns its index.
func (g *Grid) AddColumn(atEnd bool) (int, error) {
	index := 0
	err := g.mutate("add column",
		func(e *grid.Editor) error {
			var err error
			index, err = e.AddColumn(g.id, atEnd)
			return err
		},
		func(e *grid.Editor) error { return e.RemoveColumnAt(g.id, index) })
	return index, err
}

func (g *Grid) InsertRow(index int) error {
	return g.mutate("insert row",
		func(e *grid.Editor) error { return e.AddRowAt(g.id, index) },
		func(e *grid.Editor) error { return e.RemoveRowAt(g.id, index) })
}

func (g *Grid) InsertColumn(index int) error {
	return g.mutate("insert column",
		func(e *grid.Editor) error { return e.AddColumnAt(g.id, index) },
		func(e *grid.Editor) error { return e.RemoveColumnAt(g.id, index) })
}

func (g *Grid) RemoveRow(index int) error {
	return g.mutate("remove row", func(e *grid.Editor) error { return e.RemoveRowAt(g.id, index) }, nil)
}

func (g *Grid) RemoveColumn(index int) error {
	return g.mutate("remove column", func(e *grid.Editor) error { return e.RemoveColumnAt(g.id, index) }, nil)
}

func (g *Grid) RemoveLastRow() error {
	return g.mutate("remove row", func(e *grid.Editor) error { return e.RemoveLastRow(g.id) }, nil)
}

func (g *Grid) RemoveLastColumn() error {
	return g.mutate("remove column", func(e *grid.Editor) error { return e.RemoveLastColumn(g.id) }, nil)
}

// SetColumnWidth resizes column i. Resizes render immediately so a drag
// tracks the pointer.
func (g *Grid) SetColumnWidth(i int, value string) error {
	return g.mutate("resize column", func(e *grid.Editor) error { return e.SetColumnWidth(g.id, i, value) }, nil, schedule.Immediate())
}

func (g *Grid) SetRowHeight(i int, value string) error {
	return g.mutate("resize row", func(e *grid.Editor) error { return e.SetRowHeight(g.id, i, value) }, nil, schedule.Immediate())
}

func (g *Grid) SetCellSpan(cell node.ID, spanX, spanY int) error {
	return g.mutate("span", func(e *grid.Editor) error {
		if _, _, err := e.RowAndColumn(g.id, cell); err != nil {
			return err
		}
		return e.SetCellSpan(cell, spanX, spanY)
	}, nil)
}

func (g *Grid) SetCellBorder(cell node.ID, side border.Side, spec border.Spec) error {
	return g.mutate("border "+side.String(), func(e *grid.Editor) error { return e.SetCellBorder(g.id, cell, side, spec) }, nil)
}

func (g *Grid) SetOuterBorder(side border.Side, index int, spec border.Spec) error {
	return g.mutate("outer border "+side.String(), func(e *grid.Editor) error { return e.SetOuterBorder(g.id, side, index, spec) }, nil)
}

func (g *Grid) SetOuterSide(side border.Side, spec border.Spec) error {
	return g.mutate("outer border "+side.String(), func(e *grid.Editor) error { return e.SetOuterSide(g.id, side, spec) }, nil)
}

func (g *Grid) SetEdgeDefault(spec border.Spec) error {
	return g.mutate("border default", func(e *grid.Editor) error { return e.SetEdgeDefault(g.id, spec) }, nil)
}

func (g *Grid) SetGapX(gaps []string) error {
	return g.mutate("gap x", func(e *grid.Editor) error { return e.SetGapX(g.id, gaps) }, nil)
}

func (g *Grid) SetGapY(gaps []string) error {
	return g.mutate("gap y", func(e *grid.Editor) error { return e.SetGapY(g.id, gaps) }, nil)
}

func (g *Grid) SetCorners(radius float64) error {
	return g.mutate("corners", func(e *grid.Editor) error { return e.SetCorners(g.id, radius) }, nil)
}

// NestGrid replaces the content of cell with a new grid and returns it.
func (g *Grid) NestGrid(cell node.ID, columns, rows int) (*Grid, error) {
	nested := node.NoID
	err := g.mutate("nest grid", func(e *grid.Editor) error {
		if _, _, err := e.RowAndColumn(g.id, cell); err != nil {
			return err
		}
		var err error
		nested, err = e.NestGrid(cell, columns, rows)
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return &Grid{ws: g.ws, id: nested}, nil
}

// Undo reverts the latest history entry.
func (g *Grid) Undo() bool { return g.ws.Undo(g.id) }
