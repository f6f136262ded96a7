package grid

import (
	"errors"
	"testing"

	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/node"
)

func newEditorGrid(t *testing.T, cols, rows int) (*Editor, node.ID) {
	t.Helper()
	tree := node.NewTree()
	e := NewEditor(tree, nil)
	grid, err := e.NewGrid(cols, rows)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	if err := tree.Append(tree.Root(), grid); err != nil {
		t.Fatalf("attach grid: %v", err)
	}
	return e, grid
}

func mustCell(t *testing.T, e *Editor, grid node.ID, row, col int) node.ID {
	t.Helper()
	id, err := e.Cell(grid, row, col)
	if err != nil {
		t.Fatalf("Cell(%d,%d) error = %v", row, col, err)
	}
	return id
}

func mustInvariants(t *testing.T, e *Editor, grid node.ID) {
	t.Helper()
	if err := e.CheckInvariants(grid); err != nil {
		t.Fatalf("CheckInvariants() error = %v", err)
	}
}

func spanOf(t *testing.T, e *Editor, cell node.ID) (int, int) {
	t.Helper()
	n, ok := e.Tree().Get(cell)
	if !ok {
		t.Fatalf("cell %d missing", cell)
	}
	return n.Cell.SpanX, n.Cell.SpanY
}

func TestAddColumnAppendsHugToken(t *testing.T) {
	e, grid := newEditorGrid(t, 2, 2)
	if err := e.SetColumnWidth(grid, 0, "100px"); err != nil {
		t.Fatal(err)
	}
	if err := e.SetColumnWidth(grid, 1, "200px"); err != nil {
		t.Fatal(err)
	}
	before, _ := e.Cells(grid)

	index, err := e.AddColumn(grid, true)
	if err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if index != 2 {
		t.Fatalf("AddColumn() index = %d, want 2", index)
	}
	attrs, err := e.Tree().Attrs(grid)
	if err != nil {
		t.Fatal(err)
	}
	if got := attrs[node.AttrColumnWidths]; got != "100px,200px,hug" {
		t.Fatalf("%s = %q, want 100px,200px,hug", node.AttrColumnWidths, got)
	}
	after, _ := e.Cells(grid)
	if len(after)-len(before) != 2 {
		t.Fatalf("cell count grew by %d, want 2", len(after)-len(before))
	}
	// existing cells keep their logical positions
	if after[0] != before[0] || after[1] != before[1] || after[3] != before[2] {
		t.Fatalf("cells = %v, before = %v", after, before)
	}
	mustInvariants(t, e, grid)
}

func TestAddRowAtPositions(t *testing.T) {
	e, grid := newEditorGrid(t, 2, 2)
	top := mustCell(t, e, grid, 0, 0)
	bottom := mustCell(t, e, grid, 1, 1)

	if err := e.AddRowAt(grid, 1); err != nil {
		t.Fatalf("AddRowAt() error = %v", err)
	}
	if got := mustCell(t, e, grid, 0, 0); got != top {
		t.Fatalf("cell(0,0) = %d, want %d", got, top)
	}
	if got := mustCell(t, e, grid, 2, 1); got != bottom {
		t.Fatalf("cell(2,1) = %d, want %d", got, bottom)
	}
	if rows, _, _ := e.Counts(grid); rows != 3 {
		t.Fatalf("rows = %d, want 3", rows)
	}
	mustInvariants(t, e, grid)

	if err := e.AddRowAt(grid, 5); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("AddRowAt(5) error = %v, want ErrOutOfBounds", err)
	}
	if err := e.AddColumnAt(grid, -1); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("AddColumnAt(-1) error = %v, want ErrOutOfBounds", err)
	}
}

func TestRemoveMiddleColumnReducesSpan(t *testing.T) {
	e, grid := newEditorGrid(t, 3, 2)
	anchor := mustCell(t, e, grid, 0, 0)
	if err := e.SetCellSpan(anchor, 3, 1); err != nil {
		t.Fatalf("SetCellSpan() error = %v", err)
	}
	mustInvariants(t, e, grid)

	if err := e.RemoveColumnAt(grid, 1); err != nil {
		t.Fatalf("RemoveColumnAt() error = %v", err)
	}
	if _, ok := e.Tree().Get(anchor); !ok {
		t.Fatal("spanning cell was deleted")
	}
	if sx, sy := spanOf(t, e, anchor); sx != 2 || sy != 1 {
		t.Fatalf("span = %dx%d, want 2x1", sx, sy)
	}
	cells, _ := e.Cells(grid)
	if len(cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(cells))
	}
	mustInvariants(t, e, grid)
}

func TestRemoveAnchorColumnMovesAnchor(t *testing.T) {
	e, grid := newEditorGrid(t, 3, 1)
	anchor := mustCell(t, e, grid, 0, 0)
	content, _ := e.Tree().ContentRoot(anchor)
	if err := e.SetCellSpan(anchor, 2, 1); err != nil {
		t.Fatal(err)
	}

	if err := e.RemoveColumnAt(grid, 0); err != nil {
		t.Fatalf("RemoveColumnAt() error = %v", err)
	}
	if got := mustCell(t, e, grid, 0, 0); got != anchor {
		t.Fatalf("cell(0,0) = %d, want anchor %d", got, anchor)
	}
	if got, _ := e.Tree().ContentRoot(anchor); got != content {
		t.Fatal("anchor lost its content")
	}
	if sx, _ := spanOf(t, e, anchor); sx != 1 {
		t.Fatalf("spanX = %d, want 1", sx)
	}
	mustInvariants(t, e, grid)
}

func TestRemoveAnchorRowMovesAnchor(t *testing.T) {
	e, grid := newEditorGrid(t, 2, 3)
	anchor := mustCell(t, e, grid, 0, 1)
	if err := e.SetCellSpan(anchor, 1, 3); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveRowAt(grid, 0); err != nil {
		t.Fatalf("RemoveRowAt() error = %v", err)
	}
	if got := mustCell(t, e, grid, 0, 1); got != anchor {
		t.Fatalf("cell(0,1) = %d, want anchor %d", got, anchor)
	}
	if _, sy := spanOf(t, e, anchor); sy != 2 {
		t.Fatalf("spanY = %d, want 2", sy)
	}
	mustInvariants(t, e, grid)
}

func TestRemoveLastTrack(t *testing.T) {
	e, grid := newEditorGrid(t, 1, 2)
	if err := e.RemoveLastColumn(grid); !errors.Is(err, ErrLastTrack) {
		t.Fatalf("RemoveLastColumn() error = %v, want ErrLastTrack", err)
	}
	if err := e.RemoveRowAt(grid, 2); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("RemoveRowAt(2) error = %v, want ErrOutOfBounds", err)
	}
	if err := e.RemoveLastRow(grid); err != nil {
		t.Fatalf("RemoveLastRow() error = %v", err)
	}
	if err := e.RemoveLastRow(grid); !errors.Is(err, ErrLastTrack) {
		t.Fatalf("second RemoveLastRow() error = %v, want ErrLastTrack", err)
	}
}

func TestSetCellSpanErrors(t *testing.T) {
	e, grid := newEditorGrid(t, 2, 2)
	cell := mustCell(t, e, grid, 1, 1)

	if err := e.SetCellSpan(cell, 2, 1); !errors.Is(err, ErrSpanOutOfBounds) {
		t.Fatalf("SetCellSpan() error = %v, want ErrSpanOutOfBounds", err)
	}
	if sx, sy := spanOf(t, e, cell); sx != 1 || sy != 1 {
		t.Fatalf("failed span mutated cell to %dx%d", sx, sy)
	}
	if err := e.SetCellSpan(cell, 0, 1); !errors.Is(err, ErrInvalidSpan) {
		t.Fatalf("SetCellSpan(0) error = %v, want ErrInvalidSpan", err)
	}
	if err := e.SetCellSpan(grid, 1, 1); !errors.Is(err, ErrNotCell) {
		t.Fatalf("SetCellSpan(grid) error = %v, want ErrNotCell", err)
	}

	anchor := mustCell(t, e, grid, 0, 0)
	if err := e.SetCellSpan(anchor, 2, 2); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCellSpan(cell, 1, 1); !errors.Is(err, ErrInvalidSpan) {
		t.Fatalf("span on covered cell error = %v, want ErrInvalidSpan", err)
	}
}

func TestSetCellSpanResetsIntersectingAnchors(t *testing.T) {
	e, grid := newEditorGrid(t, 3, 3)
	inner := mustCell(t, e, grid, 1, 1)
	if err := e.SetCellSpan(inner, 2, 2); err != nil {
		t.Fatal(err)
	}
	outer := mustCell(t, e, grid, 0, 0)
	if err := e.SetCellSpan(outer, 2, 2); err != nil {
		t.Fatal(err)
	}
	if sx, sy := spanOf(t, e, inner); sx != 1 || sy != 1 {
		t.Fatalf("covered anchor span = %dx%d, want 1x1", sx, sy)
	}
	n, _ := e.Tree().Get(mustCell(t, e, grid, 2, 2))
	if n.Cell.Skip {
		t.Fatal("cell uncovered by the reset span should not be skipped")
	}
	mustInvariants(t, e, grid)

	// shrinking releases covered cells
	if err := e.SetCellSpan(outer, 1, 1); err != nil {
		t.Fatal(err)
	}
	for _, id := range mustCells(t, e, grid) {
		if n, _ := e.Tree().Get(id); n.Cell.Skip {
			t.Fatalf("cell %d still skipped", id)
		}
	}
}

func mustCells(t *testing.T, e *Editor, grid node.ID) []node.ID {
	t.Helper()
	cells, err := e.Cells(grid)
	if err != nil {
		t.Fatal(err)
	}
	return cells
}

func TestInsertInsideSpanGrows(t *testing.T) {
	e, grid := newEditorGrid(t, 3, 3)
	anchor := mustCell(t, e, grid, 0, 0)
	if err := e.SetCellSpan(anchor, 2, 2); err != nil {
		t.Fatal(err)
	}
	if err := e.AddRowAt(grid, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.AddColumnAt(grid, 1); err != nil {
		t.Fatal(err)
	}
	if sx, sy := spanOf(t, e, anchor); sx != 3 || sy != 3 {
		t.Fatalf("span = %dx%d, want 3x3", sx, sy)
	}
	// inserting at the span's far edge leaves it alone
	if err := e.AddColumnAt(grid, 3); err != nil {
		t.Fatal(err)
	}
	if sx, _ := spanOf(t, e, anchor); sx != 3 {
		t.Fatalf("spanX = %d, want 3", sx)
	}
	mustInvariants(t, e, grid)
}

func TestCoverageAfterOperationSequence(t *testing.T) {
	e, grid := newEditorGrid(t, 4, 4)
	steps := []struct {
		name string
		run  func() error
	}{
		{"span (1,1) 3x2", func() error { return e.SetCellSpan(mustCell(t, e, grid, 1, 1), 3, 2) }},
		{"add row at 2", func() error { return e.AddRowAt(grid, 2) }},
		{"remove column 2", func() error { return e.RemoveColumnAt(grid, 2) }},
		{"span (0,0) 2x2", func() error { return e.SetCellSpan(mustCell(t, e, grid, 0, 0), 2, 2) }},
		{"add column at start", func() error { _, err := e.AddColumn(grid, false); return err }},
		{"remove row 1", func() error { return e.RemoveRowAt(grid, 1) }},
		{"remove last column", func() error { return e.RemoveLastColumn(grid) }},
		{"remove row 0", func() error { return e.RemoveRowAt(grid, 0) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if err := e.CheckInvariants(grid); err != nil {
			t.Fatalf("%s: CheckInvariants() error = %v", step.name, err)
		}
	}
}

func TestRowAndColumnLookup(t *testing.T) {
	e, grid := newEditorGrid(t, 3, 2)
	cell := mustCell(t, e, grid, 1, 2)
	row, col, err := e.RowAndColumn(grid, cell)
	if err != nil || row != 1 || col != 2 {
		t.Fatalf("RowAndColumn() = %d,%d,%v, want 1,2", row, col, err)
	}

	other, err := e.NewGrid(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	stranger := mustCell(t, e, other, 0, 0)
	if _, _, err := e.RowAndColumn(grid, stranger); !errors.Is(err, ErrNotChild) {
		t.Fatalf("RowAndColumn(stranger) error = %v, want ErrNotChild", err)
	}
	if _, err := e.Cell(grid, 2, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Cell(2,0) error = %v, want ErrOutOfBounds", err)
	}
	if _, err := e.Cell(cell, 0, 0); !errors.Is(err, ErrNotGrid) {
		t.Fatalf("Cell(cell) error = %v, want ErrNotGrid", err)
	}
	if _, err := e.ColumnWidth(grid, 3); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("ColumnWidth(3) error = %v, want ErrOutOfBounds", err)
	}
}

func TestSetCellBorderSpansSegments(t *testing.T) {
	e, grid := newEditorGrid(t, 3, 2)
	anchor := mustCell(t, e, grid, 0, 0)
	if err := e.SetCellSpan(anchor, 2, 1); err != nil {
		t.Fatal(err)
	}
	spec := border.Stroke(2, border.StyleSolid, "red")
	if err := e.SetCellBorder(grid, anchor, border.Bottom, spec); err != nil {
		t.Fatalf("SetCellBorder() error = %v", err)
	}
	g, _ := e.Tree().Get(grid)
	for c := 0; c < 2; c++ {
		if got := g.Grid.Edges.H[1][c].Lead; got != spec {
			t.Fatalf("H[1][%d].Lead = %v, want %v", c, got, spec)
		}
	}
	if !g.Grid.Edges.H[1][2].Empty() {
		t.Fatal("segment outside the span was written")
	}

	if err := e.SetOuterBorder(grid, border.Left, 2, spec); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("SetOuterBorder() error = %v, want ErrOutOfBounds", err)
	}
	if err := e.SetOuterSide(grid, border.Top, border.Cleared()); err != nil {
		t.Fatal(err)
	}
	for _, s := range g.Grid.Outer().Top {
		if s != border.Cleared() {
			t.Fatalf("top perimeter = %v, want cleared", s)
		}
	}
}

func TestGapListsFollowStructure(t *testing.T) {
	e, grid := newEditorGrid(t, 3, 2)
	if err := e.SetGapX(grid, []string{"4px", "8px", "1px"}); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("SetGapX() error = %v, want ErrInvalidValue", err)
	}
	if err := e.SetGapX(grid, []string{"4px", "8px"}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetGapY(grid, []string{"2px"}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddColumn(grid, true); err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddRow(grid, true); err != nil {
		t.Fatal(err)
	}
	g, _ := e.Tree().Get(grid)
	if len(g.Grid.GapX) != 3 || g.Grid.GapX[2] != "8px" {
		t.Fatalf("GapX = %v", g.Grid.GapX)
	}
	if len(g.Grid.GapY) != 1 {
		t.Fatalf("GapY = %v, single token should stay single", g.Grid.GapY)
	}
	if err := e.RemoveColumnAt(grid, 0); err != nil {
		t.Fatal(err)
	}
	if len(g.Grid.GapX) != 2 {
		t.Fatalf("GapX = %v after removal", g.Grid.GapX)
	}
}

func TestCellFactoryFailureLeavesGridUnchanged(t *testing.T) {
	tree := node.NewTree()
	calls := 0
	factory := CellFactoryFunc(func(tree *node.Tree) (node.ID, error) {
		calls++
		if calls > 4 {
			return node.NoID, errors.New("out of cells")
		}
		return DefaultCellFactory.NewCell(tree)
	})
	e := NewEditor(tree, factory)
	grid, err := e.NewGrid(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	live := tree.Len()
	if _, err := e.AddRow(grid, true); err == nil {
		t.Fatal("expected factory error")
	}
	if tree.Len() != live {
		t.Fatalf("Len() = %d, want %d", tree.Len(), live)
	}
	if rows, _, _ := e.Counts(grid); rows != 2 {
		t.Fatalf("rows = %d, want 2", rows)
	}

	bad := NewEditor(tree, CellFactoryFunc(func(tree *node.Tree) (node.ID, error) {
		return tree.NewCell(), nil
	}))
	if _, err := bad.NewGrid(1, 1); err == nil {
		t.Fatal("expected error for factory cell without content")
	}
}

func TestNestGrid(t *testing.T) {
	e, grid := newEditorGrid(t, 2, 1)
	host := mustCell(t, e, grid, 0, 1)
	nested, err := e.NestGrid(host, 2, 2)
	if err != nil {
		t.Fatalf("NestGrid() error = %v", err)
	}
	if got, ok := e.Tree().HostCell(nested); !ok || got != host {
		t.Fatalf("HostCell() = %d, %v", got, ok)
	}
	if top, _ := e.Tree().TopLevelGrid(nested); top != grid {
		t.Fatalf("TopLevelGrid() = %d, want %d", top, grid)
	}
	mustInvariants(t, e, grid)
	mustInvariants(t, e, nested)
}

func TestNormalizeNestedDecodedGrid(t *testing.T) {
	hug := map[string]string{node.AttrColumnWidths: "hug,hug", node.AttrRowHeights: "hug"}
	leaf := func(attrs map[string]string) node.DocumentNode {
		return node.DocumentNode{Type: "cell", Attrs: attrs, Content: []node.DocumentNode{{Type: "paragraph"}}}
	}
	inner := node.DocumentNode{Type: "grid", Attrs: hug, Content: []node.DocumentNode{leaf(nil), leaf(map[string]string{node.AttrSkip: "true"})}}
	outer := node.DocumentNode{Type: "grid", Attrs: hug, Content: []node.DocumentNode{
		leaf(map[string]string{node.AttrSpanX: "2"}),
		{Type: "cell", Content: []node.DocumentNode{inner}},
	}}

	tree := node.NewTree()
	e := NewEditor(tree, nil)
	grid, err := tree.Decode(outer)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := e.CheckInvariants(grid); err == nil {
		t.Fatal("CheckInvariants() before Normalize = nil, want coverage error")
	}
	if err := e.Normalize(grid); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	mustInvariants(t, e, grid)
	nested, _ := tree.Get(mustCell(t, e, grid, 0, 1))
	innerGrid := nested.Children[0]
	mustInvariants(t, e, innerGrid)

	if err := e.Normalize(mustCell(t, e, grid, 0, 0)); !errors.Is(err, ErrNotGrid) {
		t.Fatalf("Normalize(cell) error = %v, want ErrNotGrid", err)
	}
}
