package bloom

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/grid"
	"bloomgrid/api/internal/history"
	"bloomgrid/api/internal/node"
	"bloomgrid/api/internal/render"
)

func newWorkspace(t *testing.T, notifiers ...history.Notifier) *Workspace {
	t.Helper()
	return NewWorkspace(Config{
		Notifiers: notifiers,
		Logger:    log.New(&bytes.Buffer{}, "", 0),
	})
}

func style(t *testing.T, w *Workspace, id node.ID, property string) string {
	t.Helper()
	var v string
	w.View(func(_ *node.Tree, s *render.Surface) error {
		v, _ = s.Style(id, property)
		return nil
	})
	return v
}

func TestMutationsCoalesceIntoOneRender(t *testing.T) {
	w := newWorkspace(t)
	g, err := w.CreateGrid(2, 2)
	if err != nil {
		t.Fatalf("CreateGrid() error = %v", err)
	}
	if _, err := g.AddColumn(true); err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if err := g.SetGapX([]string{"4px"}); err != nil {
		t.Fatalf("SetGapX() error = %v", err)
	}
	if w.Renders() != 0 {
		t.Fatalf("Renders() = %d before flush", w.Renders())
	}
	if n := w.Flush(); n != 1 {
		t.Fatalf("Flush() = %d, want 1", n)
	}
	want := "minmax(60px, max-content) 4px minmax(60px, max-content) 4px minmax(60px, max-content)"
	if got := style(t, w, g.ID(), "grid-template-columns"); got != want {
		t.Fatalf("grid-template-columns = %q, want %q", got, want)
	}
	if got := w.History().Labels; len(got) != 2 || got[0] != "add column" || got[1] != "gap x" {
		t.Fatalf("labels = %v", got)
	}
}

func TestResizeRendersImmediatelyAndUndoes(t *testing.T) {
	w := newWorkspace(t)
	g, _ := w.CreateGrid(2, 1)
	if err := g.SetColumnWidth(0, "100px"); err != nil {
		t.Fatalf("SetColumnWidth() error = %v", err)
	}
	if w.Renders() != 1 {
		t.Fatalf("Renders() = %d, want 1", w.Renders())
	}
	if _, pending := w.Scheduler().Pending(g.ID()); pending {
		t.Fatal("immediate render should drop the create request")
	}
	if got := style(t, w, g.ID(), "grid-template-columns"); got != "100px minmax(60px, max-content)" {
		t.Fatalf("grid-template-columns = %q", got)
	}

	if err := g.SetColumnWidth(0, "250px"); err != nil {
		t.Fatal(err)
	}
	if !g.Undo() {
		t.Fatal("Undo() = false")
	}
	w.Flush()
	if got := style(t, w, g.ID(), "grid-template-columns"); got != "100px minmax(60px, max-content)" {
		t.Fatalf("after undo grid-template-columns = %q", got)
	}
}

func TestInsertUndoRemovesTrack(t *testing.T) {
	w := newWorkspace(t)
	g, _ := w.CreateGrid(2, 2)
	first, _ := g.Cell(0, 0)
	if err := g.SetCellSpan(first, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := g.InsertRow(1); err != nil {
		t.Fatalf("InsertRow() error = %v", err)
	}
	if rows, _, _ := g.Counts(); rows != 3 {
		t.Fatalf("rows = %d, want 3", rows)
	}
	if !g.Undo() {
		t.Fatal("Undo() = false")
	}
	rows, cols, _ := g.Counts()
	if rows != 2 || cols != 2 {
		t.Fatalf("counts after undo = %dx%d", rows, cols)
	}
	if err := g.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants() error = %v", err)
	}
	if cell, _ := g.Cell(0, 0); cell != first {
		t.Fatalf("anchor = %d, want %d", cell, first)
	}
	m, err := w.Model(g.ID())
	if err != nil {
		t.Fatal(err)
	}
	if c := m.Cell(0, 0); c.SpanY != 2 {
		t.Fatalf("span after undo = %d, want 2", c.SpanY)
	}
}

func TestAddRowReturnsIndex(t *testing.T) {
	w := newWorkspace(t)
	g, _ := w.CreateGrid(1, 2)
	index, err := g.AddRow(true)
	if err != nil || index != 2 {
		t.Fatalf("AddRow(true) = %d, %v", index, err)
	}
	index, err = g.AddRow(false)
	if err != nil || index != 0 {
		t.Fatalf("AddRow(false) = %d, %v", index, err)
	}
	g.Undo()
	g.Undo()
	if rows, _, _ := g.Counts(); rows != 2 {
		t.Fatalf("rows = %d, want 2", rows)
	}
}

func TestFailedMutationIsNotRecorded(t *testing.T) {
	w := newWorkspace(t)
	g, _ := w.CreateGrid(1, 1)
	if err := g.RemoveLastRow(); !errors.Is(err, grid.ErrLastTrack) {
		t.Fatalf("RemoveLastRow() error = %v, want ErrLastTrack", err)
	}
	other, _ := w.CreateGrid(1, 1)
	foreign, _ := other.Cell(0, 0)
	if err := g.SetCellSpan(foreign, 1, 1); !errors.Is(err, grid.ErrNotChild) {
		t.Fatalf("SetCellSpan(foreign) error = %v, want ErrNotChild", err)
	}
	if h := w.History(); h.Depth != 0 || h.CanUndo {
		t.Fatalf("history = %+v", h)
	}
}

func TestRemovedGridSkipsHistory(t *testing.T) {
	w := newWorkspace(t)
	g, _ := w.CreateGrid(2, 2)
	if err := w.RemoveGrid(g.ID()); err != nil {
		t.Fatalf("RemoveGrid() error = %v", err)
	}
	if err := g.SetCorners(4); !errors.Is(err, ErrSkipped) {
		t.Fatalf("SetCorners() error = %v, want ErrSkipped", err)
	}
	if _, err := w.Grid(g.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Grid() error = %v, want ErrNotFound", err)
	}
	if w.Flush() != 0 {
		t.Fatal("removed grid should have no pending render")
	}
}

func TestNestedGridRendersThroughTopLevel(t *testing.T) {
	var events []history.Event
	w := newWorkspace(t, history.NotifierFunc(func(ev history.Event) { events = append(events, ev) }))
	g, _ := w.CreateGrid(2, 1)
	host, _ := g.Cell(0, 1)
	nested, err := g.NestGrid(host, 2, 2)
	if err != nil {
		t.Fatalf("NestGrid() error = %v", err)
	}
	if err := nested.SetRowHeight(0, "40px"); err != nil {
		t.Fatalf("SetRowHeight() error = %v", err)
	}
	if got := style(t, w, nested.ID(), "grid-template-rows"); got != "40px minmax(32px, max-content)" {
		t.Fatalf("nested grid-template-rows = %q", got)
	}
	if len(events) != 2 || events[1].Grid != g.ID() {
		t.Fatalf("events = %+v", events)
	}
	if !nested.Undo() || !nested.Undo() {
		t.Fatal("undo of nested operations failed")
	}
	if _, err := w.Grid(nested.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("nested grid should be gone, err = %v", err)
	}
}

func TestLoadDocument(t *testing.T) {
	src := newWorkspace(t)
	g, _ := src.CreateGrid(2, 1)
	g.SetColumnWidth(1, "fill")
	cell, _ := g.Cell(0, 0)
	g.SetCellBorder(cell, border.Right, border.Stroke(2, border.StyleSolid, "red"))
	data, err := src.Document()
	if err != nil {
		t.Fatal(err)
	}

	var doc node.DocumentNode
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	dst := newWorkspace(t)
	grids, err := dst.Load(doc)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(grids) != 1 {
		t.Fatalf("Load() = %d grids", len(grids))
	}
	dst.Flush()
	a, _ := src.Model(g.ID())
	b, _ := dst.Model(grids[0].ID())
	if a.ColumnTemplate != b.ColumnTemplate || a.Cells[0].Borders.Right != b.Cells[0].Borders.Right {
		t.Fatalf("loaded model differs: %+v vs %+v", a, b)
	}

	if _, err := dst.Load(node.DocumentNode{Type: "cell"}); err == nil || !strings.Contains(err.Error(), "want grid") {
		t.Fatalf("Load(cell) error = %v", err)
	}
}

func TestLoadNormalizesSpanCoverage(t *testing.T) {
	tests := []struct {
		name  string
		cells []map[string]string
		skip  []bool
		spanX int
	}{
		{"covered cell not marked skip", []map[string]string{{node.AttrSpanX: "2"}, nil}, []bool{false, true}, 2},
		{"skip without a covering span", []map[string]string{nil, {node.AttrSkip: "true"}}, []bool{false, false}, 1},
		{"span past the last column", []map[string]string{nil, {node.AttrSpanX: "3"}}, []bool{false, false}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := node.DocumentNode{Type: "grid", Attrs: map[string]string{node.AttrColumnWidths: "hug,hug", node.AttrRowHeights: "hug"}}
			for _, attrs := range tt.cells {
				doc.Content = append(doc.Content, node.DocumentNode{Type: "cell", Attrs: attrs, Content: []node.DocumentNode{{Type: "paragraph"}}})
			}
			w := newWorkspace(t)
			grids, err := w.Load(doc)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			g := grids[0]
			if err := g.CheckInvariants(); err != nil {
				t.Fatalf("CheckInvariants() error = %v", err)
			}
			w.Flush()
			m, err := w.Model(g.ID())
			if err != nil {
				t.Fatal(err)
			}
			for i, want := range tt.skip {
				if m.Cells[i].Skip != want {
					t.Errorf("cell %d skip = %v, want %v", i, m.Cells[i].Skip, want)
				}
			}
			if m.Cells[0].SpanX != tt.spanX {
				t.Errorf("cell 0 spanX = %d, want %d", m.Cells[0].SpanX, tt.spanX)
			}
		})
	}
}

func TestMutatePanicReleasesLock(t *testing.T) {
	w := newWorkspace(t)
	g, _ := w.CreateGrid(2, 2)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic from perform")
			}
		}()
		g.mutate("boom", func(*grid.Editor) error { panic("boom") }, nil)
	}()

	done := make(chan error, 1)
	go func() {
		_, _, err := g.Counts()
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Counts() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("workspace lock still held after panic")
	}
}

func TestReset(t *testing.T) {
	w := newWorkspace(t)
	g, _ := w.CreateGrid(1, 1)
	g.SetCorners(3)
	w.Reset()
	if len(w.Grids()) != 0 || w.History().Depth != 0 || w.Flush() != 0 {
		t.Fatal("Reset() left state behind")
	}
}
