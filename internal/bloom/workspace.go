// Package bloom ties the editor, history, scheduler and surface of one
// document together. A Workspace owns its services; nothing is shared
// between workspaces.
package bloom

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"bloomgrid/api/internal/grid"
	"bloomgrid/api/internal/history"
	"bloomgrid/api/internal/node"
	"bloomgrid/api/internal/render"
	"bloomgrid/api/internal/schedule"
)

var (
	// ErrSkipped is returned when a mutation was not attempted because the
	// grid is not attached or another operation is in progress.
	ErrSkipped  = errors.New("operation skipped")
	ErrNotFound = errors.New("grid not found")
)

type Config struct {
	HistoryLimit int
	Factory      grid.CellFactory
	Notifiers    []history.Notifier
	Logger       *log.Logger
}

type Workspace struct {
	mu        sync.Mutex
	tree      *node.Tree
	editor    *grid.Editor
	history   *history.Manager
	scheduler *schedule.Scheduler
	surface   *render.Surface
	logger    *log.Logger
	renders   int
}

func NewWorkspace(cfg Config) *Workspace {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	tree := node.NewTree()
	opts := []history.Option{history.WithLimit(cfg.HistoryLimit), history.WithLogger(logger)}
	for _, n := range cfg.Notifiers {
		opts = append(opts, history.WithNotifier(n))
	}
	w := &Workspace{
		tree:    tree,
		editor:  grid.NewEditor(tree, cfg.Factory),
		history: history.New(tree, opts...),
		surface: render.NewSurface(),
		logger:  logger,
	}
	w.scheduler = schedule.New(w.render, logger)
	return w
}

// render is the scheduler's renderer. The requested grid may have been
// removed or nested since the request was made.
func (w *Workspace) render(id node.ID, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.tree.Get(id)
	if !ok || n.Kind != node.KindGrid || !w.tree.Attached(id) {
		return nil
	}
	top, err := w.tree.TopLevelGrid(id)
	if err != nil {
		return err
	}
	if err := render.Render(w.tree, w.surface, top); err != nil {
		return fmt.Errorf("render %s: %w", reason, err)
	}
	w.surface.Prune(func(id node.ID) bool {
		_, ok := w.tree.Get(id)
		return ok
	})
	w.renders++
	return nil
}

// Scheduler returns the workspace's render scheduler.
func (w *Workspace) Scheduler() *schedule.Scheduler { return w.scheduler }

// Flush renders every pending grid now.
func (w *Workspace) Flush() int { return w.scheduler.Flush() }

// Renders returns how many render passes have run.
func (w *Workspace) Renders() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.renders
}

// CreateGrid appends a new top-level grid to the document.
func (w *Workspace) CreateGrid(columns, rows int) (*Grid, error) {
	w.mu.Lock()
	id, err := w.editor.NewGrid(columns, rows)
	if err == nil {
		err = w.attach(id)
	}
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	w.scheduler.Request(id, "create")
	return &Grid{ws: w, id: id}, nil
}

func (w *Workspace) attach(id node.ID) error {
	if err := w.tree.Append(w.tree.Root(), id); err != nil {
		w.tree.Remove(id)
		return err
	}
	w.history.Attach(id)
	return nil
}

// Load decodes a grid, or a document of grids, and appends every grid to
// the document. It returns the new top-level grids.
func (w *Workspace) Load(doc node.DocumentNode) ([]*Grid, error) {
	docs := []node.DocumentNode{doc}
	if doc.Type == "document" {
		docs = doc.Content
	}
	w.mu.Lock()
	var ids []node.ID
	for i, d := range docs {
		if d.Type != "grid" {
			w.mu.Unlock()
			return nil, fmt.Errorf("document child %d has type %q, want grid", i, d.Type)
		}
	}
	for _, d := range docs {
		id, err := w.tree.Decode(d)
		if err == nil {
			err = w.editor.Normalize(id)
		}
		if err == nil {
			err = w.attach(id)
		}
		if err != nil {
			w.mu.Unlock()
			return nil, err
		}
		ids = append(ids, id)
	}
	w.mu.Unlock()

	out := make([]*Grid, len(ids))
	for i, id := range ids {
		w.scheduler.Request(id, "load")
		out[i] = &Grid{ws: w, id: id}
	}
	return out, nil
}

// Grid returns a handle for an existing grid node, top-level or nested.
func (w *Workspace) Grid(id node.ID) (*Grid, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.tree.Get(id)
	if !ok || n.Kind != node.KindGrid || !w.tree.Attached(id) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return &Grid{ws: w, id: id}, nil
}

// Grids returns the top-level grids in document order.
func (w *Workspace) Grids() []node.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	root, _ := w.tree.Get(w.tree.Root())
	return append([]node.ID(nil), root.Children...)
}

// RemoveGrid deletes a top-level grid together with its history.
func (w *Workspace) RemoveGrid(id node.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	parent := node.NoID
	if n, ok := w.tree.Get(id); ok {
		parent = n.Parent
	}
	if parent != w.tree.Root() {
		return fmt.Errorf("%w: %d is not a top-level grid", ErrNotFound, id)
	}
	w.scheduler.Cancel(id)
	w.history.Detach(id)
	if err := w.tree.Remove(id); err != nil {
		return err
	}
	w.surface.Prune(func(id node.ID) bool {
		_, ok := w.tree.Get(id)
		return ok
	})
	return nil
}

// Document returns the document as JSON.
func (w *Workspace) Document() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tree.MarshalDocument(w.tree.Root())
}

// Undo reverts the latest history entry through target. It returns whether
// anything was undone.
func (w *Workspace) Undo(target node.ID) bool {
	w.mu.Lock()
	ok := w.history.Undo(target)
	top, err := w.tree.TopLevelGrid(target)
	w.mu.Unlock()
	if ok && err == nil {
		w.scheduler.Request(top, "undo")
	}
	return ok
}

// HistoryState is a point-in-time view of the history stack.
type HistoryState struct {
	CanUndo bool     `json:"canUndo"`
	Depth   int      `json:"depth"`
	Labels  []string `json:"labels"`
}

func (w *Workspace) History() HistoryState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return HistoryState{
		CanUndo: w.history.CanUndo(),
		Depth:   w.history.Len(),
		Labels:  w.history.Labels(),
	}
}

// Model resolves grid without touching the surface.
func (w *Workspace) Model(id node.ID) (*render.Model, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return render.Build(w.tree, id)
}

// View runs fn with the tree and surface locked. fn must not call back into
// the workspace.
func (w *Workspace) View(fn func(tree *node.Tree, surface *render.Surface) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.tree, w.surface)
}

// Reset drops every grid, history entry, pending render and written style.
func (w *Workspace) Reset() {
	w.scheduler.Reset()
	w.mu.Lock()
	defer w.mu.Unlock()
	root, _ := w.tree.Get(w.tree.Root())
	for _, id := range append([]node.ID(nil), root.Children...) {
		w.tree.Remove(id)
	}
	w.history.Reset()
	w.surface.Reset()
	w.renders = 0
}
