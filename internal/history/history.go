// Package history provides snapshot-based undo scoped to top-level grids.
// Only one history operation runs at a time; nested attempts are logged and
// skipped.
package history

import (
	"log"
	"time"

	"bloomgrid/api/internal/node"
)

// DefaultLimit caps the number of entries kept.
const DefaultLimit = 50

// State is the operation state of a Manager.
type State uint8

const (
	Idle State = iota
	InProgress
)

func (s State) String() string {
	if s == InProgress {
		return "in-progress"
	}
	return "idle"
}

// UndoFunc reverts one entry. It receives the state captured before the
// operation ran.
type UndoFunc func(before node.Snapshot) error

type entry struct {
	grid   node.ID
	label  string
	before node.Snapshot
	undo   UndoFunc
}

type Manager struct {
	tree      *node.Tree
	limit     int
	state     State
	entries   []entry
	attached  map[node.ID]struct{}
	notifiers []Notifier
	logger    *log.Logger
	now       func() time.Time
}

type Option func(*Manager)

// WithLimit sets the maximum number of entries; values below 1 are ignored.
func WithLimit(limit int) Option {
	return func(m *Manager) {
		if limit > 0 {
			m.limit = limit
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier adds a receiver of history events.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func New(tree *node.Tree, opts ...Option) *Manager {
	m := &Manager{
		tree:     tree,
		limit:    DefaultLimit,
		attached: make(map[node.ID]struct{}),
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current operation state.
func (m *Manager) State() State { return m.state }

// transition is the only place the state changes.
func (m *Manager) transition(from, to State) bool {
	if m.state != from {
		return false
	}
	m.state = to
	return true
}

// Attach makes grid eligible for history.
func (m *Manager) Attach(grid node.ID) { m.attached[grid] = struct{}{} }

// Detach removes grid from the eligible set and drops its entries.
func (m *Manager) Detach(grid node.ID) {
	delete(m.attached, grid)
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.grid != grid {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

func (m *Manager) Attached(grid node.ID) bool {
	_, ok := m.attached[grid]
	return ok
}

// resolve maps target to its top-level grid and checks it can take history.
func (m *Manager) resolve(target node.ID) (node.ID, bool) {
	grid, err := m.tree.TopLevelGrid(target)
	if err != nil {
		m.logger.Printf("history: target %d: %v", target, err)
		return node.NoID, false
	}
	if !m.tree.Attached(grid) || !m.Attached(grid) {
		m.logger.Printf("history: grid %d is not attached", grid)
		return node.NoID, false
	}
	return grid, true
}

// AddEntry runs perform and, when it succeeds, records the state from before
// it ran under label. A nil undo restores that state wholesale. It returns
// false without running perform when the target's grid is not attached or
// another operation is in progress. An event is emitted whenever perform was
// attempted, including on error or panic.
func (m *Manager) AddEntry(target node.ID, label string, perform func() error, undo UndoFunc) (pushed bool, err error) {
	if m.state != Idle {
		m.logger.Printf("history: %q skipped: operation in progress", label)
		return false, nil
	}
	grid, ok := m.resolve(target)
	if !ok {
		m.logger.Printf("history: %q skipped", label)
		return false, nil
	}
	before, err := m.tree.Snapshot(grid)
	if err != nil {
		return false, err
	}
	m.transition(Idle, InProgress)
	defer func() {
		m.transition(InProgress, Idle)
		m.emit(Event{Action: ActionAdd, Grid: grid, Label: label, Pushed: pushed, Failed: !pushed})
	}()

	if err := perform(); err != nil {
		return false, err
	}
	if undo == nil {
		undo = m.restore
	}
	m.entries = append(m.entries, entry{grid: grid, label: label, before: before, undo: undo})
	if over := len(m.entries) - m.limit; over > 0 {
		m.entries = append([]entry(nil), m.entries[over:]...)
	}
	return true, nil
}

func (m *Manager) restore(before node.Snapshot) error {
	return m.tree.Restore(before)
}

// Undo reverts the latest entry. It returns false when there is nothing to
// undo, an operation is in progress or the undo failed; a failed entry goes
// back on the stack.
func (m *Manager) Undo(target node.ID) bool {
	if len(m.entries) == 0 {
		return false
	}
	if m.state != Idle {
		m.logger.Printf("history: undo skipped: operation in progress")
		return false
	}
	if _, ok := m.resolve(target); !ok {
		m.logger.Printf("history: undo skipped")
		return false
	}
	m.transition(Idle, InProgress)
	last := m.entries[len(m.entries)-1]
	m.entries = m.entries[:len(m.entries)-1]

	err := m.runUndo(last)
	if err != nil {
		m.logger.Printf("history: undo %q failed: %v", last.label, err)
		m.entries = append(m.entries, last)
	}
	m.transition(InProgress, Idle)
	m.emit(Event{Action: ActionUndo, Grid: last.grid, Label: last.label, Failed: err != nil})
	return err == nil
}

func (m *Manager) runUndo(e entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	if !m.tree.Attached(e.grid) {
		return ErrDetached
	}
	return e.undo(e.before)
}

// CanUndo reports whether Undo would attempt an entry.
func (m *Manager) CanUndo() bool { return len(m.entries) > 0 && m.state == Idle }

// Len returns the number of entries.
func (m *Manager) Len() int { return len(m.entries) }

// Labels returns entry labels, oldest first.
func (m *Manager) Labels() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.label
	}
	return out
}

// Clear discards every entry.
func (m *Manager) Clear() {
	m.entries = nil
	m.emit(Event{Action: ActionClear, Grid: node.NoID})
}

// Reset clears entries, detaches every grid and returns to Idle.
func (m *Manager) Reset() {
	m.entries = nil
	m.attached = make(map[node.ID]struct{})
	m.transition(InProgress, Idle)
}

func (m *Manager) emit(ev Event) {
	ev.CanUndo = m.CanUndo()
	ev.Depth = len(m.entries)
	ev.At = m.now().UTC()
	for _, n := range m.notifiers {
		n.HistoryUpdated(ev)
	}
}
