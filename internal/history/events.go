package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"bloomgrid/api/internal/node"
)

var ErrDetached = errors.New("history grid is no longer attached")

// PanicError wraps a value recovered from a panicking undo function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("undo panicked: %v", e.Value) }

type Action string

const (
	ActionAdd   Action = "add"
	ActionUndo  Action = "undo"
	ActionClear Action = "clear"
)

// Event is the history-updated notification.
type Event struct {
	Action  Action    `json:"action"`
	Grid    node.ID   `json:"grid"`
	Label   string    `json:"label,omitempty"`
	Pushed  bool      `json:"pushed"`
	Failed  bool      `json:"failed"`
	CanUndo bool      `json:"canUndo"`
	Depth   int       `json:"depth"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	HistoryUpdated(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) HistoryUpdated(ev Event) { f(ev) }

// Broadcaster fans events out to subscribers.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Broadcaster) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Broadcaster) HistoryUpdated(ev Event) {
	b.mu.Lock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
