// Package schedule coalesces render requests so each grid renders at most
// once per tick.
package schedule

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"bloomgrid/api/internal/node"
)

// Renderer renders one grid. reason is the last reason requested for it.
type Renderer func(grid node.ID, reason string) error

type Scheduler struct {
	mu       sync.Mutex
	pending  map[node.ID]string
	renderer Renderer
	logger   *log.Logger
}

func New(renderer Renderer, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		pending:  make(map[node.ID]string),
		renderer: renderer,
		logger:   logger,
	}
}

type requestOptions struct {
	immediate bool
}

type RequestOption func(*requestOptions)

// Immediate renders synchronously instead of waiting for the next tick, and
// drops any pending task for the grid.
func Immediate() RequestOption {
	return func(o *requestOptions) { o.immediate = true }
}

// SetRenderer replaces the injected renderer.
func (s *Scheduler) SetRenderer(fn Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderer = fn
}

// Request schedules a render of grid. Requests for a grid already pending
// replace its reason.
func (s *Scheduler) Request(grid node.ID, reason string, opts ...RequestOption) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	s.mu.Lock()
	if !o.immediate {
		s.pending[grid] = reason
		s.mu.Unlock()
		return
	}
	delete(s.pending, grid)
	renderer := s.renderer
	s.mu.Unlock()
	s.run(renderer, grid, reason)
}

// Cancel drops the pending task for grid without running it.
func (s *Scheduler) Cancel(grid node.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, grid)
}

// Pending returns the reason of the pending task for grid.
func (s *Scheduler) Pending(grid node.ID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ok := s.pending[grid]
	return reason, ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush runs every pending task once and returns how many ran. Requests made
// by a renderer during Flush wait for the next one. Without a renderer the
// tasks stay pending.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	if s.renderer == nil || len(s.pending) == 0 {
		s.mu.Unlock()
		return 0
	}
	tasks := s.pending
	s.pending = make(map[node.ID]string)
	renderer := s.renderer
	s.mu.Unlock()

	grids := make([]node.ID, 0, len(tasks))
	for g := range tasks {
		grids = append(grids, g)
	}
	sort.Slice(grids, func(i, j int) bool { return grids[i] < grids[j] })
	for _, g := range grids {
		s.run(renderer, g, tasks[g])
	}
	return len(grids)
}

func (s *Scheduler) run(renderer Renderer, grid node.ID, reason string) {
	if renderer == nil {
		s.logger.Printf("schedule: no renderer for grid %d (%s)", grid, reason)
		return
	}
	if err := renderer(grid, reason); err != nil {
		s.logger.Printf("schedule: render grid %d (%s): %v", grid, reason, err)
	}
}

// Run flushes on every tick of interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// Reset drops every pending task.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[node.ID]string)
}
