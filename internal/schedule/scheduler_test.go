package schedule

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"bloomgrid/api/internal/node"
)

type call struct {
	grid   node.ID
	reason string
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeRenderer) render(grid node.ID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{grid, reason})
	return f.err
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRequestsCoalescePerGrid(t *testing.T) {
	r := &fakeRenderer{}
	s := New(r.render, nil)
	s.Request(1, "resize")
	s.Request(1, "border")
	s.Request(1, "span")
	s.Request(2, "insert")

	if r.count() != 0 {
		t.Fatal("renderer ran before the tick")
	}
	if reason, ok := s.Pending(1); !ok || reason != "span" {
		t.Fatalf("Pending(1) = %q, %v, want span", reason, ok)
	}
	if got := s.Flush(); got != 2 {
		t.Fatalf("Flush() = %d, want 2", got)
	}
	if len(r.calls) != 2 || r.calls[0] != (call{1, "span"}) || r.calls[1] != (call{2, "insert"}) {
		t.Fatalf("calls = %+v", r.calls)
	}
	if got := s.Flush(); got != 0 {
		t.Fatalf("second Flush() = %d, want 0", got)
	}
}

func TestImmediateBypassesQueue(t *testing.T) {
	r := &fakeRenderer{}
	s := New(r.render, nil)
	s.Request(3, "queued")
	s.Request(3, "drag", Immediate())
	if r.count() != 1 || r.calls[0].reason != "drag" {
		t.Fatalf("calls = %+v", r.calls)
	}
	if _, ok := s.Pending(3); ok {
		t.Fatal("immediate request should drop the pending task")
	}
	if s.Flush() != 0 {
		t.Fatal("nothing should be left to flush")
	}
}

func TestCancelAndReset(t *testing.T) {
	r := &fakeRenderer{}
	s := New(r.render, nil)
	s.Request(1, "a")
	s.Request(2, "b")
	s.Cancel(1)
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	s.Reset()
	if s.Flush() != 0 || r.count() != 0 {
		t.Fatal("Reset() should drop everything")
	}
}

func TestRendererErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	r := &fakeRenderer{err: errors.New("broken surface")}
	s := New(r.render, log.New(&buf, "", 0))
	s.Request(7, "insert")
	s.Flush()
	if !strings.Contains(buf.String(), "broken surface") {
		t.Fatalf("log = %q", buf.String())
	}
}

func TestMissingRendererKeepsTasks(t *testing.T) {
	s := New(nil, log.New(&bytes.Buffer{}, "", 0))
	s.Request(1, "a")
	if s.Flush() != 0 || s.Len() != 1 {
		t.Fatal("tasks should wait for a renderer")
	}
	r := &fakeRenderer{}
	s.SetRenderer(r.render)
	if s.Flush() != 1 || r.count() != 1 {
		t.Fatal("task should run once a renderer is set")
	}
}

func TestRunFlushesOnTick(t *testing.T) {
	r := &fakeRenderer{}
	s := New(r.render, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	s.Request(1, "tick")
	deadline := time.After(2 * time.Second)
	for r.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("renderer never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
