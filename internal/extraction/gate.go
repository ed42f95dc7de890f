package extraction

import (
	"context"
	"sync"
)

// pauseGate blocks the worker between combinations while a pause is
// requested. The resume channel is open while paused and closed otherwise.
type pauseGate struct {
	mu        sync.Mutex
	requested bool
	paused    bool
	resume    chan struct{}
}

func newPauseGate() *pauseGate {
	g := &pauseGate{resume: make(chan struct{})}
	close(g.resume)
	return g
}

// request asks the worker to pause. Repeated calls are no-ops.
func (g *pauseGate) request() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.requested {
		return
	}
	g.requested = true
	g.resume = make(chan struct{})
}

// release clears a pause request and wakes a blocked worker. Repeated calls
// are no-ops.
func (g *pauseGate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.requested {
		return
	}
	g.requested = false
	close(g.resume)
}

func (g *pauseGate) isRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requested
}

func (g *pauseGate) isPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// wait returns immediately unless a pause is requested. Otherwise it marks
// the gate paused, calls onPause, and blocks until release or ctx is done.
// It reports whether it blocked.
func (g *pauseGate) wait(ctx context.Context, onPause func()) (bool, error) {
	g.mu.Lock()
	if !g.requested {
		g.mu.Unlock()
		return false, nil
	}
	g.paused = true
	ch := g.resume
	g.mu.Unlock()

	if onPause != nil {
		onPause()
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-ch:
	}

	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	return true, err
}
