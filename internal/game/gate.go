package game

import (
	"context"
	"sync"
)

// pauseGate is the cooperative suspension token threaded through the
// replication/round loop. The loop waits on it at round and replication
// boundaries only; an in-flight round always finishes.
type pauseGate struct {
	mu     sync.Mutex
	open   chan struct{}
	paused bool
}

func newPauseGate() *pauseGate {
	g := &pauseGate{open: make(chan struct{})}
	close(g.open)
	return g
}

// Wait blocks while the gate is paused. Returns the context error when the
// game is torn down mid-pause.
func (g *pauseGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.open
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *pauseGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.open = make(chan struct{})
	}
}

func (g *pauseGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.open)
	}
}
