// Package gate provides a broadcast open/closed barrier used to pause work.
package gate

import (
	"context"
	"sync"
)

// Gate blocks waiters while closed and releases all of them at once when
// opened. The zero value is closed.
type Gate struct {
	mu     sync.Mutex
	open   bool
	signal chan struct{}
}

// New returns a gate in the requested initial state.
func New(open bool) *Gate {
	g := &Gate{}
	if open {
		g.Open()
	}
	return g
}

func (g *Gate) channel() chan struct{} {
	if g.signal == nil {
		g.signal = make(chan struct{})
	}
	return g.signal
}

// Open releases every current and future waiter until the gate is closed again.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return
	}
	close(g.channel())
	g.open = true
}

// Close makes subsequent waiters block.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return
	}
	g.signal = make(chan struct{})
	g.open = false
}

// IsOpen reports the current state.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.channel()
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
