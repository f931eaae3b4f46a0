// Package workpool runs blocking steps on a fixed set of goroutines so CPU-bound
// image work and external tool invocations never exceed a configured width.
package workpool

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when work is submitted after Close.
var ErrClosed = errors.New("workpool closed")

type task struct {
	fn   func() error
	done chan error
}

// Pool is a fixed-width executor.
type Pool struct {
	tasks     chan task
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// New starts a pool with the given number of workers (at least one).
func New(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{tasks: make(chan task)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.done <- t.fn()
	}
}

// Do runs fn on a pool goroutine and returns its error. ctx bounds only the
// wait for a free worker; once fn has started, Do waits for it to finish.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}
	return <-t.done
}

// Close stops accepting work and waits for running tasks to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
