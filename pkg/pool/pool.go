// Package pool bounds concurrent CPU-heavy work with a weighted semaphore.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool runs at most Size tasks at once. Callers block in Do until a slot frees
// or their context ends.
type Pool struct {
	sem    *semaphore.Weighted
	size   int64
	active atomic.Int64
}

// New creates a pool of the given size; size <= 0 uses GOMAXPROCS.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Do runs fn in the caller's goroutine once a slot is acquired.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker: %w", err)
	}
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		p.sem.Release(1)
	}()
	return fn(ctx)
}

// Size returns the configured concurrency.
func (p *Pool) Size() int { return int(p.size) }

// Active returns the number of running tasks.
func (p *Pool) Active() int { return int(p.active.Load()) }
