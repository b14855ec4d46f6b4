// Package compute bounds how many CPU-bound analyses run at once.
package compute

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool returns a pool running at most size computations concurrently.
// A size below 1 means one slot per CPU.
func NewPool(size int) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

func (p *Pool) Size() int { return p.size }

// Do waits for a free slot and then runs fn to completion.
// ctx only bounds the wait; a started computation is never interrupted.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for compute slot: %w", err)
	}
	defer p.sem.Release(1)

	fn()
	return nil
}
