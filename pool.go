package tex2pdf

import (
	"context"
	"runtime"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one compiler can run.
	MinPoolSize = 1

	// MaxPoolSize caps explicit worker counts.
	MaxPoolSize = 32

	// autoPoolCap limits the automatic size: pdflatex is single threaded
	// but memory hungry on large documents (~200MB with TikZ).
	autoPoolCap = 8
)

// Pool bounds the number of compiler processes running at once across
// every Generator sharing it. Slots are acquired around the compiler run
// only, so directory setup and PDF decoding do not hold a slot.
type Pool struct {
	size int
	sem  chan struct{}
}

// NewPool creates a pool with n slots (at least one).
func NewPool(n int) *Pool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &Pool{
		size: n,
		sem:  make(chan struct{}, n),
	}
}

// Acquire takes a slot, blocking until one is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (p *Pool) Release() {
	select {
	case <-p.sem:
	default:
		panic("tex2pdf: Pool.Release without Acquire")
	}
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return p.size
}

// InUse returns the number of slots currently held.
func (p *Pool) InUse() int {
	return len(p.sem)
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return min(workers, MaxPoolSize)
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	n := runtime.GOMAXPROCS(0)
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > autoPoolCap {
		return autoPoolCap
	}
	return n
}
