package cfuture

import (
	"context"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// AsyncSemaphore is a fair FIFO queue of integer permits (spec component
// 4.C). It is the primitive WithParallelism uses to bound fan-out.
// golang.org/x/sync/semaphore.Weighted already queues waiters FIFO
// under an internal mutex with a wait-free fast path when permits are
// free, which is exactly the §4.C / §5 contract, so the queue itself is
// not hand-rolled here.
type AsyncSemaphore struct {
	sem *semaphore.Weighted
}

// NewAsyncSemaphore builds a semaphore with n permits. n must be
// positive; n < 1 is clamped to 1 (spec.md §4.I, "k must be positive").
func NewAsyncSemaphore(n int) *AsyncSemaphore {
	if n < 1 {
		n = 1
	}
	return &AsyncSemaphore{sem: semaphore.NewWeighted(int64(n))}
}

// Permit is a single acquired slot. Release must be called exactly
// once per successful Acquire, on both the success and failure paths
// of whatever work the permit guards (spec.md §4.C).
type Permit struct {
	sem      *semaphore.Weighted
	released atomic.Bool
}

// Acquire blocks until a permit is available or ctx ends.
func (s *AsyncSemaphore) Acquire(ctx context.Context) (*Permit, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Permit{sem: s.sem}, nil
}

// Release returns the permit to the semaphore. Calling Release more
// than once on the same Permit is a no-op — no permit may be released
// twice (spec.md §4.C correctness requirement).
func (p *Permit) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.sem.Release(1)
	}
}
