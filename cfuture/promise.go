package cfuture

// Promise is the write side of a CFuture created ahead of the work
// that will resolve it — the write coalescer's cache inserts a pending
// CFuture under lock (cache.GetOrLock) and hands the matching Promise
// to whichever caller ends up owning the submission, so it alone can
// resolve every caller's shared future once the submission completes
// (spec.md §4.D/4.G, "resolve each owned promise with the same
// result").
type Promise[T any] struct {
	future *CFuture[T]
}

// NewPromise returns a Promise paired with its not-yet-resolved
// CFuture. The CFuture is what GetOrLock stores and what every caller
// (owner or not) blocks on; only the Promise can complete it.
func NewPromise[T any]() (*Promise[T], *CFuture[T]) {
	f := newPending[T]()
	return &Promise[T]{future: f}, f
}

// Resolve completes the promise's future. Resolving twice is a no-op,
// matching CFuture.complete's at-most-once semantics.
func (p *Promise[T]) Resolve(v T, err error) {
	p.future.complete(v, err)
}

// ResolveWithHandler attaches a cancellation handler before resolving,
// for the case where the owning caller only learns the handler (e.g.
// the submission's stop function) once the underlying work starts.
func (p *Promise[T]) ResolveWithHandler(v T, err error, h *CancellationHandler) {
	p.future.handler = h
	p.future.complete(v, err)
}
