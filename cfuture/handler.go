package cfuture

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"
)

// StopFunc performs the actual best-effort cancellation work for one
// CancellationHandler. It must never panic; it may block up to the
// deadline carried by ctx.
type StopFunc func(ctx context.Context) error

// CancellationHandler is a composable, idempotent stop signal (spec.md
// §4.B). Calling Stop on an already-stopped handler is a no-op that
// returns the first call's result; Stop never panics.
type CancellationHandler struct {
	once   sync.Once
	stopFn StopFunc
	result atomic.Error
}

// NewCancellationHandler wraps fn as a CancellationHandler.
func NewCancellationHandler(fn StopFunc) *CancellationHandler {
	return &CancellationHandler{stopFn: fn}
}

// EmptyHandler returns a handler whose Stop is a pure no-op, used for
// FutureConst results and other work that cannot be cancelled (the
// uncancellable constructor in spec.md §4.B).
func EmptyHandler() *CancellationHandler {
	return NewCancellationHandler(func(context.Context) error { return nil })
}

// Stop runs the handler's stop function at most once. Subsequent calls,
// concurrent or sequential, return the same result without re-running
// the underlying work.
func (h *CancellationHandler) Stop(ctx context.Context) error {
	h.once.Do(func() {
		if h.stopFn == nil {
			return
		}
		h.result.Store(safeStop(h.stopFn, ctx))
	})
	return h.result.Load()
}

func safeStop(fn StopFunc, ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// stop() must never throw, per spec.md §4.B; a panicking
			// stop function is a logic bug in the collaborator, not a
			// cancellable failure, so it is swallowed here.
			err = nil
		}
	}()
	return fn(ctx)
}

// StopWithDeadline runs h.Stop bounded by the given grace period,
// matching the 30s budget run uses on the root handler after a failure
// (spec.md §3, "Lifecycle").
func (h *CancellationHandler) StopWithDeadline(parent context.Context, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, grace)
	defer cancel()
	return h.Stop(ctx)
}

// Compose returns a handler that stops both a and b in parallel,
// aggregating whichever of their stop errors are non-nil (spec.md
// §4.B, "compose(h1, h2)").
func Compose(a, b *CancellationHandler) *CancellationHandler {
	return NewCancellationHandler(func(ctx context.Context) error {
		var errA, errB error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			errA = a.Stop(ctx)
		}()
		go func() {
			defer wg.Done()
			errB = b.Stop(ctx)
		}()
		wg.Wait()

		var merr *multierror.Error
		merr = multierror.Append(merr, errA)
		merr = multierror.Append(merr, errB)
		return merr.ErrorOrNil()
	})
}

// FromFuture derives a handler from a future that resolves to a handler
// only known after an async decision (spec.md §4.B, "fromFuture(fut)").
// If the future fails or yields no handler, stopping is a no-op.
func FromFuture(fut *CFuture[*CancellationHandler]) *CancellationHandler {
	return NewCancellationHandler(func(ctx context.Context) error {
		h, err := fut.Block(ctx)
		if err != nil || h == nil {
			return nil
		}
		return h.Stop(ctx)
	})
}
