package cfuture

import "context"

// Finally runs side after f resolves, success or failure, and yields
// f's original result unchanged once side returns — the shape
// ir.OnComplete needs (spec.md §4.F): "the returned future does not
// complete until side returns." A panic inside side is recovered and
// swallowed rather than propagated, since side is a fire-and-forget
// diagnostic hook whose failures must not alter the outer outcome;
// callers that need to observe such a panic should have side report it
// to their own logger before returning.
func Finally[T any](f *CFuture[T], side func(v T, err error)) *CFuture[T] {
	out := newPending[T]()
	out.handler = f.Handler()
	go func() {
		v, err := f.Block(context.Background())
		runSideRecovering(side, v, err)
		out.complete(v, err)
	}()
	return out
}

func runSideRecovering[T any](side func(v T, err error), v T, err error) {
	defer func() {
		_ = recover()
	}()
	side(v, err)
}
