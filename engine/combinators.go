package engine

import (
	"context"

	"github.com/kevwan/flowexec/cfuture"
)

// Sequence zips every element of xs together, tail-recursive right-to-
// left, then carries the accumulated prefix back out (spec.md §4.I,
// "sequence"). Because Zip's underlying Zipped node evaluates both
// sides as soon as eval() builds their futures — without blocking the
// goroutine that builds them — every element's leaf closure starts
// running before Sequence's caller ever blocks on the result, so all
// elements submit in parallel regardless of the right-to-left fold
// order used to build the tree.
func Sequence[T any](xs []Execution[T]) Execution[[]T] {
	if len(xs) == 0 {
		return From([]T{})
	}

	acc := Map(xs[len(xs)-1], func(v T) ([]T, error) { return []T{v}, nil })
	for i := len(xs) - 2; i >= 0; i-- {
		acc = Map(Zip(xs[i], acc), func(p cfuture.Pair[T, []T]) ([]T, error) {
			return append([]T{p.First}, p.Second...), nil
		})
	}
	return acc
}

// WithParallelism bounds xs's fan-out to k concurrent in-flight
// elements (spec.md §4.I, "withParallelism"). Each element acquires a
// permit before running and releases it on completion, success or
// failure, via OnComplete — which never alters the guarded element's
// own outcome, so the original result (or failure) re-surfaces
// unchanged once the permit is released. k < 1 is clamped to 1 by
// AsyncSemaphore itself.
func WithParallelism[T any](xs []Execution[T], k int) Execution[[]T] {
	sem := cfuture.NewAsyncSemaphore(k)
	gated := make([]Execution[T], len(xs))
	for i, x := range xs {
		x := x
		gated[i] = FlatMap(acquirePermit(sem), func(permit *cfuture.Permit) (Execution[T], error) {
			return OnComplete(x, func(T, error) { permit.Release() }), nil
		})
	}
	return Sequence(gated)
}

func acquirePermit(sem *cfuture.AsyncSemaphore) Execution[*cfuture.Permit] {
	return FromFn(func() (*cfuture.Permit, error) {
		return sem.Acquire(context.Background())
	})
}
