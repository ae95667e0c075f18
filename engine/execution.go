// Package engine implements the evaluator (spec component 4.F), the
// optimizer (spec.md §4.F "Optimization"), the write coalescer
// (component 4.G), the derived combinators (component 4.I), Config,
// FlowStopError, and the Run/WaitFor entry points (spec.md §6).
package engine

import (
	"context"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
	"github.com/kevwan/flowexec/writer"
)

// Execution is the typed façade over the untyped IR (package ir):
// every ir.Node operates on `any`-typed closures since Go has no sealed
// sum types to parametrize a heterogeneous tree (spec.md §9), so
// Execution[T] recovers static typing at the one layer applications
// actually touch, converting to/from `any` at each combinator boundary.
type Execution[T any] struct {
	node ir.Node
}

// Node exposes the underlying IR node, for callers that need to
// inspect or re-wrap it.
func (e Execution[T]) Node() ir.Node { return e.node }

// fromNode wraps an already-built IR node as an Execution[T]. Callers
// are responsible for T matching what the node actually produces.
func fromNode[T any](node ir.Node) Execution[T] {
	return Execution[T]{node: node}
}

// From lifts a plain value (spec.md §4.I, "from(v) ≡ FutureConst(_ -> v)").
func From[T any](v T) Execution[T] {
	return FromFn(func() (T, error) { return v, nil })
}

// FromFn defers fn as a leaf computation run on the caller's executor.
func FromFn[T any](fn func() (T, error)) Execution[T] {
	return fromNode[T](ir.FutureConst(func() (any, error) { return fn() }))
}

// Failed lifts an already-known error (spec.md §4.I, "failed(e)").
func Failed[T any](err error) Execution[T] {
	return FromFn(func() (T, error) {
		var zero T
		return zero, err
	})
}

// FromTry lifts a (value, error) pair, the Go rendering of
// fromTry(Success|Failure) (spec.md §6).
func FromTry[T any](v T, err error) Execution[T] {
	if err != nil {
		return Failed[T](err)
	}
	return From(v)
}

// FromFuture wraps an already-running CFuture as an Execution (spec.md
// §6). The result is uncancellable from the Execution side since
// FutureConst leaves carry no handler of their own; fut's own
// cancellation, if any, is the caller's to manage directly.
func FromFuture[T any](fut *cfuture.CFuture[T]) Execution[T] {
	return FromFn(func() (T, error) {
		return fut.Block(context.Background())
	})
}

// Map lifts a pure function over e's value (spec.md §4.F, Mapped),
// fusing adjacent Mapped nodes and inlining into a preceding Write
// unconditionally (spec.md §4.F, "load-bearing for planner efficiency"),
// independent of whether global optimization is enabled.
func Map[T, U any](e Execution[T], fn func(T) (U, error)) Execution[U] {
	wrapped := func(v any) (any, error) {
		u, err := fn(v.(T))
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	return fromNode[U](fuseMapped(e.node, wrapped))
}

// Filter keeps e's value only when pred accepts it; a rejected value
// fails the execution with FilterFailedError (spec.md §7 kind 4,
// "Filter failed on: <value>"). Built directly on Map so it benefits
// from the same Mapped-chain fusion rule (spec.md §4.F rule (b)).
func Filter[T any](e Execution[T], pred func(T) bool) Execution[T] {
	return Map(e, func(v T) (T, error) {
		if !pred(v) {
			var zero T
			return zero, FilterFailedError(v)
		}
		return v, nil
	})
}

// FlatMap sequences a dependent continuation (spec.md §4.F, FlatMapped).
func FlatMap[T, U any](e Execution[T], fn func(T) (Execution[U], error)) Execution[U] {
	wrapped := func(v any) (ir.Node, error) {
		next, err := fn(v.(T))
		if err != nil {
			return nil, err
		}
		return next.node, nil
	}
	return fromNode[U](ir.FlatMapped(e.node, wrapped))
}

// Zip composes a and b in parallel, merging adjacent Write nodes into a
// single bundle unconditionally (spec.md §4.F), and is otherwise
// fail-fast (spec.md §4.B, 4.I).
func Zip[A, B any](a Execution[A], b Execution[B]) Execution[cfuture.Pair[A, B]] {
	merged := mergeAdjacentWrites(a.node, b.node)
	converted := ir.Mapped(merged, func(v any) (any, error) {
		p := v.(cfuture.Pair[any, any])
		first, _ := p.First.(A)
		second, _ := p.Second.(B)
		return cfuture.Pair[A, B]{First: first, Second: second}, nil
	})
	return fromNode[cfuture.Pair[A, B]](converted)
}

// Triple is the reshaped result of zipping three executions (spec.md
// §4.I, "zip(a, b, …) — nested pairwise zips with tuple reshape").
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Zip3 nests two pairwise Zip calls and reshapes the result into a flat
// Triple, matching concrete scenario 2 in spec.md §8.
func Zip3[A, B, C any](a Execution[A], b Execution[B], c Execution[C]) Execution[Triple[A, B, C]] {
	nested := Zip(Zip(a, b), c)
	return Map(nested, func(p cfuture.Pair[cfuture.Pair[A, B], C]) (Triple[A, B, C], error) {
		return Triple[A, B, C]{First: p.First.First, Second: p.First.Second, Third: p.Second}, nil
	})
}

// RecoverWith attaches a partial recovery handler (spec.md §4.F,
// RecoverWith). The flow-stop marker is never offered to handler —
// that exclusion happens once, in the evaluator (evalRecoverWith),
// regardless of which combinator built the node.
func RecoverWith[T any](e Execution[T], handler func(error) (Execution[T], bool)) Execution[T] {
	wrapped := func(err error) (ir.Node, bool) {
		next, ok := handler(err)
		if !ok {
			return nil, false
		}
		return next.node, true
	}
	return fromNode[T](ir.RecoverWith(e.node, wrapped))
}

// Try is the Go rendering of LiftToTry's Success/Failure wrapper
// (spec.md §4.I).
type Try[T any] struct {
	Value T
	Err   error
}

// LiftToTry converts failures into values rather than propagating them
// (spec.md §4.I, "map(Success).recoverWith({any -> from(Failure(_))})").
// A FlowStopError still propagates unconverted, since RecoverWith never
// intercepts it (invariant I6).
func LiftToTry[T any](e Execution[T]) Execution[Try[T]] {
	mapped := Map(e, func(v T) (Try[T], error) { return Try[T]{Value: v}, nil })
	return RecoverWith(mapped, func(err error) (Execution[Try[T]], bool) {
		return From(Try[T]{Err: err}), true
	})
}

// OnComplete attaches a fire-and-forget completion hook (spec.md §4.F,
// OnComplete); side runs exactly once, after e resolves, and cannot
// alter e's outcome.
func OnComplete[T any](e Execution[T], side func(v T, err error)) Execution[T] {
	wrapped := func(val any, err error) {
		var typed T
		if err == nil {
			typed, _ = val.(T)
		}
		side(typed, err)
	}
	return fromNode[T](ir.OnComplete(e.node, wrapped))
}

// GetCounters surfaces the counters accumulated so far alongside e's
// value (spec.md §4.F, GetCounters).
func GetCounters[T any](e Execution[T]) Execution[cfuture.Pair[T, counters.Counters]] {
	converted := ir.Mapped(ir.GetCounters(e.node), func(v any) (any, error) {
		p := v.(cfuture.Pair[any, any])
		first, _ := p.First.(T)
		second, _ := p.Second.(counters.Counters)
		return cfuture.Pair[T, counters.Counters]{First: first, Second: second}, nil
	})
	return fromNode[cfuture.Pair[T, counters.Counters]](converted)
}

// ResetCounters discards the counters accumulated by e (spec.md §4.F,
// ResetCounters; invariant I3).
func ResetCounters[T any](e Execution[T]) Execution[T] {
	return fromNode[T](ir.ResetCounters(e.node))
}

// WithConfig rewrites the effective Config for e (spec.md §4.F,
// TransformedConfig).
func WithConfig[T any](e Execution[T], fn func(*Config) *Config) Execution[T] {
	wrapped := func(c any) any { return fn(c.(*Config)) }
	return fromNode[T](ir.TransformedConfig(e.node, wrapped))
}

// WithCachedFile stages path via a Config rewrite visible to e. Actual
// file-cache distribution to worker processes is the out-of-scope
// external planner's job (spec.md §1); this combinator only threads the
// cached-path token through Config the same way every other planner
// field is carried opaquely.
func WithCachedFile[T any](e Execution[T], path string, fn func(cachedPath string, conf *Config) *Config) Execution[T] {
	return WithConfig(e, func(conf *Config) *Config { return fn(path, conf) })
}

// WithNewCache isolates e from the enclosing evaluator cache (spec.md
// §4.F, WithNewCache; scenario 6 in §8).
func WithNewCache[T any](e Execution[T]) Execution[T] {
	return fromNode[T](ir.WithNewCache(e.node))
}

// WithID derives a fresh token and builds fn(id) under a Config
// carrying it (spec.md §4.F, UniqueId).
func WithID[T any](fn func(id string) Execution[T]) Execution[T] {
	wrapped := func(uid string) ir.Node { return fn(uid).node }
	return fromNode[T](ir.UniqueID(wrapped))
}

// Reader yields the (Config, Mode) in effect at this point in the tree
// (spec.md §3, Reader).
func Reader() Execution[cfuture.Pair[*Config, Mode]] {
	converted := ir.Mapped(ir.ReaderNode(), func(v any) (any, error) {
		p := v.(cfuture.Pair[any, any])
		conf, _ := p.First.(*Config)
		mode, _ := p.Second.(Mode)
		return cfuture.Pair[*Config, Mode]{First: conf, Second: mode}, nil
	})
	return fromNode[cfuture.Pair[*Config, Mode]](converted)
}

// Write bundles one or more descriptors with a function producing the
// user-visible value once the bundle's submission resolves (spec.md
// §3, Write; §4.G).
func Write[T any](head ir.Descriptor, tail []ir.Descriptor, present func(conf *Config, mode Mode, w writer.Writer, exec cfuture.Executor) (T, error)) Execution[T] {
	wrapped := func(conf, mode, writerHandle, exec any) (any, error) {
		return present(conf.(*Config), mode.(Mode), writerHandle.(writer.Writer), exec.(cfuture.Executor))
	}
	return fromNode[T](ir.Write(head, tail, wrapped))
}

// ForceToDisk requests pipe be materialized; its value is whatever the
// writer's GetForced returns for pipe once the submission resolves
// (spec.md §6, forceToDisk).
func ForceToDisk(pipe any) Execution[any] {
	return Write[any](ir.ForceDescriptor(pipe), nil, func(conf *Config, mode Mode, w writer.Writer, exec cfuture.Executor) (any, error) {
		return w.GetForced(context.Background(), conf, pipe).Block(context.Background())
	})
}

// ToIterable requests pipe be materialized as an iterable (spec.md §6,
// toIterable).
func ToIterable(pipe any) Execution[any] {
	return Write[any](ir.ToIterableDescriptor(pipe), nil, func(conf *Config, mode Mode, w writer.Writer, exec cfuture.Executor) (any, error) {
		return w.GetIterable(context.Background(), conf, pipe).Block(context.Background())
	})
}

// WriteTo requests pipe be written to sink (spec.md §6, write).
func WriteTo(pipe, sink any) Execution[struct{}] {
	return Write[struct{}](ir.SimpleWriteDescriptor(pipe, sink), nil, func(*Config, Mode, writer.Writer, cfuture.Executor) (struct{}, error) {
		return struct{}{}, nil
	})
}
