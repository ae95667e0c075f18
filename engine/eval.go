package engine

import (
	"context"
	"fmt"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
	"github.com/kevwan/flowexec/writer"
)

// eval is the trampolined interpreter's entry point (spec.md §4.F):
// every node kind except FutureConst, OnComplete, and Write memoizes
// through rs.execCache keyed by (conf, node) (spec.md §4.F, "every
// variant except..."). Deep FlatMapped/Mapped chains do not consume
// native call stack because each continuation in cfuture.Map/FlatMap
// runs its own goroutine rather than a nested call frame — the
// goroutine handoff is this evaluator's trampoline (spec.md §9, "native
// deep-recursion with a cooperative scheduler that naturally bounds
// stack"), chosen over a hand-rolled Step/Call loop since Go's
// dynamically-growing goroutine stacks already give that guarantee.
func eval(rs *runState, node ir.Node, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	switch node.Kind() {
	case ir.KindFutureConst, ir.KindOnComplete, ir.KindWrite:
		return evalUncached(rs, node, conf, mode)
	default:
		key := execKey{conf: conf, node: node}
		promise, placeholder := cfuture.NewPromise[execResult]()
		handlerPromise, handlerFuture := cfuture.NewPromise[*cfuture.CancellationHandler]()
		isNew, future := rs.execCache.GetOrElseInsertWithFeedback(key, func() *cfuture.CFuture[execResult] {
			return placeholder.WithHandler(cfuture.FromFuture(handlerFuture))
		})
		if isNew {
			// Evaluated outside the cache lock: children re-enter eval.
			inner := evalUncached(rs, node, conf, mode)
			handlerPromise.Resolve(inner.Handler(), nil)
			rs.exec.Go(func() {
				v, err := inner.Block(context.Background())
				promise.Resolve(v, err)
			})
		}
		return future
	}
}

func evalUncached(rs *runState, node ir.Node, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	if fn, ok := ir.AsFutureConst(node); ok {
		return evalFutureConst(rs, fn)
	}
	if build, ok := ir.AsFlowDef(node); ok {
		return evalFlowDef(rs, build, conf)
	}
	if prev, fn, ok := ir.AsMapped(node); ok {
		return evalMapped(rs, prev, fn, conf, mode)
	}
	if prev, fn, ok := ir.AsFlatMapped(node); ok {
		return evalFlatMapped(rs, prev, fn, conf, mode)
	}
	if a, b, ok := ir.AsZipped(node); ok {
		return evalZipped(rs, a, b, conf, mode)
	}
	if prev, side, ok := ir.AsOnComplete(node); ok {
		return evalOnComplete(rs, prev, side, conf, mode)
	}
	if prev, handler, ok := ir.AsRecoverWith(node); ok {
		return evalRecoverWith(rs, prev, handler, conf, mode)
	}
	if prev, ok := ir.AsGetCounters(node); ok {
		return evalGetCounters(rs, prev, conf, mode)
	}
	if prev, ok := ir.AsResetCounters(node); ok {
		return evalResetCounters(rs, prev, conf, mode)
	}
	if prev, fn, ok := ir.AsTransformedConfig(node); ok {
		return evalTransformedConfig(rs, prev, fn, conf, mode)
	}
	if prev, ok := ir.AsWithNewCache(node); ok {
		return eval(rs.withNewCache(), prev, conf, mode)
	}
	if fn, ok := ir.AsUniqueID(node); ok {
		return evalUniqueID(rs, fn, conf, mode)
	}
	if ir.IsReader(node) {
		return cfuture.Successful(execResult{
			value: cfuture.Pair[any, any]{First: conf, Second: mode},
			cs:    counters.EmptyBySubmission(),
		})
	}
	if descriptors, present, ok := ir.AsWrite(node); ok {
		return coalesceWrite(rs, descriptors, present, conf, mode)
	}
	panic(fmt.Sprintf("engine: unknown node kind %d", node.Kind()))
}

func evalFutureConst(rs *runState, fn func() (any, error)) *cfuture.CFuture[execResult] {
	raw := cfuture.Run(rs.exec, fn)
	return cfuture.Map(raw, func(v any) (execResult, error) {
		return execResult{value: v, cs: counters.EmptyBySubmission()}, nil
	})
}

func evalFlowDef(rs *runState, build func(conf any) any, conf *Config) *cfuture.CFuture[execResult] {
	fdw, ok := rs.w.(writer.FlowDefWriter)
	if !ok {
		return cfuture.Failed[execResult](wrapWriterShapeMismatch("FlowDef node requires a FlowDefWriter"))
	}
	submission := fdw.ExecuteFlowDef(context.Background(), conf, build)
	return cfuture.Map(submission, func(r writer.Result) (execResult, error) {
		return execResult{value: struct{}{}, cs: counters.OfSubmission(r.SubmissionID, r.Counters)}, nil
	})
}
