package engine

import (
	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/ir"
)

// optimize rewrites node once before it is evaluated, when
// conf.ExecutionOptimization() is enabled (spec.md §4.F,
// "Optimization"). It is called at Run's entry point and again at
// every point the IR only becomes known at runtime — a FlatMapped
// continuation's result, a RecoverWith handler's replacement, a
// UniqueId body — since those sub-trees cannot be rewritten ahead of
// time. Rewriting is memoized by node identity within one optimize
// call so a shared sub-DAG is rewritten once, mirroring ir.Equal's own
// reference-pair memoization.
func optimize(node ir.Node, conf *Config) ir.Node {
	if node == nil || !conf.ExecutionOptimization() {
		return node
	}
	return optimizeNode(node, make(map[ir.Node]ir.Node))
}

func optimizeNode(node ir.Node, memo map[ir.Node]ir.Node) ir.Node {
	if cached, ok := memo[node]; ok {
		return cached
	}

	result := rewriteNode(node, memo)
	memo[node] = result
	return result
}

func rewriteNode(node ir.Node, memo map[ir.Node]ir.Node) ir.Node {
	if prev, fn, ok := ir.AsMapped(node); ok {
		return fuseMapped(optimizeNode(prev, memo), fn)
	}
	if prev, fn, ok := ir.AsFlatMapped(node); ok {
		return ir.FlatMapped(optimizeNode(prev, memo), fn)
	}
	if a, b, ok := ir.AsZipped(node); ok {
		return mergeAdjacentWrites(optimizeNode(a, memo), optimizeNode(b, memo))
	}
	if prev, side, ok := ir.AsOnComplete(node); ok {
		return ir.OnComplete(optimizeNode(prev, memo), side)
	}
	if prev, handler, ok := ir.AsRecoverWith(node); ok {
		return ir.RecoverWith(optimizeNode(prev, memo), handler)
	}
	if prev, ok := ir.AsGetCounters(node); ok {
		return ir.GetCounters(optimizeNode(prev, memo))
	}
	if prev, ok := ir.AsResetCounters(node); ok {
		return ir.ResetCounters(optimizeNode(prev, memo))
	}
	if prev, fn, ok := ir.AsTransformedConfig(node); ok {
		return ir.TransformedConfig(optimizeNode(prev, memo), fn)
	}
	if prev, ok := ir.AsWithNewCache(node); ok {
		return ir.WithNewCache(optimizeNode(prev, memo))
	}
	// FutureConst, FlowDef, UniqueId, Reader, and Write have no nested
	// node known ahead of evaluation time (UniqueId's body depends on a
	// token generated at eval time; Write is already a leaf bundle), so
	// they pass through unchanged.
	return node
}

// fuseMapped implements rule (b) — fusing adjacent Mapped nodes — and
// rule (c) — inlining a Mapped applied directly after a Write — which
// apply unconditionally from the Map smart constructor (execution.go)
// even when global optimization is disabled, since they are load-
// bearing for planner efficiency (spec.md §4.F).
func fuseMapped(prev ir.Node, fn func(any) (any, error)) ir.Node {
	if pp, pf, ok := ir.AsMapped(prev); ok {
		return ir.Mapped(pp, composeMapFns(pf, fn))
	}
	if descs, present, ok := ir.AsWrite(prev); ok {
		return rebuildWrite(descs, inlineMapIntoPresent(present, fn))
	}
	return ir.Mapped(prev, fn)
}

func composeMapFns(first func(any) (any, error), second func(any) (any, error)) func(any) (any, error) {
	return func(v any) (any, error) {
		mid, err := first(v)
		if err != nil {
			return nil, err
		}
		return second(mid)
	}
}

func inlineMapIntoPresent(present ir.PresentFunc, fn func(any) (any, error)) ir.PresentFunc {
	return func(conf, mode, writerHandle, exec any) (any, error) {
		v, err := present(conf, mode, writerHandle, exec)
		if err != nil {
			return nil, err
		}
		return fn(v)
	}
}

// mergeAdjacentWrites implements rule (a): when both sides of a Zipped
// are Write nodes, merge them into a single Write carrying both
// descriptor sets and a present function producing the pair of
// results, rather than a generic Zipped wrapping two separate
// submissions (spec.md §4.F). It applies unconditionally from the Zip
// smart constructor (execution.go) as well as from the optimizer.
func mergeAdjacentWrites(a, b ir.Node) ir.Node {
	descA, presentA, okA := ir.AsWrite(a)
	descB, presentB, okB := ir.AsWrite(b)
	if !okA || !okB {
		return ir.Zipped(a, b)
	}
	merged := make([]ir.Descriptor, 0, len(descA)+len(descB))
	merged = append(merged, descA...)
	merged = append(merged, descB...)

	combined := func(conf, mode, writerHandle, exec any) (any, error) {
		va, err := presentA(conf, mode, writerHandle, exec)
		if err != nil {
			return nil, err
		}
		vb, err := presentB(conf, mode, writerHandle, exec)
		if err != nil {
			return nil, err
		}
		return cfuture.Pair[any, any]{First: va, Second: vb}, nil
	}
	return rebuildWrite(merged, combined)
}

func rebuildWrite(descs []ir.Descriptor, present ir.PresentFunc) ir.Node {
	return ir.Write(descs[0], descs[1:], present)
}
