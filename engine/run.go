package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/ir"
	"github.com/kevwan/flowexec/writer"
)

// cancellationGrace bounds how long Run waits for the cancellation
// chain before signaling writer.Finished on a failed run (spec.md §3,
// "Lifecycle"; §5, "30-second budget").
const cancellationGrace = 30 * time.Second

// ErrUnexpectedResultType is returned when the root Execution's value
// does not assert to T, which would only happen if a combinator
// somewhere built a mismatched node by hand rather than through the
// typed Execution API.
var ErrUnexpectedResultType = errors.New("engine: root execution produced an unexpected value type")

// Run is the primary entry point (spec.md §6, "run(exec, config, mode)
// -> future<value>"): optimizes e's tree, creates a fresh evaluator
// cache, starts w, interprets the tree, and signals w.Finished once the
// result settles — after a bounded cancellation wait on failure,
// immediately on success.
func Run[T any](exec cfuture.Executor, w writer.Writer, conf *Config, mode Mode, e Execution[T]) *cfuture.CFuture[T] {
	if conf == nil {
		conf = NewConfig()
	}
	logger := conf.logger()
	rs := newRunState(w, exec, logger)

	root := optimize(e.node, conf)
	logger.Info("run starting", zap.Int("nodeCount", countNodes(root)))

	w.Start()
	rootFuture := eval(rs, root, conf, mode)

	promise, out := cfuture.NewPromise[T]()
	exec.Go(func() {
		result, err := rootFuture.Block(context.Background())
		if err != nil && !IsFlowStop(err) {
			if stopErr := rootFuture.Handler().StopWithDeadline(context.Background(), cancellationGrace); stopErr != nil {
				logger.Warn("cancellation chain reported errors", zap.Error(stopErr))
			}
		}
		if finErr := w.Finished(); finErr != nil {
			logger.Warn("writer finished with error", zap.Error(finErr))
		}

		if err != nil {
			logger.Info("run finished", zap.Error(err))
			var zero T
			promise.ResolveWithHandler(zero, err, rootFuture.Handler())
			return
		}

		typed, ok := result.value.(T)
		if !ok {
			var zero T
			if result.value != nil {
				promise.ResolveWithHandler(zero, ErrUnexpectedResultType, rootFuture.Handler())
				return
			}
			typed = zero
		}
		logger.Info("run finished")
		promise.ResolveWithHandler(typed, nil, rootFuture.Handler())
	})
	return out
}

// WaitFor is the blocking variant, explicitly discouraged (spec.md §6,
// "waitFor(exec, config, mode) -> result<value>").
func WaitFor[T any](ctx context.Context, exec cfuture.Executor, w writer.Writer, conf *Config, mode Mode, e Execution[T]) (T, error) {
	return Run(exec, w, conf, mode, e).Block(ctx)
}

// countNodes reports how many distinct node instances root's tree
// contains, memoized by pointer identity so shared sub-DAGs (notably
// under Zipped) are counted once — purely diagnostic, logged at run
// start (SPEC_FULL.md §2.1).
func countNodes(root ir.Node) int {
	seen := make(map[ir.Node]bool)
	var walk func(ir.Node)
	walk = func(n ir.Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if prev, _, ok := ir.AsMapped(n); ok {
			walk(prev)
			return
		}
		if prev, _, ok := ir.AsFlatMapped(n); ok {
			walk(prev)
			return
		}
		if a, b, ok := ir.AsZipped(n); ok {
			walk(a)
			walk(b)
			return
		}
		if prev, _, ok := ir.AsOnComplete(n); ok {
			walk(prev)
			return
		}
		if prev, _, ok := ir.AsRecoverWith(n); ok {
			walk(prev)
			return
		}
		if prev, ok := ir.AsGetCounters(n); ok {
			walk(prev)
			return
		}
		if prev, ok := ir.AsResetCounters(n); ok {
			walk(prev)
			return
		}
		if prev, _, ok := ir.AsTransformedConfig(n); ok {
			walk(prev)
			return
		}
		if prev, ok := ir.AsWithNewCache(n); ok {
			walk(prev)
			return
		}
	}
	walk(root)
	return len(seen)
}
