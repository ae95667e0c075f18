package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
)

func evalMapped(rs *runState, prev ir.Node, fn func(any) (any, error), conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	prevFuture := eval(rs, prev, conf, mode)
	return cfuture.Map(prevFuture, func(r execResult) (execResult, error) {
		v, err := fn(r.value)
		if err != nil {
			return execResult{}, err
		}
		return execResult{value: v, cs: r.cs}, nil
	})
}

func evalFlatMapped(rs *runState, prev ir.Node, fn func(any) (ir.Node, error), conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	prevFuture := eval(rs, prev, conf, mode)
	return cfuture.FlatMap(prevFuture, func(r execResult) (*cfuture.CFuture[execResult], error) {
		nextNode, err := fn(r.value)
		if err != nil {
			return nil, err
		}
		nextNode = optimize(nextNode, conf)
		nextFuture := eval(rs, nextNode, conf, mode)
		return cfuture.Map(nextFuture, func(inner execResult) (execResult, error) {
			return execResult{value: inner.value, cs: r.cs.Merge(inner.cs)}, nil
		}), nil
	})
}

func evalZipped(rs *runState, a, b ir.Node, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	fa := eval(rs, a, conf, mode)
	fb := eval(rs, b, conf, mode)
	zipped := cfuture.FailFastZip(fa, fb)
	return cfuture.Map(zipped, func(p cfuture.Pair[execResult, execResult]) (execResult, error) {
		return execResult{
			value: cfuture.Pair[any, any]{First: p.First.value, Second: p.Second.value},
			cs:    p.First.cs.Merge(p.Second.cs),
		}, nil
	})
}

// evalOnComplete is never memoized (spec.md §4.F): side runs exactly
// once per evaluation of this node, whether or not that node appears
// shared elsewhere, because OnComplete's whole purpose is a diagnostic
// hook tied to this particular evaluation attempt.
func evalOnComplete(rs *runState, prev ir.Node, side func(val any, err error), conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	prevFuture := eval(rs, prev, conf, mode)
	logger := rs.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return cfuture.Finally(prevFuture, func(r execResult, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("onComplete side effect panicked",
					zap.Any("recovered", rec),
					zap.Uint64("nodeHash", prev.Hash()))
			}
		}()
		side(r.value, err)
	})
}

func evalRecoverWith(rs *runState, prev ir.Node, handler func(error) (ir.Node, bool), conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	prevFuture := eval(rs, prev, conf, mode)
	promise, out := cfuture.NewPromise[execResult]()
	rs.exec.Go(func() {
		v, err := prevFuture.Block(context.Background())
		if err == nil {
			promise.ResolveWithHandler(v, nil, prevFuture.Handler())
			return
		}
		if IsFlowStop(err) {
			// I6: a RecoverWith never swallows the flow-stop signal.
			promise.ResolveWithHandler(execResult{}, err, prevFuture.Handler())
			return
		}

		replacement, handled := safeHandle(handler, err)
		if !handled {
			promise.ResolveWithHandler(execResult{}, err, prevFuture.Handler())
			return
		}

		replacement = optimize(replacement, conf)
		nextFuture := eval(rs, replacement, conf, mode)
		nv, nerr := nextFuture.Block(context.Background())
		promise.ResolveWithHandler(nv, nerr, cfuture.Compose(prevFuture.Handler(), nextFuture.Handler()))
	})
	return out
}

func safeHandle(handler func(error) (ir.Node, bool), err error) (replacement ir.Node, handled bool) {
	defer func() {
		if recover() != nil {
			replacement, handled = nil, false
		}
	}()
	return handler(err)
}

func evalGetCounters(rs *runState, prev ir.Node, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	prevFuture := eval(rs, prev, conf, mode)
	return cfuture.Map(prevFuture, func(r execResult) (execResult, error) {
		flat := r.cs.Flatten()
		return execResult{value: cfuture.Pair[any, any]{First: r.value, Second: flat}, cs: r.cs}, nil
	})
}

func evalResetCounters(rs *runState, prev ir.Node, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	prevFuture := eval(rs, prev, conf, mode)
	return cfuture.Map(prevFuture, func(r execResult) (execResult, error) {
		return execResult{value: r.value, cs: counters.Reset()}, nil
	})
}

// evalTransformedConfig evaluates prev under fn(conf) instead of conf;
// the outer (conf, node) cache key was already checked by eval before
// reaching here, and the transformed config becomes the key for prev's
// own memoization, so the same sub-tree under two different configs is
// never conflated (spec.md §4.F).
func evalTransformedConfig(rs *runState, prev ir.Node, fn func(any) any, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	newConf, ok := fn(conf).(*Config)
	if !ok {
		return cfuture.Failed[execResult](ErrInvalidConfigTransform)
	}
	return eval(rs, prev, newConf, mode)
}

func evalUniqueID(rs *runState, fn func(uid string) ir.Node, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	return cfuture.Run(rs.exec, func() (execResult, error) {
		token, newConf := conf.EnsureUniqueID()
		innerNode := optimize(fn(token), newConf)
		nextFuture := eval(rs, innerNode, newConf, mode)
		v, err := nextFuture.Block(context.Background())
		return v, err
	})
}
