package engine

import (
	"go.uber.org/zap"

	"github.com/kevwan/flowexec/cache"
	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
	"github.com/kevwan/flowexec/writer"
)

// execResult is what the execution cache memoizes per (config, node):
// a node's value paired with its counters, still keyed by submission
// id so GetCounters can flatten only on request (spec.md §3).
type execResult struct {
	value any
	cs    counters.BySubmission
}

type execKey struct {
	conf *Config
	node ir.Node
}

type writeKey struct {
	conf *Config
	desc ir.Descriptor
}

type execCache = cache.Cache[execKey, *cfuture.CFuture[execResult]]
type writeCache = cache.Cache[writeKey, *cfuture.CFuture[writer.Result]]

// runState is the per-Run mutable context (spec.md §3, "Lifecycle"): a
// fresh pair of caches and a writer, threaded through every eval call.
// WithNewCache replaces execCache alone, sharing w and writeCache so
// the global write-once guarantee (I4) survives isolated sub-trees.
type runState struct {
	execCache  *execCache
	writeCache *writeCache
	w          writer.Writer
	exec       cfuture.Executor
	logger     *zap.Logger
}

func newRunState(w writer.Writer, exec cfuture.Executor, logger *zap.Logger) *runState {
	return &runState{
		execCache:  cache.New[execKey, *cfuture.CFuture[execResult]](),
		writeCache: cache.New[writeKey, *cfuture.CFuture[writer.Result]](),
		w:          w,
		exec:       exec,
		logger:     logger,
	}
}

// withNewCache isolates a sub-tree's memoization from the enclosing
// scope (spec.md §4.D, "cleanCache"), while keeping the writer and
// write cache shared.
func (rs *runState) withNewCache() *runState {
	return &runState{
		execCache:  rs.execCache.Clean(),
		writeCache: rs.writeCache,
		w:          rs.w,
		exec:       rs.exec,
		logger:     rs.logger,
	}
}
