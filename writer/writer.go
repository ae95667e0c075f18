// Package writer defines the external collaborator contract (spec
// component 4.H) that the engine submits bundled writes against, plus
// an in-memory reference adapter, Planner, standing in for the real
// flow-planner / cluster-submitter the spec places out of scope.
package writer

import (
	"context"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
)

// Result is what one Execute call resolves to: a fresh submission id
// plus whatever counters that submission produced, ready to be wrapped
// as counters.OfSubmission by the caller.
type Result struct {
	SubmissionID uint64
	Counters     counters.Counters
}

// Writer is the opaque external collaborator (spec.md §4.H). conf is
// passed through opaquely — the engine's Config satisfies whatever
// shape a concrete Writer expects, but writer itself imports neither
// engine nor ir's concrete config type.
type Writer interface {
	// Start is called exactly once before any Execute.
	Start()

	// Finished is called exactly once after the last Execute; it must
	// release resources and must never panic.
	Finished() error

	// Execute atomically plans and runs one bundle of write
	// descriptors. An empty slice is legal and must still yield a
	// fresh submission id with empty counters.
	Execute(ctx context.Context, conf any, writes []ir.Descriptor) *cfuture.CFuture[Result]

	// GetForced returns the realized value behind pipe. Valid only
	// after the Execute that wrote pipe has resolved successfully.
	GetForced(ctx context.Context, conf any, pipe any) *cfuture.CFuture[any]

	// GetIterable returns an iterable view of pipe. Valid only after
	// the Execute that wrote pipe has resolved successfully.
	GetIterable(ctx context.Context, conf any, pipe any) *cfuture.CFuture[any]
}

// FlowDefWriter is the specialization that additionally honors raw
// flow-def submissions (consumed by ir.FlowDef nodes). Not every Writer
// need implement it; the evaluator reports ErrWriterShapeMismatch when
// it doesn't (spec.md §7 kind 3).
type FlowDefWriter interface {
	Writer

	// ExecuteFlowDef submits a planner description derived from conf
	// by build, independent of the descriptor-bundle path.
	ExecuteFlowDef(ctx context.Context, conf any, build func(conf any) any) *cfuture.CFuture[Result]
}
