package writer

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
)

// Produce computes the materialized value and any counters a
// descriptor's pipe yields once submitted. Planner calls it once for
// every descriptor naming that pipe in every Execute call; it does not
// deduplicate across calls (see Execute).
type Produce func() (value any, cs counters.Counters, err error)

// Planner is an in-memory reference Writer (spec.md §4.H), used by
// tests in place of the real flow-planner / cluster-submitter. It records every bundle it executes so tests can
// assert the coalescing laws (G1: exactly-once per descriptor, G2:
// disjoint bundles may run concurrently).
type Planner struct {
	mu           sync.Mutex
	started      bool
	finished     bool
	nextID       atomic.Uint64
	producers    map[any]Produce
	materialized map[any]any
	bundles      [][]ir.Descriptor
	flowDefFn    func(conf any, built any) (any, counters.Counters, error)
	finishedOnce sync.Once
	finishedSig  chan struct{}
}

// NewPlanner returns an empty Planner.
func NewPlanner() *Planner {
	return &Planner{
		producers:    make(map[any]Produce),
		materialized: make(map[any]any),
		finishedSig:  make(chan struct{}),
	}
}

// Done returns a channel closed once Finished has run, for callers that
// want to select on planner completion rather than poll IsFinished.
func (p *Planner) Done() <-chan struct{} {
	return p.finishedSig
}

// RegisterProducer installs the value/counters a pipe token resolves
// to once written. Pipes with no registered producer resolve to nil
// with empty counters — a valid default for descriptors whose value
// the caller never inspects (e.g. a bare Force).
func (p *Planner) RegisterProducer(pipe any, produce Produce) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.producers[pipe] = produce
}

// WithFlowDef installs the hook ExecuteFlowDef dispatches to, making
// this Planner satisfy FlowDefWriter.
func (p *Planner) WithFlowDef(fn func(conf any, built any) (any, counters.Counters, error)) *Planner {
	p.flowDefFn = fn
	return p
}

// Start implements Writer.
func (p *Planner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
}

// Finished implements Writer.
func (p *Planner) Finished() error {
	p.mu.Lock()
	p.finished = true
	p.mu.Unlock()
	p.finishedOnce.Do(func() { close(p.finishedSig) })
	return nil
}

// Execute implements Writer. It is safe to call concurrently with
// disjoint descriptor sets; overlapping sets are the write coalescer's
// responsibility to avoid via getOrLock (spec.md §4.G), not Planner's.
func (p *Planner) Execute(ctx context.Context, conf any, writes []ir.Descriptor) *cfuture.CFuture[Result] {
	return cfuture.Run(cfuture.GoExecutor{}, func() (Result, error) {
		merged := counters.Empty()

		p.mu.Lock()
		p.bundles = append(p.bundles, append([]ir.Descriptor(nil), writes...))
		p.mu.Unlock()

		for _, d := range writes {
			value, cs, err := p.resolve(d)
			if err != nil {
				return Result{}, err
			}
			p.mu.Lock()
			p.materialized[d.Pipe()] = value
			p.mu.Unlock()
			merged = merged.Merge(cs)
		}

		id := p.nextID.Inc()
		return Result{SubmissionID: id, Counters: merged}, nil
	})
}

func (p *Planner) resolve(d ir.Descriptor) (any, counters.Counters, error) {
	p.mu.Lock()
	produce, ok := p.producers[d.Pipe()]
	p.mu.Unlock()
	if !ok {
		return nil, counters.Empty(), nil
	}
	return produce()
}

// ExecuteFlowDef implements FlowDefWriter when WithFlowDef installed a
// hook; otherwise it fails every submission, matching a Writer that
// genuinely does not support flow-def submissions.
func (p *Planner) ExecuteFlowDef(ctx context.Context, conf any, build func(conf any) any) *cfuture.CFuture[Result] {
	return cfuture.Run(cfuture.GoExecutor{}, func() (Result, error) {
		if p.flowDefFn == nil {
			return Result{}, ErrNoFlowDefSupport
		}
		_, cs, err := p.flowDefFn(conf, build(conf))
		if err != nil {
			return Result{}, err
		}
		return Result{SubmissionID: p.nextID.Inc(), Counters: cs}, nil
	})
}

// GetForced implements Writer.
func (p *Planner) GetForced(ctx context.Context, conf any, pipe any) *cfuture.CFuture[any] {
	return p.lookup(pipe)
}

// GetIterable implements Writer.
func (p *Planner) GetIterable(ctx context.Context, conf any, pipe any) *cfuture.CFuture[any] {
	return p.lookup(pipe)
}

func (p *Planner) lookup(pipe any) *cfuture.CFuture[any] {
	p.mu.Lock()
	v, ok := p.materialized[pipe]
	p.mu.Unlock()
	if !ok {
		return cfuture.Failed[any](ErrPipeNotWritten)
	}
	return cfuture.Successful(v)
}

// Bundles returns every descriptor slice passed to Execute, in call
// order, for tests asserting coalescing behavior.
func (p *Planner) Bundles() [][]ir.Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]ir.Descriptor, len(p.bundles))
	copy(out, p.bundles)
	return out
}

// ExecuteCount is the number of Execute calls observed so far.
func (p *Planner) ExecuteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bundles)
}

// Started reports whether Start has been called.
func (p *Planner) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// IsFinished reports whether Finished has been called.
func (p *Planner) IsFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}
