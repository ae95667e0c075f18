package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/ir"
	"github.com/kevwan/flowexec/writer"
)

// ownedWrite pairs a descriptor this evaluation is responsible for
// submitting with the promise its peers are blocked on.
type ownedWrite struct {
	desc    ir.Descriptor
	promise *cfuture.Promise[writer.Result]
}

// coalesceWrite implements the write coalescer (spec.md §4.G) for one
// Write node's bundle of descriptors.
func coalesceWrite(rs *runState, descriptors []ir.Descriptor, present ir.PresentFunc, conf *Config, mode Mode) *cfuture.CFuture[execResult] {
	return cfuture.Run(rs.exec, func() (execResult, error) {
		ctx := context.Background()

		var ours []ownedWrite
		var oursDescs []ir.Descriptor
		var others []*cfuture.CFuture[writer.Result]

		for _, d := range descriptors {
			promise, placeholder := cfuture.NewPromise[writer.Result]()
			key := writeKey{conf: conf, desc: d}
			stored, owned := rs.writeCache.GetOrLock(key, func() *cfuture.CFuture[writer.Result] {
				return placeholder
			})
			if owned {
				ours = append(ours, ownedWrite{desc: d, promise: promise})
				oursDescs = append(oursDescs, d)
			} else {
				others = append(others, stored)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		othersResults := make([]writer.Result, len(others))
		for i, f := range others {
			i, f := i, f
			g.Go(func() error {
				v, err := f.Block(gctx)
				if err != nil {
					return err
				}
				othersResults[i] = v
				return nil
			})
		}

		var oursResult writer.Result
		haveOurs := len(ours) > 0
		if haveOurs {
			g.Go(func() error {
				submission := rs.w.Execute(context.Background(), conf, oursDescs)
				v, err := submission.Block(context.Background())
				for _, o := range ours {
					o.promise.ResolveWithHandler(v, err, submission.Handler())
				}
				if err != nil {
					return err
				}
				oursResult = v
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return execResult{}, err
		}

		merged := counters.EmptyBySubmission()
		for _, r := range othersResults {
			merged = merged.Merge(counters.OfSubmission(r.SubmissionID, r.Counters))
		}
		if haveOurs {
			merged = merged.Merge(counters.OfSubmission(oursResult.SubmissionID, oursResult.Counters))
		}

		value, err := present(conf, mode, rs.w, rs.exec)
		if err != nil {
			return execResult{}, err
		}
		return execResult{value: value, cs: merged}, nil
	})
}
