package writer

import "github.com/pkg/errors"

// ErrPipeNotWritten is returned by Planner.GetForced/GetIterable for a
// pipe that has not yet been resolved by a prior Execute.
var ErrPipeNotWritten = errors.New("writer: pipe has not been written")

// ErrNoFlowDefSupport is returned by Planner.ExecuteFlowDef when no
// flow-def hook was installed via WithFlowDef, matching a Writer
// that does not honor flow-def submissions (spec.md §7 kind 3).
var ErrNoFlowDefSupport = errors.New("writer: planner does not support flow-def submissions")
