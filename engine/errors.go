package engine

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// FlowStopError is the distinguished cancellation marker (spec.md §6,
// "Error class"): RecoverWith must never intercept it (invariant I6).
// It is a concrete sentinel type dispatched with the standard library's
// errors.As/errors.Is — pkg/errors wraps error context around it, it
// does not replace Go's own error-identity machinery (SPEC_FULL.md
// §2.2).
type FlowStopError struct {
	Cause error
}

func (e *FlowStopError) Error() string {
	return fmt.Sprintf("engine: flow stopped: %v", e.Cause)
}

func (e *FlowStopError) Unwrap() error { return e.Cause }

// NewFlowStopError wraps cause as a FlowStopError.
func NewFlowStopError(cause error) error {
	return &FlowStopError{Cause: cause}
}

// IsFlowStop reports whether err is, or wraps, a FlowStopError.
func IsFlowStop(err error) bool {
	var fs *FlowStopError
	return errors.As(err, &fs)
}

// ErrWriterShapeMismatch is returned, wrapped with call-site context,
// when a FlowDef node is evaluated against a Writer that does not
// implement writer.FlowDefWriter (spec.md §7 kind 3).
var ErrWriterShapeMismatch = errors.New("engine: writer does not support flow-def submissions")

// ErrFilterFailed is the domain error a failing filter predicate
// produces (spec.md §7 kind 4).
var ErrFilterFailed = errors.New("engine: filter failed")

// FilterFailedError wraps ErrFilterFailed with the offending value,
// matching the spec's literal message shape ("Filter failed on: <value>").
func FilterFailedError(value any) error {
	return pkgerrors.Wrapf(ErrFilterFailed, "filter failed on: %v", value)
}

// ErrInvalidConfigTransform is returned when a TransformedConfig node's
// function does not yield a *Config, which would otherwise corrupt
// every downstream cache key.
var ErrInvalidConfigTransform = errors.New("engine: config transform did not yield a *Config")

func wrapWriterShapeMismatch(detail string) error {
	return pkgerrors.Wrapf(ErrWriterShapeMismatch, "%s", detail)
}
