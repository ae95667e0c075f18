package engine

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config is the engine's configuration contract (spec.md §6): three
// operations — SetExecutionID, EnsureUniqueID, ExecutionOptimization —
// plus whatever opaque planner fields a concrete deployment needs.
// Config is immutable; every mutator returns a new *Config, and the
// evaluator cache keys on Config by pointer identity (mirroring the IR
// node's own reference-identity contract in package ir), so
// TransformedConfig and UniqueId correctly avoid conflating a sub-tree
// evaluated under two different configs.
type Config struct {
	ExecutionID string
	UniqueToken string
	Optimize    bool
	Logger      *zap.Logger

	// Extra carries opaque planner fields this engine never inspects
	// (spec.md §6, "additional planner fields are opaque").
	Extra any
}

// NewConfig returns the default Config: optimization enabled, logging
// discarded (mirroring the teacher's discard-by-default test posture;
// see SPEC_FULL.md §2.1).
func NewConfig() *Config {
	return &Config{Optimize: true, Logger: zap.NewNop()}
}

// WithLogger returns a copy of c logging to logger.
func (c *Config) WithLogger(logger *zap.Logger) *Config {
	next := *c
	next.Logger = logger
	return &next
}

// WithOptimization returns a copy of c with the optimizer rules
// enabled or disabled (spec.md §4.F, "Optimization").
func (c *Config) WithOptimization(enabled bool) *Config {
	next := *c
	next.Optimize = enabled
	return &next
}

// WithExtra returns a copy of c carrying opaque planner state.
func (c *Config) WithExtra(extra any) *Config {
	next := *c
	next.Extra = extra
	return &next
}

// SetExecutionID returns a copy of c stamped with id (spec.md §6,
// "setScaldingExecutionId").
func (c *Config) SetExecutionID(id string) *Config {
	next := *c
	next.ExecutionID = id
	return &next
}

// EnsureUniqueID derives a fresh token and a Config carrying it
// (spec.md §6, "ensureUniqueId() -> (token, config')"). Tokens are
// generated with uuid.New rather than a hand-rolled counter, so two
// concurrent runs can never collide (SPEC_FULL.md §2.3).
func (c *Config) EnsureUniqueID() (string, *Config) {
	token := uuid.NewString()
	next := *c
	next.UniqueToken = token
	return token, &next
}

// ExecutionOptimization reports whether the optimizer's rewrite rules
// should run (spec.md §6, "getExecutionOptimization").
func (c *Config) ExecutionOptimization() bool {
	return c.Optimize
}

// logger returns c.Logger, defaulting to a no-op logger if c is nil or
// carries none — Run substitutes NewConfig only for a nil Config, so a
// caller passing a bare &Config{} still gets sane behavior.
func (c *Config) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
