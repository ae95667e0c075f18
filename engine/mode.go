package engine

// Mode is the opaque run-mode token surfaced by ir.Reader alongside
// Config (spec.md §3, "Reader — identity node returning (config,
// mode)"). The pipeline algebra that interprets Mode is out of scope
// (spec.md §1); the engine only threads it through unexamined.
type Mode string

// ModeDefault is the mode used when the caller has no special
// planner-level behavior to select.
const ModeDefault Mode = ""
