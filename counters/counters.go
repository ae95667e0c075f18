// Package counters implements the pointwise-additive counter monoid
// threaded through every computation in flowexec (spec component 4.A).
package counters

// Key names one counter slot: a group (job stage, pipe name, ...) and a
// name within that group.
type Key struct {
	Group string
	Name  string
}

// Counters is an immutable mapping from Key to a signed 64-bit value.
// The zero value is the empty map and is the monoid identity for Merge.
type Counters struct {
	values map[Key]int64
}

// Empty returns the identity element.
func Empty() Counters {
	return Counters{}
}

// New builds a Counters from a plain map, copying it so the result stays
// immutable regardless of what the caller does with m afterwards.
func New(m map[Key]int64) Counters {
	if len(m) == 0 {
		return Counters{}
	}
	values := make(map[Key]int64, len(m))
	for k, v := range m {
		values[k] = v
	}
	return Counters{values: values}
}

// Single builds a Counters holding exactly one entry.
func Single(key Key, value int64) Counters {
	return Counters{values: map[Key]int64{key: value}}
}

// Get returns the value stored at key and whether it was present at all;
// a missing key is semantically distinct from a stored zero.
func (c Counters) Get(key Key) (int64, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Apply returns the value at key, or 0 if key is absent.
func (c Counters) Apply(key Key) int64 {
	return c.values[key]
}

// Keys returns every key with a recorded entry.
func (c Counters) Keys() []Key {
	keys := make([]Key, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// Len reports how many keys are recorded.
func (c Counters) Len() int {
	return len(c.values)
}

// IsNonZero reports whether any key has been recorded at all.
func (c Counters) IsNonZero() bool {
	return len(c.values) > 0
}

// Merge returns the pointwise sum of c and other. Merge is commutative and
// associative, so callers never need to care about merge order.
func (c Counters) Merge(other Counters) Counters {
	if len(c.values) == 0 {
		return other
	}
	if len(other.values) == 0 {
		return c
	}

	merged := make(map[Key]int64, len(c.values)+len(other.values))
	for k, v := range c.values {
		merged[k] = v
	}
	for k, v := range other.values {
		merged[k] += v
	}
	return Counters{values: merged}
}

// MergeAll folds Merge over every element of cs, in order. Because Merge is
// commutative the fold order is unobservable in the result.
func MergeAll(cs ...Counters) Counters {
	result := Empty()
	for _, c := range cs {
		result = result.Merge(c)
	}
	return result
}

// ToMap externalizes the counters as a plain group/name/value structure,
// the shape the engine surfaces across process boundaries.
func (c Counters) ToMap() map[Key]int64 {
	out := make(map[Key]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// BySubmission is the evaluator's internal representation: counters
// produced by each write submission, keyed by submission id, flattened
// into a single Counters only on request (spec.md §3, "Counters").
type BySubmission struct {
	byID map[uint64]Counters
}

// EmptyBySubmission is the identity element for BySubmission merges.
func EmptyBySubmission() BySubmission {
	return BySubmission{}
}

// OfSubmission wraps a single submission's counters under its id.
func OfSubmission(id uint64, c Counters) BySubmission {
	return BySubmission{byID: map[uint64]Counters{id: c}}
}

// Merge unions two BySubmission sets. Submission ids are unique per run
// (component 4.G, guarantee G1), so collisions should never occur; should
// one occur anyway the later value's counters are merged in rather than
// dropped, preserving invariant I3 (counters are never silently dropped).
func (b BySubmission) Merge(other BySubmission) BySubmission {
	if len(b.byID) == 0 {
		return other
	}
	if len(other.byID) == 0 {
		return b
	}

	merged := make(map[uint64]Counters, len(b.byID)+len(other.byID))
	for id, c := range b.byID {
		merged[id] = c
	}
	for id, c := range other.byID {
		if existing, ok := merged[id]; ok {
			merged[id] = existing.Merge(c)
		} else {
			merged[id] = c
		}
	}
	return BySubmission{byID: merged}
}

// Flatten merges every submission's counters into one Counters value.
// This is the only place BySubmission's per-id structure is discarded;
// GetCounters is the IR node that triggers it (spec.md §4.F).
func (b BySubmission) Flatten() Counters {
	result := Empty()
	for _, c := range b.byID {
		result = result.Merge(c)
	}
	return result
}

// Reset discards all accumulated counters. Invariant I3: ResetCounters is
// the only operator allowed to throw counters away.
func Reset() BySubmission {
	return BySubmission{}
}
