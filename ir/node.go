// Package ir implements the execution IR (spec component 4.E): a
// closed, immutable sum of node kinds with structural equality and a
// cached structural hash, sufficient to memoize the evaluator cache
// (package cache) and to drive the optimizer's rewrite rules.
//
// Every constructor in this package returns a pointer to an unexported
// struct, so two Node values built from two separate constructor calls
// are never == even if they describe the same computation — Equal is
// the only way to ask that question. Two Node values built from the
// very same constructor call (the same pointer, handed to two
// combinators) are always == and Equal short-circuits on that.
package ir

import "hash/fnv"

// Kind tags which variant a Node is. The evaluator dispatches on a
// Node's variant through Kind and the As* accessors; adding a variant
// means updating every such dispatch in this repo — Go has no sealed
// sum types, so Kind plus disciplined dispatch is the closest
// approximation (spec.md §9,
// "closed tagged variants; pattern match at each evaluator step").
type Kind int

const (
	KindFutureConst Kind = iota
	KindFlowDef
	KindMapped
	KindFlatMapped
	KindZipped
	KindOnComplete
	KindRecoverWith
	KindGetCounters
	KindResetCounters
	KindTransformedConfig
	KindWithNewCache
	KindUniqueID
	KindReader
	KindWrite
)

// Node is any execution IR node. All concrete implementations are
// pointer types, so a Node interface value is comparable with == and
// that comparison is reference identity — the fast path invariant I1/I2
// in spec.md §3 rely on.
type Node interface {
	Kind() Kind
	// Hash is a structural hash computed once at construction and
	// cached; it agrees with Equal (I1).
	Hash() uint64
}

// Equal reports whether a and b describe the same computation,
// inductively, memoized over reference pairs so that sharing (notably
// under Zipped) doesn't cause exponential blowup (spec.md §4.E).
func Equal(a, b Node) bool {
	return newEqualityMemo().equal(a, b)
}

type pairKey struct {
	a, b Node
}

type equalityMemo struct {
	seen map[pairKey]bool
}

func newEqualityMemo() *equalityMemo {
	return &equalityMemo{seen: make(map[pairKey]bool)}
}

func (m *equalityMemo) equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	key := pairKey{a, b}
	if v, ok := m.seen[key]; ok {
		return v
	}
	if a.Kind() != b.Kind() {
		m.seen[key] = false
		return false
	}
	// Cross-variant pairs are unequal (checked above); same-variant
	// comparison is delegated to the variant's own comparator, which
	// recurses back through m.equal for sub-executions.
	result := a.(interface {
		equalSameKind(Node, *equalityMemo) bool
	}).equalSameKind(b, m)
	m.seen[key] = result
	return result
}

// funcIdentity turns an arbitrary func value into a stable identity
// token for hashing and equality. Go funcs are not comparable with ==,
// so this is the idiomatic proxy for "function equality is reference
// equality" (spec.md §4.E, §9): two closures literally built from the
// same source position and capture set share one code pointer.
func funcIdentity(fn any) uintptr {
	if fn == nil {
		return 0
	}
	return reflectPointer(fn)
}

const fnvOffset = 14695981039346656037
const fnvPrime = 1099511628211

// combineHash folds a sequence of uint64 parts into one hash, in a
// fixed order, so it agrees with equality regardless of what later
// changes about the parts' own representation.
func combineHash(parts ...uint64) uint64 {
	h := uint64(fnvOffset)
	for _, p := range parts {
		h ^= p
		h *= fnvPrime
	}
	return h
}

// hashString hashes an opaque string field (e.g. identifiers embedded
// directly in a node, as opposed to sub-executions or functions).
func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func hashKind(k Kind) uint64 {
	return combineHash(uint64(k))
}
