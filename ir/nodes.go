package ir

// futureConstNode is a deferred producer of a value, run on the
// caller's executor (spec.md §3, FutureConst).
type futureConstNode struct {
	fn   func() (any, error)
	hash uint64
}

// FutureConst wraps fn as a leaf computation.
func FutureConst(fn func() (any, error)) Node {
	return &futureConstNode{fn: fn, hash: combineHash(hashKind(KindFutureConst), uint64(funcIdentity(fn)))}
}

func (n *futureConstNode) Kind() Kind   { return KindFutureConst }
func (n *futureConstNode) Hash() uint64 { return n.hash }
func (n *futureConstNode) equalSameKind(other Node, _ *equalityMemo) bool {
	o := other.(*futureConstNode)
	return funcIdentity(n.fn) == funcIdentity(o.fn)
}

// flowDefNode is a planner description to be submitted via the writer
// (spec.md §3, FlowDef).
type flowDefNode struct {
	build func(conf any) any
	hash  uint64
}

// FlowDef wraps build, which derives the flow-def description to hand
// to the writer from the effective config.
func FlowDef(build func(conf any) any) Node {
	return &flowDefNode{build: build, hash: combineHash(hashKind(KindFlowDef), uint64(funcIdentity(build)))}
}

func (n *flowDefNode) Kind() Kind   { return KindFlowDef }
func (n *flowDefNode) Hash() uint64 { return n.hash }
func (n *flowDefNode) equalSameKind(other Node, _ *equalityMemo) bool {
	o := other.(*flowDefNode)
	return funcIdentity(n.build) == funcIdentity(o.build)
}

// mappedNode is a pure transform of an inner result (spec.md §3, Mapped).
type mappedNode struct {
	prev Node
	fn   func(any) (any, error)
	hash uint64
}

// Mapped lifts fn over prev's result.
func Mapped(prev Node, fn func(any) (any, error)) Node {
	return &mappedNode{
		prev: prev,
		fn:   fn,
		hash: combineHash(hashKind(KindMapped), prev.Hash(), uint64(funcIdentity(fn))),
	}
}

func (n *mappedNode) Kind() Kind   { return KindMapped }
func (n *mappedNode) Hash() uint64 { return n.hash }
func (n *mappedNode) equalSameKind(other Node, m *equalityMemo) bool {
	o := other.(*mappedNode)
	return funcIdentity(n.fn) == funcIdentity(o.fn) && m.equal(n.prev, o.prev)
}

// flatMappedNode is a sequential dependent continuation (spec.md §3,
// FlatMapped).
type flatMappedNode struct {
	prev Node
	fn   func(any) (Node, error)
	hash uint64
}

// FlatMapped sequences fn after prev resolves.
func FlatMapped(prev Node, fn func(any) (Node, error)) Node {
	return &flatMappedNode{
		prev: prev,
		fn:   fn,
		hash: combineHash(hashKind(KindFlatMapped), prev.Hash(), uint64(funcIdentity(fn))),
	}
}

func (n *flatMappedNode) Kind() Kind   { return KindFlatMapped }
func (n *flatMappedNode) Hash() uint64 { return n.hash }
func (n *flatMappedNode) equalSameKind(other Node, m *equalityMemo) bool {
	o := other.(*flatMappedNode)
	return funcIdentity(n.fn) == funcIdentity(o.fn) && m.equal(n.prev, o.prev)
}

// zippedNode is a parallel composition of two sub-executions (spec.md
// §3, Zipped).
type zippedNode struct {
	a, b Node
	hash uint64
}

// Zipped composes a and b for parallel evaluation.
func Zipped(a, b Node) Node {
	return &zippedNode{a: a, b: b, hash: combineHash(hashKind(KindZipped), a.Hash(), b.Hash())}
}

func (n *zippedNode) Kind() Kind   { return KindZipped }
func (n *zippedNode) Hash() uint64 { return n.hash }
func (n *zippedNode) equalSameKind(other Node, m *equalityMemo) bool {
	o := other.(*zippedNode)
	return m.equal(n.a, o.a) && m.equal(n.b, o.b)
}

// onCompleteNode is a fire-and-forget side effect run after prev
// completes, success or failure (spec.md §3, OnComplete).
type onCompleteNode struct {
	prev Node
	side func(val any, err error)
	hash uint64
}

// OnComplete attaches side as a completion hook on prev.
func OnComplete(prev Node, side func(val any, err error)) Node {
	return &onCompleteNode{
		prev: prev,
		side: side,
		hash: combineHash(hashKind(KindOnComplete), prev.Hash(), uint64(funcIdentity(side))),
	}
}

func (n *onCompleteNode) Kind() Kind   { return KindOnComplete }
func (n *onCompleteNode) Hash() uint64 { return n.hash }
func (n *onCompleteNode) equalSameKind(other Node, m *equalityMemo) bool {
	o := other.(*onCompleteNode)
	return funcIdentity(n.side) == funcIdentity(o.side) && m.equal(n.prev, o.prev)
}

// recoverWithNode is a partial recovery from failures (spec.md §3,
// RecoverWith). handler returns (replacement, true) when it handles the
// error, or (nil, false) to let the failure propagate.
type recoverWithNode struct {
	prev    Node
	handler func(error) (Node, bool)
	hash    uint64
}

// RecoverWith attaches handler as prev's recovery partial function.
func RecoverWith(prev Node, handler func(error) (Node, bool)) Node {
	return &recoverWithNode{
		prev:    prev,
		handler: handler,
		hash:    combineHash(hashKind(KindRecoverWith), prev.Hash(), uint64(funcIdentity(handler))),
	}
}

func (n *recoverWithNode) Kind() Kind   { return KindRecoverWith }
func (n *recoverWithNode) Hash() uint64 { return n.hash }
func (n *recoverWithNode) equalSameKind(other Node, m *equalityMemo) bool {
	o := other.(*recoverWithNode)
	return funcIdentity(n.handler) == funcIdentity(o.handler) && m.equal(n.prev, o.prev)
}

// getCountersNode materializes accumulated counters alongside the value
// (spec.md §3, GetCounters).
type getCountersNode struct {
	prev Node
	hash uint64
}

// GetCounters wraps prev so its accumulated counters are surfaced
// alongside its value.
func GetCounters(prev Node) Node {
	return &getCountersNode{prev: prev, hash: combineHash(hashKind(KindGetCounters), prev.Hash())}
}

func (n *getCountersNode) Kind() Kind   { return KindGetCounters }
func (n *getCountersNode) Hash() uint64 { return n.hash }
func (n *getCountersNode) equalSameKind(other Node, m *equalityMemo) bool {
	return m.equal(n.prev, other.(*getCountersNode).prev)
}

// resetCountersNode discards accumulated counters (spec.md §3,
// ResetCounters). This is the only node allowed to drop counters (I3).
type resetCountersNode struct {
	prev Node
	hash uint64
}

// ResetCounters wraps prev, discarding its accumulated counters.
func ResetCounters(prev Node) Node {
	return &resetCountersNode{prev: prev, hash: combineHash(hashKind(KindResetCounters), prev.Hash())}
}

func (n *resetCountersNode) Kind() Kind   { return KindResetCounters }
func (n *resetCountersNode) Hash() uint64 { return n.hash }
func (n *resetCountersNode) equalSameKind(other Node, m *equalityMemo) bool {
	return m.equal(n.prev, other.(*resetCountersNode).prev)
}

// transformedConfigNode rewrites the effective config for prev
// (spec.md §3, TransformedConfig).
type transformedConfigNode struct {
	prev Node
	fn   func(any) any
	hash uint64
}

// TransformedConfig evaluates prev under fn(conf) instead of conf.
func TransformedConfig(prev Node, fn func(any) any) Node {
	return &transformedConfigNode{
		prev: prev,
		fn:   fn,
		hash: combineHash(hashKind(KindTransformedConfig), prev.Hash(), uint64(funcIdentity(fn))),
	}
}

func (n *transformedConfigNode) Kind() Kind   { return KindTransformedConfig }
func (n *transformedConfigNode) Hash() uint64 { return n.hash }
func (n *transformedConfigNode) equalSameKind(other Node, m *equalityMemo) bool {
	o := other.(*transformedConfigNode)
	return funcIdentity(n.fn) == funcIdentity(o.fn) && m.equal(n.prev, o.prev)
}

// withNewCacheNode evaluates prev against a fresh memoization scope
// (spec.md §3, WithNewCache).
type withNewCacheNode struct {
	prev Node
	hash uint64
}

// WithNewCache isolates prev from the enclosing evaluator cache.
func WithNewCache(prev Node) Node {
	return &withNewCacheNode{prev: prev, hash: combineHash(hashKind(KindWithNewCache), prev.Hash())}
}

func (n *withNewCacheNode) Kind() Kind   { return KindWithNewCache }
func (n *withNewCacheNode) Hash() uint64 { return n.hash }
func (n *withNewCacheNode) equalSameKind(other Node, m *equalityMemo) bool {
	return m.equal(n.prev, other.(*withNewCacheNode).prev)
}

// uniqueIDNode requests a fresh token inserted into config (spec.md §3,
// UniqueId).
type uniqueIDNode struct {
	fn   func(uid string) Node
	hash uint64
}

// UniqueID derives a fresh token and evaluates fn(uid) under a config
// carrying that token.
func UniqueID(fn func(uid string) Node) Node {
	return &uniqueIDNode{fn: fn, hash: combineHash(hashKind(KindUniqueID), uint64(funcIdentity(fn)))}
}

func (n *uniqueIDNode) Kind() Kind   { return KindUniqueID }
func (n *uniqueIDNode) Hash() uint64 { return n.hash }
func (n *uniqueIDNode) equalSameKind(other Node, _ *equalityMemo) bool {
	return funcIdentity(n.fn) == funcIdentity(other.(*uniqueIDNode).fn)
}

// readerNode is the identity node returning (config, mode) (spec.md
// §3, Reader). There is exactly one shared instance since it carries no
// fields — every use of Reader() is structurally and referentially
// equal.
type readerNode struct{}

var sharedReader = &readerNode{}

// ReaderNode returns the shared Reader node.
func ReaderNode() Node { return sharedReader }

func (n *readerNode) Kind() Kind   { return KindReader }
func (n *readerNode) Hash() uint64 { return hashKind(KindReader) }
func (n *readerNode) equalSameKind(Node, *equalityMemo) bool {
	return true
}
