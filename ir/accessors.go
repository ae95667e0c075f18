package ir

// Accessors let other packages (notably the evaluator in package
// engine) pattern-match on a Node's variant without ir exporting its
// concrete struct types. Each returns ok=false if n is not that kind,
// mirroring a type switch over a sealed sum.

func AsFutureConst(n Node) (fn func() (any, error), ok bool) {
	v, ok := n.(*futureConstNode)
	if !ok {
		return nil, false
	}
	return v.fn, true
}

func AsFlowDef(n Node) (build func(conf any) any, ok bool) {
	v, ok := n.(*flowDefNode)
	if !ok {
		return nil, false
	}
	return v.build, true
}

func AsMapped(n Node) (prev Node, fn func(any) (any, error), ok bool) {
	v, ok := n.(*mappedNode)
	if !ok {
		return nil, nil, false
	}
	return v.prev, v.fn, true
}

func AsFlatMapped(n Node) (prev Node, fn func(any) (Node, error), ok bool) {
	v, ok := n.(*flatMappedNode)
	if !ok {
		return nil, nil, false
	}
	return v.prev, v.fn, true
}

func AsZipped(n Node) (a, b Node, ok bool) {
	v, ok := n.(*zippedNode)
	if !ok {
		return nil, nil, false
	}
	return v.a, v.b, true
}

func AsOnComplete(n Node) (prev Node, side func(val any, err error), ok bool) {
	v, ok := n.(*onCompleteNode)
	if !ok {
		return nil, nil, false
	}
	return v.prev, v.side, true
}

func AsRecoverWith(n Node) (prev Node, handler func(error) (Node, bool), ok bool) {
	v, ok := n.(*recoverWithNode)
	if !ok {
		return nil, nil, false
	}
	return v.prev, v.handler, true
}

func AsGetCounters(n Node) (prev Node, ok bool) {
	v, ok := n.(*getCountersNode)
	if !ok {
		return nil, false
	}
	return v.prev, true
}

func AsResetCounters(n Node) (prev Node, ok bool) {
	v, ok := n.(*resetCountersNode)
	if !ok {
		return nil, false
	}
	return v.prev, true
}

func AsTransformedConfig(n Node) (prev Node, fn func(any) any, ok bool) {
	v, ok := n.(*transformedConfigNode)
	if !ok {
		return nil, nil, false
	}
	return v.prev, v.fn, true
}

func AsWithNewCache(n Node) (prev Node, ok bool) {
	v, ok := n.(*withNewCacheNode)
	if !ok {
		return nil, false
	}
	return v.prev, true
}

func AsUniqueID(n Node) (fn func(uid string) Node, ok bool) {
	v, ok := n.(*uniqueIDNode)
	if !ok {
		return nil, false
	}
	return v.fn, true
}

// IsReader reports whether n is the shared Reader node.
func IsReader(n Node) bool {
	_, ok := n.(*readerNode)
	return ok
}

// AsWrite exposes a Write node's bundled descriptors and present
// function.
func AsWrite(n Node) (descriptors []Descriptor, present PresentFunc, ok bool) {
	v, ok := n.(*writeNode)
	if !ok {
		return nil, nil, false
	}
	return v.Descriptors(), v.present, true
}
