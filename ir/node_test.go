package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constFn() (any, error) { return 1, nil }

func TestSameReferenceShortCircuits(t *testing.T) {
	n := FutureConst(constFn)
	assert.True(t, Equal(n, n))
}

func TestDistinctReferencesSameShapeAreEqual(t *testing.T) {
	a := Mapped(FutureConst(constFn), double)
	b := Mapped(FutureConst(constFn), double)
	assert.True(t, Equal(a, b))
}

func double(v any) (any, error) { return v.(int) * 2, nil }
func triple(v any) (any, error) { return v.(int) * 3, nil }

func TestDifferentFunctionsAreNotEqual(t *testing.T) {
	a := Mapped(FutureConst(constFn), double)
	b := Mapped(FutureConst(constFn), triple)
	assert.False(t, Equal(a, b))
}

func TestCrossVariantPairsAreUnequal(t *testing.T) {
	a := FutureConst(constFn)
	b := GetCounters(a)
	assert.False(t, Equal(a, b))
}

func TestZippedShareEqualSubtrees(t *testing.T) {
	shared := FutureConst(constFn)
	a := Zipped(shared, shared)
	b := Zipped(FutureConst(constFn), FutureConst(constFn))
	assert.True(t, Equal(a, b))
}

func TestHashAgreesWithEqualForEqualNodes(t *testing.T) {
	a := Mapped(FutureConst(constFn), double)
	b := Mapped(FutureConst(constFn), double)
	assert.True(t, Equal(a, b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestDeepSharedDiamondDoesNotBlowUp(t *testing.T) {
	// Build a diamond: Zipped(Zipped(shared, shared), Zipped(shared, shared))
	// repeated several levels; with reference-pair memoization this must
	// still terminate quickly instead of blowing up combinatorially.
	shared := FutureConst(constFn)
	level := shared
	for i := 0; i < 12; i++ {
		level = Zipped(level, level)
	}
	other := shared
	for i := 0; i < 12; i++ {
		other = Zipped(other, other)
	}
	assert.True(t, Equal(level, other))
}

func TestReaderIsSingleton(t *testing.T) {
	assert.True(t, Equal(ReaderNode(), ReaderNode()))
	assert.True(t, IsReader(ReaderNode()))
}

func TestAccessorsRoundTrip(t *testing.T) {
	prev := FutureConst(constFn)
	mapped := Mapped(prev, double)
	p, fn, ok := AsMapped(mapped)
	assert.True(t, ok)
	assert.True(t, Equal(p, prev))
	v, err := fn(5)
	assert.NoError(t, err)
	assert.Equal(t, 10, v)

	_, _, ok = AsMapped(prev)
	assert.False(t, ok)
}

func TestRecoverWithAccessor(t *testing.T) {
	handler := func(err error) (Node, bool) {
		if errors.Is(err, errBoom) {
			return FutureConst(constFn), true
		}
		return nil, false
	}
	n := RecoverWith(FutureConst(constFn), handler)
	prev, h, ok := AsRecoverWith(n)
	assert.True(t, ok)
	assert.NotNil(t, prev)
	replacement, handled := h(errBoom)
	assert.True(t, handled)
	assert.NotNil(t, replacement)
}

var errBoom = errors.New("boom")

func TestWriteBundlesDescriptorsInOrder(t *testing.T) {
	head := ForceDescriptor("pipeA")
	tail := []Descriptor{ToIterableDescriptor("pipeB"), SimpleWriteDescriptor("pipeC", "sinkC")}
	present := func(conf, mode, w, exec any) (any, error) { return nil, nil }

	n := Write(head, tail, present)
	descs, _, ok := AsWrite(n)
	assert.True(t, ok)
	assert.Equal(t, []Descriptor{head, tail[0], tail[1]}, descs)
}

func TestWriteEqualityComparesAllDescriptors(t *testing.T) {
	present := func(conf, mode, w, exec any) (any, error) { return nil, nil }
	a := Write(ForceDescriptor("p"), nil, present)
	b := Write(ForceDescriptor("p"), nil, present)
	c := Write(ForceDescriptor("q"), nil, present)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}
