package counters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	keyA = Key{Group: "stats", Name: "records"}
	keyB = Key{Group: "stats", Name: "bytes"}
)

func TestGetVsApply(t *testing.T) {
	tests := []struct {
		name       string
		c          Counters
		key        Key
		wantGet    int64
		wantExists bool
		wantApply  int64
	}{
		{
			name:       "present zero",
			c:          Single(keyA, 0),
			key:        keyA,
			wantGet:    0,
			wantExists: true,
			wantApply:  0,
		},
		{
			name:       "present nonzero",
			c:          Single(keyA, 7),
			key:        keyA,
			wantGet:    7,
			wantExists: true,
			wantApply:  7,
		},
		{
			name:       "missing",
			c:          Single(keyA, 7),
			key:        keyB,
			wantGet:    0,
			wantExists: false,
			wantApply:  0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, ok := test.c.Get(test.key)
			assert.Equal(t, test.wantGet, v)
			assert.Equal(t, test.wantExists, ok)
			assert.Equal(t, test.wantApply, test.c.Apply(test.key))
		})
	}
}

func TestEmptyIsIdentity(t *testing.T) {
	c := Single(keyA, 3).Merge(keyB2())
	assert.Equal(t, c, Empty().Merge(c))
	assert.Equal(t, c, c.Merge(Empty()))
}

func keyB2() Counters {
	return Single(keyB, 4)
}

func TestMergeIsPointwiseSum(t *testing.T) {
	a := New(map[Key]int64{keyA: 2, keyB: 3})
	b := New(map[Key]int64{keyA: 10, keyB: -1})

	merged := a.Merge(b)
	assert.Equal(t, int64(12), merged.Apply(keyA))
	assert.Equal(t, int64(2), merged.Apply(keyB))
}

func TestMergeCommutativeAndAssociative(t *testing.T) {
	a := Single(keyA, 2)
	b := Single(keyB, 5)
	c := New(map[Key]int64{keyA: 1, keyB: 1})

	assert.Equal(t, a.Merge(b), b.Merge(a))
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
}

func TestIsNonZero(t *testing.T) {
	assert.False(t, Empty().IsNonZero())
	assert.True(t, Single(keyA, 0).IsNonZero())
}

func TestBySubmissionFlattenMergesAcrossIDs(t *testing.T) {
	b := OfSubmission(1, Single(keyA, 3)).Merge(OfSubmission(2, Single(keyA, 4)))
	flat := b.Flatten()
	assert.Equal(t, int64(7), flat.Apply(keyA))
}

func TestBySubmissionResetIsEmpty(t *testing.T) {
	b := OfSubmission(1, Single(keyA, 3))
	r := Reset()
	assert.Equal(t, Empty(), r.Flatten())
	assert.Equal(t, int64(3), b.Merge(r).Flatten().Apply(keyA))
}

func TestMergeAll(t *testing.T) {
	result := MergeAll(Single(keyA, 1), Single(keyA, 2), Single(keyB, 10))
	assert.Equal(t, int64(3), result.Apply(keyA))
	assert.Equal(t, int64(10), result.Apply(keyB))
}

func TestToMapIsIndependentCopy(t *testing.T) {
	c := Single(keyA, 5)
	m := c.ToMap()
	m[keyA] = 999
	assert.Equal(t, int64(5), c.Apply(keyA))
}
