package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevwan/flowexec/cfuture"
	"github.com/kevwan/flowexec/counters"
	"github.com/kevwan/flowexec/writer"
)

func TestMapLawIdentityAndComposition(t *testing.T) {
	base := From(4)
	identity := Map(base, func(v int) (int, error) { return v, nil })
	v, _ := runSync(t, identity)
	assert.Equal(t, 4, v)

	composed := Map(Map(base, func(v int) (int, error) { return v + 1, nil }), func(v int) (int, error) { return v * 2, nil })
	fused := Map(base, func(v int) (int, error) { return (v + 1) * 2, nil })
	cv, _ := runSync(t, composed)
	fv, _ := runSync(t, fused)
	assert.Equal(t, fv, cv)
}

func TestFlatMapAssociativity(t *testing.T) {
	f := func(v int) (Execution[int], error) { return From(v + 1), nil }
	g := func(v int) (Execution[int], error) { return From(v * 3), nil }

	left := FlatMap(FlatMap(From(2), f), g)
	right := FlatMap(From(2), func(v int) (Execution[int], error) {
		fv, err := f(v)
		if err != nil {
			return Execution[int]{}, err
		}
		return FlatMap(fv, g), nil
	})

	lv, _ := runSync(t, left)
	rv, _ := runSync(t, right)
	assert.Equal(t, rv, lv)
}

func TestGetCountersSurfacesWriteCounters(t *testing.T) {
	p := writer.NewPlanner()
	p.RegisterProducer("pipe", func() (any, counters.Counters, error) {
		return "done", counters.Single(counters.Key{Group: "job", Name: "records"}, 7), nil
	})

	e := GetCounters(ForceToDisk("pipe"))
	pair, planner := runSyncWithPlanner(t, e, p)
	assert.Equal(t, int64(7), pair.Second.Apply(counters.Key{Group: "job", Name: "records"}))
	assert.Equal(t, 1, planner.ExecuteCount())
}

func TestResetCountersDiscardsAccumulated(t *testing.T) {
	p := writer.NewPlanner()
	p.RegisterProducer("pipe", func() (any, counters.Counters, error) {
		return "done", counters.Single(counters.Key{Group: "job", Name: "records"}, 7), nil
	})

	e := GetCounters(ResetCounters(ForceToDisk("pipe")))
	pair, _ := runSyncWithPlanner(t, e, p)
	assert.False(t, pair.Second.IsNonZero())
}

func runSyncWithPlanner[T any](t *testing.T, e Execution[T], p *writer.Planner) (T, *writer.Planner) {
	t.Helper()
	v, err := WaitFor(context.Background(), cfuture.GoExecutor{}, p, NewConfig(), ModeDefault, e)
	require.NoError(t, err)
	return v, p
}

func TestWriteCoalescingG1ExactlyOnceAcrossSharedPipe(t *testing.T) {
	p := writer.NewPlanner()
	var calls int32
	p.RegisterProducer("shared", func() (any, counters.Counters, error) {
		atomic.AddInt32(&calls, 1)
		return "v", counters.Empty(), nil
	})

	e := Zip(ForceToDisk("shared"), ForceToDisk("shared"))
	_, planner := runSyncWithPlanner(t, e, p)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, planner.ExecuteCount())
}

func TestWriteCoalescingG2DisjointBundlesBothRun(t *testing.T) {
	p := writer.NewPlanner()
	p.RegisterProducer("a", func() (any, counters.Counters, error) { return "a", counters.Empty(), nil })
	p.RegisterProducer("b", func() (any, counters.Counters, error) { return "b", counters.Empty(), nil })

	aExec := WithConfig(ForceToDisk("a"), func(c *Config) *Config { return c })
	bExec := WithConfig(ForceToDisk("b"), func(c *Config) *Config { return c })

	e := Zip(aExec, bExec)
	_, planner := runSyncWithPlanner(t, e, p)
	assert.Equal(t, 2, planner.ExecuteCount())
}

func TestFilterRejectsValueWithDomainError(t *testing.T) {
	e := Filter(From(3), func(v int) bool { return v%2 == 0 })
	_, err := runSyncExpectError(t, e)
	assert.ErrorIs(t, err, ErrFilterFailed)
	assert.Contains(t, err.Error(), "3")
}

func TestFilterAcceptsValuePassesThrough(t *testing.T) {
	e := Filter(From(4), func(v int) bool { return v%2 == 0 })
	v, _ := runSync(t, e)
	assert.Equal(t, 4, v)
}

func TestFilterFailureIsRecoverable(t *testing.T) {
	e := RecoverWith(
		Filter(From(3), func(v int) bool { return v%2 == 0 }),
		func(err error) (Execution[int], bool) {
			if errors.Is(err, ErrFilterFailed) {
				return From(-1), true
			}
			return Execution[int]{}, false
		},
	)
	v, _ := runSync(t, e)
	assert.Equal(t, -1, v)
}

func TestRecoverWithNeverInterceptsFlowStop(t *testing.T) {
	stop := NewFlowStopError(errors.New("cancelled upstream"))
	e := RecoverWith(Failed[int](stop), func(err error) (Execution[int], bool) {
		return From(-1), true
	})
	_, err := runSyncExpectError(t, e)
	assert.True(t, IsFlowStop(err))
}

func runSyncExpectError[T any](t *testing.T, e Execution[T]) (T, error) {
	t.Helper()
	p := writer.NewPlanner()
	return WaitFor(context.Background(), cfuture.GoExecutor{}, p, NewConfig(), ModeDefault, e)
}

func TestWithNewCacheIsolatesEvaluatorCacheFromEnclosing(t *testing.T) {
	var builds int32
	leaf := FromFn(func() (int, error) {
		atomic.AddInt32(&builds, 1)
		return 1, nil
	})

	shared := Zip(leaf, leaf)
	_, _ = runSync(t, shared)
	sharedBuilds := atomic.LoadInt32(&builds)

	atomic.StoreInt32(&builds, 0)
	isolated := Zip(WithNewCache(leaf), WithNewCache(leaf))
	_, _ = runSync(t, isolated)
	isolatedBuilds := atomic.LoadInt32(&builds)

	assert.LessOrEqual(t, sharedBuilds, isolatedBuilds)
}

func TestForceToDiskRunsProducerOnce(t *testing.T) {
	p := writer.NewPlanner()
	var calls int32
	p.RegisterProducer("once-bypass", func() (any, counters.Counters, error) {
		atomic.AddInt32(&calls, 1)
		return "v", counters.Empty(), nil
	})

	e := ForceToDisk("once-bypass")
	_, _ = runSyncWithPlanner(t, e, p)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
