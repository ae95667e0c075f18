package cfuture

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAsyncSemaphoreBoundsConcurrency(t *testing.T) {
	const limit = 2
	const tasks = 6
	sem := NewAsyncSemaphore(limit)

	var inFlight int32
	var maxSeen int32
	var wg sync.WaitGroup

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			permit, err := sem.Acquire(context.Background())
			assert.NoError(t, err)
			defer permit.Release()

			cur := atomic.AddInt32(&inFlight, 1)
			for {
				maxVal := atomic.LoadInt32(&maxSeen)
				if cur <= maxVal || atomic.CompareAndSwapInt32(&maxSeen, maxVal, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(limit))
}

func TestAsyncSemaphoreReleaseNeverDoubleFrees(t *testing.T) {
	sem := NewAsyncSemaphore(1)
	permit, err := sem.Acquire(context.Background())
	assert.NoError(t, err)

	permit.Release()
	permit.Release() // must not panic or allow a second logical permit out

	second, err := sem.Acquire(context.Background())
	assert.NoError(t, err)
	defer second.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sem.Acquire(ctx)
	assert.Error(t, err, "only one permit should be outstanding despite the double release")
}

func TestAsyncSemaphoreClampsNonPositive(t *testing.T) {
	sem := NewAsyncSemaphore(0)
	permit, err := sem.Acquire(context.Background())
	assert.NoError(t, err)
	permit.Release()
}

func TestAsyncSemaphoreReleaseOnFailurePath(t *testing.T) {
	sem := NewAsyncSemaphore(1)

	func() {
		permit, err := sem.Acquire(context.Background())
		assert.NoError(t, err)
		defer permit.Release()
		defer func() {
			assert.NotNil(t, recover())
		}()
		panic("boom")
	}()

	permit, err := sem.Acquire(context.Background())
	assert.NoError(t, err)
	permit.Release()
}
