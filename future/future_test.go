package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := New[int]()
	assert.False(t, f.IsDone())

	_, _, ok := f.Peek()
	assert.False(t, ok)

	assert.True(t, f.Complete(7))
	assert.False(t, f.Complete(8))
	assert.False(t, f.Fail(9, errors.New("late")))

	value, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, value)
	assert.True(t, f.IsDone())
}

func TestFuture_Fail(t *testing.T) {
	boom := errors.New("boom")
	f := New[int]()
	assert.True(t, f.Fail(3, boom))

	value, err, ok := f.Peek()
	assert.True(t, ok)
	assert.Equal(t, 3, value)
	assert.ErrorIs(t, err, boom)
}

func TestFuture_GetHonoursContext(t *testing.T) {
	f := New[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_ConcurrentWaiters(t *testing.T) {
	f := New[int]()
	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := f.Get(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	f.Complete(42)
	wg.Wait()
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestFuture_OnDone(t *testing.T) {
	f := New[int]()
	var calls []int
	f.OnDone(func(v int, err error) { calls = append(calls, v) })
	f.Complete(5)
	f.OnDone(func(v int, err error) { calls = append(calls, v*10) })
	assert.Equal(t, []int{5, 50}, calls)
}
