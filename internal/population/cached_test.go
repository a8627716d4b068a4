package population

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSizer struct {
	calls atomic.Int64
	count int
}

func (s *countingSizer) Individuals(_ context.Context, _ string) (int, error) {
	s.calls.Add(1)
	return s.count, nil
}

func TestStatic(t *testing.T) {
	s := NewStatic(500)
	s.SetDataset("ds-1", 100)

	n, err := s.Individuals(context.Background(), "ds-1")
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = s.Individuals(context.Background(), "ds-unknown")
	require.NoError(t, err)
	assert.Equal(t, 500, n, "unknown dataset falls back to the collection count")

	n, err = s.Individuals(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 500, n)
}

func TestCached_ServesFromCache(t *testing.T) {
	inner := &countingSizer{count: 42}
	cached := NewCached(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		n, err := cached.Individuals(ctx, "ds-1")
		require.NoError(t, err)
		assert.Equal(t, 42, n)
	}

	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCached_ExpiresAfterTTL(t *testing.T) {
	inner := &countingSizer{count: 42}
	cached := NewCached(inner, time.Nanosecond)
	ctx := context.Background()

	_, err := cached.Individuals(ctx, "ds-1")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = cached.Individuals(ctx, "ds-1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCached_ConcurrentCallersShareOneFetch(t *testing.T) {
	inner := &countingSizer{count: 42}
	cached := NewCached(inner, time.Minute)
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			n, err := cached.Individuals(ctx, "ds-1")
			assert.NoError(t, err)
			assert.Equal(t, 42, n)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.calls.Load(), int64(2),
		"singleflight collapses concurrent fetches")
}
