package history

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/rip"
)

func record(id string) rip.CandidateRecord {
	return rip.CandidateRecord{VariantInternalID: id, AlleleFrequency: 0.01}
}

func TestInMemoryStore_LookupMiss(t *testing.T) {
	store := NewInMemory()

	_, found, err := store.Lookup(context.Background(), "user", "fp", "ds")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryStore_FirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	first := []rip.CandidateRecord{record("var-1"), record("var-2")}
	second := []rip.CandidateRecord{record("var-3")}

	require.NoError(t, store.Store(ctx, "user", "fp", "ds", first))
	require.NoError(t, store.Store(ctx, "user", "fp", "ds", second), "duplicate store is a no-op, not an error")

	got, found, err := store.Lookup(ctx, "user", "fp", "ds")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, got, "the first committed value stands")
}

func TestInMemoryStore_EmptyResponseIsCached(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	require.NoError(t, store.Store(ctx, "user", "fp", "ds", nil))

	got, found, err := store.Lookup(ctx, "user", "fp", "ds")
	require.NoError(t, err)
	assert.True(t, found, "an all-denied response is still memoized")
	assert.Empty(t, got)
}

func TestInMemoryStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	require.NoError(t, store.Store(ctx, "user-a", "fp", "ds", []rip.CandidateRecord{record("var-1")}))

	_, found, err := store.Lookup(ctx, "user-b", "fp", "ds")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.Lookup(ctx, "user-a", "fp", "ds-other")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryStore_LookupReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	require.NoError(t, store.Store(ctx, "user", "fp", "ds", []rip.CandidateRecord{record("var-1")}))

	got, _, err := store.Lookup(ctx, "user", "fp", "ds")
	require.NoError(t, err)
	got[0].VariantInternalID = "mutated"

	again, _, err := store.Lookup(ctx, "user", "fp", "ds")
	require.NoError(t, err)
	assert.Equal(t, "var-1", again[0].VariantInternalID)
}

func TestInMemoryStore_ConcurrentStores(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			err := store.Store(ctx, "user", "fp", "ds", []rip.CandidateRecord{record("var-1")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, found, err := store.Lookup(ctx, "user", "fp", "ds")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got, 1)
}
