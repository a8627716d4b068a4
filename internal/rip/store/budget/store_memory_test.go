package budget

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_TryDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates entry lazily at initial budget", func(t *testing.T) {
		store := NewInMemory(1.0)

		ok, remaining, err := store.TryDebit(ctx, "user", "ind", "ds", 0.3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.InDelta(t, 0.7, remaining, 1e-12)
	})

	t.Run("failed debit has zero net effect", func(t *testing.T) {
		store := NewInMemory(0.5)

		ok, remaining, err := store.TryDebit(ctx, "user", "ind", "ds", 0.8)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.InDelta(t, 0.5, remaining, 1e-12)

		balance, found, err := store.Balance(ctx, "user", "ind", "ds")
		require.NoError(t, err)
		assert.True(t, found, "failed debit still creates the entry")
		assert.InDelta(t, 0.5, balance, 1e-12)
	})

	t.Run("debit to exactly zero is allowed", func(t *testing.T) {
		store := NewInMemory(1.0)

		ok, remaining, err := store.TryDebit(ctx, "user", "ind", "ds", 1.0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.InDelta(t, 0.0, remaining, 1e-12)

		ok, _, err = store.TryDebit(ctx, "user", "ind", "ds", 0.001)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := NewInMemory(1.0)

		_, _, err := store.TryDebit(ctx, "user-a", "ind", "ds", 0.9)
		require.NoError(t, err)

		_, found, err := store.Balance(ctx, "user-b", "ind", "ds")
		require.NoError(t, err)
		assert.False(t, found)

		ok, remaining, err := store.TryDebit(ctx, "user-b", "ind", "ds", 0.9)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.InDelta(t, 0.1, remaining, 1e-12)
	})
}

func TestInMemoryStore_Credit(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(1.0)

	ok, _, err := store.TryDebit(ctx, "user", "ind", "ds", 0.4)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Credit(ctx, "user", "ind", "ds", 0.4))

	balance, found, err := store.Balance(ctx, "user", "ind", "ds")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 1.0, balance, 1e-12, "credit restores the exact pre-debit value")
}

func TestInMemoryStore_CreditWithoutEntry(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(1.0)

	require.NoError(t, store.Credit(ctx, "user", "ind", "ds", 0.4))

	balance, found, err := store.Balance(ctx, "user", "ind", "ds")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 1.0, balance, 1e-12, "credit without prior debit lands at the initial budget")
}

func TestInMemoryStore_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	const goroutines = 50
	const amount = 0.01

	store := NewInMemory(goroutines * amount)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, _, err := store.TryDebit(ctx, "user", "ind", "ds", amount)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, found, err := store.Balance(ctx, "user", "ind", "ds")
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 0.0, balance, 1e-9, "concurrent debits must account exactly")
	assert.GreaterOrEqual(t, balance, 0.0, "committed budget never goes negative")
}

func TestInMemoryStore_ConcurrentOverdraw(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(1.0)

	// 100 goroutines each try to take 0.3; only 3 can succeed.
	const goroutines = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			ok, _, err := store.TryDebit(ctx, "user", "ind", "ds", 0.3)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)

	balance, _, err := store.Balance(ctx, "user", "ind", "ds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, balance, 0.0)
}
