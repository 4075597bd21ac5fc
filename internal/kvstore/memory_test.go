package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-sender/internal/kvstore"
)

func TestMemoryGetSetRemove(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory(0)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v1"))

	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, store.Set(ctx, "k", "v2"))

	v, _, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, store.Remove(ctx, "k"))

	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an absent key is not an error.
	require.NoError(t, store.Remove(ctx, "k"))
}

func TestMemoryUsageAccounting(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory(100)

	usage, err := store.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, kvstore.Usage{Used: 0, Quota: 100}, usage)

	require.NoError(t, store.Set(ctx, "key", "0123456789")) // 13 bytes

	usage, err = store.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(13), usage.Used)

	// Overwriting replaces, it does not accumulate.
	require.NoError(t, store.Set(ctx, "key", "01234"))

	usage, err = store.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), usage.Used)

	require.NoError(t, store.Remove(ctx, "key"))

	usage, err = store.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Used)
}

func TestMemoryQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory(10)

	err := store.Set(ctx, "key", "way too much content")
	require.ErrorIs(t, err, kvstore.ErrQuotaExceeded)

	// The failed write must not consume quota.
	usage, usageErr := store.Usage(ctx)
	require.NoError(t, usageErr)
	assert.Equal(t, int64(0), usage.Used)

	require.NoError(t, store.Set(ctx, "k", "12345"))

	// Replacing within quota still works at the boundary.
	require.NoError(t, store.Set(ctx, "k", "123456789"))
	assert.ErrorIs(t, store.Set(ctx, "k", "1234567890"), kvstore.ErrQuotaExceeded)
}
