package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "greeting", "hello", time.Minute))

	var got string
	require.NoError(t, mc.Get(ctx, "greeting", &got))
	assert.Equal(t, "hello", got)

	err := mc.Get(ctx, "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)

	var wrong int
	err = mc.Get(ctx, "greeting", &wrong)
	assert.Error(t, err)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "flash", "gone soon", 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	var got string
	assert.ErrorIs(t, mc.Get(ctx, "flash", &got), ErrCacheMiss)

	ok, err := mc.Exists(ctx, "flash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))

	// Touch "a" so "b" becomes the eviction candidate.
	var got string
	require.NoError(t, mc.Get(ctx, "a", &got))

	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	ok, err := mc.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.Exists(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok, "least recently used entry should be evicted")
}

func TestMemoryCacheIncrement(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	n, err := mc.Increment(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = mc.Increment(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, mc.Set(ctx, "label", "not a counter", time.Minute))
	_, err = mc.Increment(ctx, "label")
	assert.Error(t, err)
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "job:lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "job:lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be acquired twice")

	require.NoError(t, mc.Unlock(ctx, "job:lock"))

	ok, err = mc.TryLock(ctx, "job:lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheTryLockExpires(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "job:lock", 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)

	ok, err = mc.TryLock(ctx, "job:lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be reacquirable")
}

func TestMemoryCacheMGet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "s", "text", time.Minute))
	require.NoError(t, mc.Set(ctx, "n", 42, time.Minute))

	got, err := mc.MGet(ctx, "s", "n", "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"s": "text"}, got)
}

func TestMGetTyped(t *testing.T) {
	type payload struct {
		Score float64 `json:"score"`
	}

	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "aapl", `{"score":71.5}`, time.Minute))
	require.NoError(t, mc.Set(ctx, "junk", "not json", time.Minute))

	got, err := MGetTyped[payload](ctx, mc, "aapl", "junk", "missing")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 71.5, got["aapl"].Score, 1e-9)

	empty, err := MGetTyped[payload](ctx, mc)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "score:AAPL", GenerateKey("score", "AAPL"))
	assert.Equal(t, "insider:AAPL:14:90", GenerateKeyWithParams("insider", "AAPL", 14, 90))
	assert.Equal(t, "projection:MSFT", GenerateKeyWithParams("projection", "MSFT"))
	assert.Equal(t, "sentiment*", BuildPattern("sentiment"))
}

func TestMemoryCacheCloseIdempotent(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(10 * time.Millisecond))
	require.NoError(t, mc.Close())
	require.NoError(t, mc.Close())
}
