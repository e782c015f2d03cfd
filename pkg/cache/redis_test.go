package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prediction struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	rc, err := NewRedisCache(WithRedisAddr(mr.Addr()), WithRedisPrefix("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc, mr
}

func TestRedisCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupRedisCache(t)

	require.NoError(t, rc.Set(ctx, "prediction:AAPL", prediction{Symbol: "AAPL", Price: 201.3}, time.Second))
	assert.True(t, mr.Exists("test:prediction:AAPL"))

	got, err := GetTyped[prediction](ctx, rc, "prediction:AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)

	mr.FastForward(2 * time.Second)
	_, err = GetTyped[prediction](ctx, rc, "prediction:AAPL")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_ClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupRedisCache(t)

	require.NoError(t, rc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, rc.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, mr.Set("other:c", "3"))

	require.NoError(t, rc.Clear(ctx))

	ok, err := rc.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("other:c"))
}

func TestNewRedisCache_PingFailure(t *testing.T) {
	_, err := NewRedisCache(WithRedisAddr("127.0.0.1:1"))
	assert.Error(t, err)
}

func TestLayeredCache_ReadThroughFillsMemory(t *testing.T) {
	ctx := context.Background()
	rc, _ := setupRedisCache(t)
	lc := NewLayeredCache(rc, WithLayeredMemorySize(10))

	// value written only to L2
	require.NoError(t, rc.Set(ctx, "k", prediction{Symbol: "MSFT", Price: 400}, time.Minute))

	got, err := GetTyped[prediction](ctx, lc, "k")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got.Symbol)

	ok, _ := lc.memCache.Exists(ctx, "k")
	assert.True(t, ok)

	require.NoError(t, lc.Delete(ctx, "k"))
	_, err = GetTyped[prediction](ctx, lc, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredCache_WriteThroughAndClear(t *testing.T) {
	ctx := context.Background()
	rc, mr := setupRedisCache(t)
	lc := NewLayeredCache(rc)

	require.NoError(t, lc.Set(ctx, "k", "v", time.Minute))
	assert.True(t, mr.Exists("test:k"))

	require.NoError(t, lc.Clear(ctx))
	ok, err := lc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
