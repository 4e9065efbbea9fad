package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID    int32  `json:"id"`
	Topic string `json:"topic"`
}

func TestTieredCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	tc := NewTieredCache[[]*entry](nil, nil)
	defer tc.Close()

	calls := 0
	fetch := func(_ context.Context, key string) ([]*entry, error) {
		calls++
		return []*entry{{ID: 1, Topic: key}}, nil
	}

	first, err := tc.Get(ctx, "PT-01", fetch)
	require.NoError(t, err)
	second, err := tc.Get(ctx, "PT-01", fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, false, tc.Stats()["l2_enabled"])
}

func TestTieredCache_FetchErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	tc := NewTieredCache[[]*entry](nil, nil)
	defer tc.Close()

	boom := errors.New("database is down")
	_, err := tc.Get(ctx, "PT-01", func(context.Context, string) ([]*entry, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := tc.Get(ctx, "PT-01", func(context.Context, string) ([]*entry, error) {
		return []*entry{{ID: 7}}, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(7), got[0].ID)
}

func TestTieredCache_NoFetcher(t *testing.T) {
	tc := NewTieredCache[int](nil, nil)
	defer tc.Close()

	_, err := tc.Get(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestTieredCache_RedisTier(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	l2, err := NewRedisCache(ctx, &RedisCacheConfig{Addr: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)

	writer := NewTieredCache[[]*entry](&TieredCacheConfig{L1MaxItems: 10, L1TTL: time.Minute, L2TTL: time.Minute}, l2)
	_, err = writer.Get(ctx, "drop:topic:PT-01", func(context.Context, string) ([]*entry, error) {
		return []*entry{{ID: 3, Topic: "PT-01"}}, nil
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:drop:topic:PT-01"))
	assert.Equal(t, true, writer.Stats()["l2_enabled"])

	// A second process sharing Redis is served from L2 without touching L3.
	readerL2, err := NewRedisCache(ctx, &RedisCacheConfig{Addr: mr.Addr(), KeyPrefix: "test:"})
	require.NoError(t, err)
	reader := NewTieredCache[[]*entry](nil, readerL2)
	defer reader.Close()

	got, err := reader.Get(ctx, "drop:topic:PT-01", func(context.Context, string) ([]*entry, error) {
		t.Fatal("L3 should not be called")
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PT-01", got[0].Topic)

	writer.Delete(ctx, "drop:topic:PT-01")
	assert.False(t, mr.Exists("test:drop:topic:PT-01"))

	writer.Set(ctx, "drop:topic:PT-02", []*entry{{ID: 4}})
	writer.Clear(ctx)
	assert.Empty(t, mr.Keys())
	require.NoError(t, writer.Close())
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), &RedisCacheConfig{Addr: addr})
	assert.Error(t, err)
}

func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "drop:topic:PT-01", GenerateCacheKey("drop", "topic", "PT-01"))
}
