package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// TieredCache implements a three-tier read-through cache:
// - L1: In-memory cache (fast, small, DEFAULT)
// - L2: Redis cache (shared between processes, OPTIONAL)
// - L3: Database callback (slow, authoritative)
//
// Values stored in L2 are JSON encoded, so T must round-trip through encoding/json.
// Errors from L3 are returned to the caller and never cached.
type TieredCache[T any] struct {
	l1    *Cache
	l2    RedisCacheInterface
	l2TTL time.Duration
}

// L3Fetcher is the function to fetch data from the database (L3).
type L3Fetcher[T any] func(ctx context.Context, key string) (T, error)

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int           // Max items in L1 memory cache
	L1TTL      time.Duration // TTL for L1 cache entries
	L2TTL      time.Duration // TTL for L2 Redis cache entries
}

// DefaultTieredConfig returns the default tiered cache configuration.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems: 1000,
		L1TTL:      5 * time.Minute,
		L2TTL:      30 * time.Minute,
	}
}

// NewTieredCache creates a tiered cache. A nil l2 disables the Redis tier.
func NewTieredCache[T any](config *TieredCacheConfig, l2 RedisCacheInterface) *TieredCache[T] {
	if config == nil {
		config = DefaultTieredConfig()
	}
	if l2 == nil {
		l2 = NewNilRedisCache()
	}
	return &TieredCache[T]{
		l1: New(Config{
			DefaultTTL:      config.L1TTL,
			CleanupInterval: time.Minute,
			MaxItems:        config.L1MaxItems,
		}),
		l2:    l2,
		l2TTL: config.L2TTL,
	}
}

// Get retrieves a value from the cache, checking L1, then L2, then L3.
func (t *TieredCache[T]) Get(ctx context.Context, key string, fetcher L3Fetcher[T]) (T, error) {
	if value, found := t.l1.Get(ctx, key); found {
		if typed, ok := value.(T); ok {
			return typed, nil
		}
	}

	if data, found := t.l2.Get(ctx, key); found {
		var value T
		err := json.Unmarshal(data, &value)
		if err == nil {
			t.l1.Set(ctx, key, value)
			return value, nil
		}
		slog.Warn("discarding undecodable cache value", slog.String("key", key), slog.String("error", err.Error()))
		t.l2.Delete(ctx, key)
	}

	var zero T
	if fetcher == nil {
		return zero, errors.Errorf("cache miss for %q and no fetcher", key)
	}
	value, err := fetcher(ctx, key)
	if err != nil {
		return zero, err
	}
	t.Set(ctx, key, value)
	return value, nil
}

// Set stores a value in both L1 and L2.
func (t *TieredCache[T]) Set(ctx context.Context, key string, value T) {
	t.l1.Set(ctx, key, value)

	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("failed to marshal cache value", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	t.l2.SetWithTTL(ctx, key, data, t.l2TTL)
}

// Delete removes a value from both L1 and L2.
func (t *TieredCache[T]) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	t.l2.Delete(ctx, key)
}

// Clear clears all tiers.
func (t *TieredCache[T]) Clear(ctx context.Context) {
	t.l1.Clear(ctx)
	t.l2.Clear(ctx)
}

// Stats returns cache statistics.
func (t *TieredCache[T]) Stats() map[string]any {
	_, nilL2 := t.l2.(*NilRedisCache)
	return map[string]any{
		"l1_size":    t.l1.Size(),
		"l2_enabled": !nilL2,
	}
}

// Close closes all cache connections.
func (t *TieredCache[T]) Close() error {
	var errs []error
	if err := t.l2.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.l1.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("multiple errors: %v", errs)
	}
	return nil
}
