package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/memodrops/memodrops/internal/profile"
	"github.com/memodrops/memodrops/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// topicDropCache holds the drops of each topic, keyed by topic code.
	topicDropCache *cache.TieredCache[[]*Drop]
}

// New creates a new instance of Store.
// When the profile configures Redis and it is reachable, the drop catalog cache
// is shared through it; otherwise only the in-memory tier is used.
func New(driver Driver, profile *profile.Profile) *Store {
	ttl := profile.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	cacheConfig := &cache.TieredCacheConfig{
		L1MaxItems: 1000,
		L1TTL:      ttl,
		L2TTL:      3 * ttl,
	}

	var l2 cache.RedisCacheInterface
	if profile.IsRedisEnabled() {
		redisCache, err := cache.NewRedisCache(context.Background(), &cache.RedisCacheConfig{
			Addr:         profile.CacheRedisAddr,
			Password:     profile.CacheRedisPassword,
			DB:           profile.CacheRedisDB,
			KeyPrefix:    profile.CacheRedisPrefix,
			PoolSize:     10,
			MinIdleConns: 2,
		})
		if err != nil {
			slog.Warn("redis cache unavailable, using memory cache only",
				slog.String("addr", profile.CacheRedisAddr),
				slog.String("error", err.Error()))
		} else {
			l2 = redisCache
		}
	}

	return &Store{
		driver:         driver,
		profile:        profile,
		topicDropCache: cache.NewTieredCache[[]*Drop](cacheConfig, l2),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// CacheStats reports the state of the drop catalog cache.
func (s *Store) CacheStats() map[string]any {
	return s.topicDropCache.Stats()
}

func (s *Store) Close() error {
	if err := s.topicDropCache.Close(); err != nil {
		slog.Warn("failed to close drop cache", slog.String("error", err.Error()))
	}
	return s.driver.Close()
}
