package cache

import (
	"context"
	"sync"
	"time"
)

// Config holds the configuration for the in-memory cache.
type Config struct {
	// DefaultTTL is used by Set. Zero means entries never expire.
	DefaultTTL time.Duration
	// CleanupInterval is how often expired entries are swept. Zero disables the sweeper.
	CleanupInterval time.Duration
	// MaxItems bounds the number of entries. Zero means unbounded.
	MaxItems int
	// OnEviction is called when an entry is removed because it expired or the cache was full.
	OnEviction func(key string, value any)
}

type item struct {
	value     any
	expiresAt time.Time
	createdAt time.Time
}

func (i *item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is a thread-safe in-memory cache with per-entry TTL.
type Cache struct {
	config Config
	mu     sync.RWMutex
	items  map[string]*item

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache and starts its cleanup goroutine when configured.
func New(config Config) *Cache {
	c := &Cache{
		config: config,
		items:  make(map[string]*item),
		stop:   make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go c.cleanupLoop(config.CleanupInterval)
	}
	return c
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	now := time.Now()
	entry := &item{value: value, createdAt: now}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	if _, exists := c.items[key]; !exists && c.config.MaxItems > 0 && len(c.items) >= c.config.MaxItems {
		c.evictOldestLocked()
	}
	c.items[key] = entry
	c.mu.Unlock()
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		c.mu.Lock()
		if current, ok := c.items[key]; ok && current == entry {
			delete(c.items, key)
		}
		c.mu.Unlock()
		c.notifyEviction(key, entry.value)
		return nil, false
	}
	return entry.value, true
}

// Delete removes a value.
func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes every value.
func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	c.items = make(map[string]*item)
	c.mu.Unlock()
}

// Size returns the number of stored entries, including expired ones not yet swept.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) deleteExpired() {
	now := time.Now()
	evicted := make(map[string]any)

	c.mu.Lock()
	for key, entry := range c.items {
		if entry.expired(now) {
			evicted[key] = entry.value
			delete(c.items, key)
		}
	}
	c.mu.Unlock()

	for key, value := range evicted {
		c.notifyEviction(key, value)
	}
}

// evictOldestLocked drops the oldest entry. Caller holds c.mu.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest *item
	for key, entry := range c.items {
		if oldest == nil || entry.createdAt.Before(oldest.createdAt) {
			oldestKey, oldest = key, entry
		}
	}
	if oldest == nil {
		return
	}
	delete(c.items, oldestKey)
	if c.config.OnEviction != nil {
		go c.config.OnEviction(oldestKey, oldest.value)
	}
}

func (c *Cache) notifyEviction(key string, value any) {
	if c.config.OnEviction != nil {
		c.config.OnEviction(key, value)
	}
}
