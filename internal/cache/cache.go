package cache

import (
	"context"
	"sync"
	"time"

	"github.com/daymate/daymate/internal/models"
)

// Cache stores traffic lookup results for a short TTL so repeated requests for
// the same location within a few minutes skip the provider round-trip.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (models.TrafficData, bool, error)
	Set(ctx context.Context, key string, value models.TrafficData, ttl time.Duration) error
}

// InMemoryCache implements Cache using a mutex-guarded map with TTL-based
// expiration. Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

// cacheEntry stores a cached traffic payload with its expiration timestamp.
type cacheEntry struct {
	value     models.TrafficData
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves the cached payload for key if present and not expired.
// Returns (data, true, nil) on hit, (zero, false, nil) on miss or expiration.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.TrafficData, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.TrafficData{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.TrafficData{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores the payload with the specified TTL. The entry expires after TTL
// elapses and is removed on the next Get.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.TrafficData, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
