package utils

import (
	"sync"
	"time"
)

// TTLCacheItem represents a cache item with expiration
type TTLCacheItem struct {
	Value     interface{}
	ExpiresAt time.Time
}

// IsExpired checks if the cache item has expired at now
func (item TTLCacheItem) IsExpired(now time.Time) bool {
	return now.After(item.ExpiresAt)
}

// TTLCache is a thread-safe cache with TTL (Time To Live) support
type TTLCache struct {
	items map[string]TTLCacheItem
	mutex sync.Mutex
	ttl   time.Duration
	now   func() time.Time
}

// NewTTLCache creates a new TTL cache with the specified default TTL
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		items: make(map[string]TTLCacheItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Set stores a value in the cache with the default TTL
func (c *TTLCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = TTLCacheItem{
		Value:     value,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// Get retrieves a value that has not expired
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.lookup(key)
}

// Take retrieves a value and removes it in one step, so a key can be
// consumed at most once
func (c *TTLCache) Take(key string) (interface{}, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	value, ok := c.lookup(key)
	delete(c.items, key)
	return value, ok
}

// lookup must be called with the mutex held
func (c *TTLCache) lookup(key string) (interface{}, bool) {
	item, exists := c.items[key]
	if !exists {
		return nil, false
	}
	if item.IsExpired(c.now()) {
		delete(c.items, key)
		return nil, false
	}
	return item.Value, true
}

// Delete removes a value from the cache
func (c *TTLCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Size returns the number of items in the cache (including expired items)
func (c *TTLCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.items)
}

// CleanupExpired removes all expired items from the cache
func (c *TTLCache) CleanupExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	count := 0
	for key, item := range c.items {
		if item.IsExpired(now) {
			delete(c.items, key)
			count++
		}
	}

	return count
}

// StartCleanupGoroutine starts a background goroutine that periodically cleans
// up expired items. It runs until the returned stop function is called;
// stop returns once the goroutine has exited.
func (c *TTLCache) StartCleanupGoroutine(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.CleanupExpired()
			case <-done:
				return
			}
		}
	}()

	return sync.OnceFunc(func() {
		close(done)
		<-exited
	})
}
