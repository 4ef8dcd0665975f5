// # internal/engine/classpath/cache.go
package classpath

import (
	"container/list"
	"sync"
	"time"

	"bazelcp/internal/shared/observability"
)

// NoExpiry disables time-based expiry; entries live until invalidated or
// pushed out by capacity.
const NoExpiry time.Duration = -1

// DefaultTTL matches the resolution cache timeout used by IDE integrations.
const DefaultTTL = 5 * time.Minute

// Cache is a thread-safe LRU with per-entry expiry. An expired entry is
// evicted by the read that finds it and reported as a miss.
//
//	cache := NewCache[string, *Result]("classpath", DefaultTTL, 512)
//	cache.Put("app", res)
//	if v, ok := cache.Get("app"); ok { ... }
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	name     string
	ttl      time.Duration
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most-recently used
	now      func() time.Time
}

type cacheEntry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// NewCache creates a cache. ttl <= 0 other than NoExpiry falls back to
// DefaultTTL; capacity <= 0 means unbounded.
func NewCache[K comparable, V any](name string, ttl time.Duration, capacity int) *Cache[K, V] {
	if ttl == 0 || (ttl < 0 && ttl != NoExpiry) {
		ttl = DefaultTTL
	}
	return &Cache[K, V]{
		name:     name,
		ttl:      ttl,
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		observability.CacheEventsTotal.WithLabelValues(c.name, "miss").Inc()
		return zero, false
	}
	entry := el.Value.(*cacheEntry[K, V])
	if c.expiredLocked(entry) {
		c.order.Remove(el)
		delete(c.items, key)
		observability.CacheEventsTotal.WithLabelValues(c.name, "expired").Inc()
		return zero, false
	}
	c.order.MoveToFront(el)
	observability.CacheEventsTotal.WithLabelValues(c.name, "hit").Inc()
	return entry.value, true
}

// Put inserts or replaces key and restarts its expiry window.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*cacheEntry[K, V])
		entry.value = value
		entry.storedAt = now
		return
	}
	if c.capacity > 0 && c.order.Len() >= c.capacity {
		c.evictLeastRecentLocked()
	}
	c.items[key] = c.order.PushFront(&cacheEntry[K, V]{key: key, value: value, storedAt: now})
}

// Invalidate removes key. It is a no-op if the key does not exist.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
		observability.CacheEventsTotal.WithLabelValues(c.name, "invalidated").Inc()
	}
}

// InvalidateFunc removes every key matching pred and returns how many went.
func (c *Cache[K, V]) InvalidateFunc(pred func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.items {
		if pred(key) {
			c.order.Remove(el)
			delete(c.items, key)
			removed++
		}
	}
	if removed > 0 {
		observability.CacheEventsTotal.WithLabelValues(c.name, "invalidated").Add(float64(removed))
	}
	return removed
}

func (c *Cache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Len counts stored entries, including ones that expired but were not read yet.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) expiredLocked(e *cacheEntry[K, V]) bool {
	if c.ttl == NoExpiry {
		return false
	}
	return c.now().Sub(e.storedAt) > c.ttl
}

// evictLeastRecentLocked removes the back (least-recently-used) element.
// Caller must hold c.mu.
func (c *Cache[K, V]) evictLeastRecentLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.order.Remove(back)
	delete(c.items, back.Value.(*cacheEntry[K, V]).key)
	observability.CacheEventsTotal.WithLabelValues(c.name, "evicted").Inc()
}
