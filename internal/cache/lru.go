package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// LRUCache is a TTL cache with size-based eviction. The optional eviction
// callback runs outside the lock for every entry removed by expiry,
// capacity or Delete.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
	onEvict func(key string, data T)
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

type Option[T any] func(*LRUCache[T])

// WithClock replaces time.Now, mainly for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRUCache[T]) { c.now = now }
}

// WithEvict registers a callback for removed entries.
func WithEvict[T any](fn func(key string, data T)) Option[T] {
	return func(c *LRUCache[T]) { c.onEvict = fn }
}

func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRUCache[T] {
	c := &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a live entry and refreshes its recency, not its TTL.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	var zero T
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		c.mu.Unlock()
		c.evicted(item)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	c.mu.Unlock()
	return item.data, true
}

// Touch extends the TTL of a live entry.
func (c *LRUCache[T]) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return false
	}
	item := elem.Value.(*cacheItem[T])
	item.expiresAt = c.now().Add(c.ttl)
	c.lru.MoveToFront(elem)
	return true
}

// Set stores data under key. Replacing an existing key does not fire the
// eviction callback.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	item := &cacheItem[T]{key: key, data: data, expiresAt: c.now().Add(c.ttl)}

	if elem, ok := c.items[key]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	c.items[key] = c.lru.PushFront(item)

	var evicted *cacheItem[T]
	if c.maxSize > 0 && c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			evicted = oldest.Value.(*cacheItem[T])
			c.removeElement(oldest)
		}
	}
	c.mu.Unlock()
	if evicted != nil {
		c.evicted(evicted)
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	item := elem.Value.(*cacheItem[T])
	c.removeElement(elem)
	c.mu.Unlock()
	c.evicted(item)
}

// DeletePrefix removes every key starting with prefix and returns how many
// entries were dropped.
func (c *LRUCache[T]) DeletePrefix(prefix string) int {
	return c.DeleteFunc(func(key string, _ T) bool { return strings.HasPrefix(key, prefix) })
}

// DeleteFunc removes every entry for which match returns true. match runs
// under the lock and must not call back into the cache.
func (c *LRUCache[T]) DeleteFunc(match func(key string, data T) bool) int {
	c.mu.Lock()
	var removed []*cacheItem[T]
	for key, elem := range c.items {
		item := elem.Value.(*cacheItem[T])
		if match(key, item.data) {
			removed = append(removed, item)
			c.removeElement(elem)
		}
	}
	c.mu.Unlock()
	for _, item := range removed {
		c.evicted(item)
	}
	return len(removed)
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

func (c *LRUCache[T]) evicted(item *cacheItem[T]) {
	if c.onEvict != nil {
		c.onEvict(item.key, item.data)
	}
}

// CleanExpired removes all expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	now := c.now()
	var removed []*cacheItem[T]
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			removed = append(removed, item)
			c.removeElement(elem)
		}
		elem = next
	}
	c.mu.Unlock()
	for _, item := range removed {
		c.evicted(item)
	}
	return len(removed)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
