package cache

import (
	"context"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

func (i *item[V]) expired(now time.Time) bool {
	return !i.expiresAt.After(now)
}

// inflight tracks the GetOrLoad calls running for one key. gen moves on
// every write to the key so a load that started earlier can tell its result
// is stale.
type inflight struct {
	count int
	gen   uint64
}

// Cache is a thread-safe in-memory map with per-entry TTL. Expired entries
// are invisible to readers and are dropped by a background cleanup loop.
type Cache[K comparable, V any] struct {
	items           map[K]*item[V]
	loads           map[K]*inflight
	mu              sync.Mutex
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// New creates a cache and starts its cleanup goroutine. Call Stop to release it.
func New[K comparable, V any](defaultTTL time.Duration) *Cache[K, V] {
	interval := defaultTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	c := &Cache[K, V]{
		items:           make(map[K]*item[V]),
		loads:           make(map[K]*inflight),
		defaultTTL:      defaultTTL,
		cleanupInterval: interval,
		now:             time.Now,
		stopCleanup:     make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Get returns the live value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.items[key]
	if !ok || it.expired(c.now()) {
		return zero, false
	}
	return it.value, true
}

// Take returns the live value for key and removes it in one step.
func (c *Cache[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.items[key]
	if !ok {
		return zero, false
	}
	delete(c.items, key)
	c.invalidateLoads(key)
	if it.expired(c.now()) {
		return zero, false
	}
	return it.value, true
}

// Set stores value with the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &item[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.invalidateLoads(key)
}

// Delete removes key and reports whether a live entry was removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLoads(key)
	it, ok := c.items[key]
	if !ok {
		return false
	}
	delete(c.items, key)
	return !it.expired(c.now())
}

// invalidateLoads must be called with mu held.
func (c *Cache[K, V]) invalidateLoads(key K) {
	if l, ok := c.loads[key]; ok {
		l.gen++
	}
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, it := range c.items {
		if !it.expired(now) {
			n++
		}
	}
	return n
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached. A result is returned but not cached when the key
// was written or deleted while load ran.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	if it, ok := c.items[key]; ok && !it.expired(c.now()) {
		c.mu.Unlock()
		return it.value, nil
	}
	l, ok := c.loads[key]
	if !ok {
		l = &inflight{}
		c.loads[key] = l
	}
	l.count++
	gen := l.gen
	c.mu.Unlock()

	v, err := load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && l.gen == gen {
		c.items[key] = &item[V]{value: v, expiresAt: c.now().Add(c.defaultTTL)}
	}
	l.count--
	if l.count == 0 {
		delete(c.loads, key)
	}
	return v, err
}

func (c *Cache[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		}
	}
}

func (c *Cache[K, V]) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache[K, V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}
