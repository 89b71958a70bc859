package core

import (
	"sync"
	"time"
)

var cacheNowFunc = time.Now // mockable

type (
	cacheEntry struct {
		value     interface{}
		expiresAt time.Time
	}

	cacheFlight struct {
		done  chan struct{}
		gen   uint64
		value interface{}
		err   error
	}

	// Cache is a keyed TTL cache. Concurrent loads of the same key are
	// coalesced so at most one loader runs per key at a time; mutations
	// invalidate keys explicitly.
	Cache struct {
		mu      sync.Mutex
		entries map[string]cacheEntry
		flights map[string]*cacheFlight
		gens    map[string]uint64
	}
)

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		flights: make(map[string]*cacheFlight),
		gens:    make(map[string]uint64),
	}
}

// GetOrLoad returns the cached value for key if it is still fresh; otherwise
// it runs load and caches the result for ttl. Callers racing on the same key
// all wait for the single in-flight load.
func (c *Cache) GetOrLoad(key string, ttl time.Duration, load func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && cacheNowFunc().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.value, nil
	}
	if flight, ok := c.flights[key]; ok {
		c.mu.Unlock()
		<-flight.done
		return flight.value, flight.err
	}

	flight := &cacheFlight{done: make(chan struct{}), gen: c.gens[key]}
	c.flights[key] = flight
	c.mu.Unlock()

	flight.value, flight.err = load()

	c.mu.Lock()
	delete(c.flights, key)
	// a flight that raced an invalidation loaded pre-mutation state;
	// return it to the waiters but do not cache it.
	if flight.err == nil && flight.gen == c.gens[key] {
		c.entries[key] = cacheEntry{value: flight.value, expiresAt: cacheNowFunc().Add(ttl)}
	}
	c.mu.Unlock()
	close(flight.done)

	return flight.value, flight.err
}

// Get returns the fresh cached value for key, if any.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || !cacheNowFunc().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Invalidate drops the given keys. In-flight loads are not interrupted.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
		c.gens[key]++
	}
}
