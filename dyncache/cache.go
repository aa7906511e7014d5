package dyncache

import (
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/ipni/go-dynconf/expiration"
	"github.com/ipni/go-dynconf/resolver"
	"github.com/ipni/go-dynconf/stats"
)

var log = logging.Logger("dynconf/cache")

// Usage is implemented by cached values.
type Usage interface {
	Statistics() *stats.Stats
}

// CreateFunc builds the value for a key that is not cached. It is called with
// the cache's exclusive lock held, and must not call back into the cache.
type CreateFunc[V Usage] func(resolver.Key) (V, error)

// Cache maps resolved keys to values, creating each value at most once.
type Cache[V Usage] struct {
	lock   sync.RWMutex
	values map[resolver.Key]V
}

// New creates an empty cache.
func New[V Usage]() *Cache[V] {
	return &Cache[V]{
		values: make(map[resolver.Key]V),
	}
}

// GetOrCreate returns the value cached for key, calling create to build it if
// it is not cached. The returned bool is true if this call created the value.
//
// The value's BeginUse is called before GetOrCreate returns, and the caller
// must call EndUse when done with it. If create returns an error, nothing is
// cached and the error is returned.
func (c *Cache[V]) GetOrCreate(key resolver.Key, create CreateFunc[V]) (V, bool, error) {
	c.lock.RLock()
	v, ok := c.values[key]
	if ok {
		// Account inside the lock so that a sweep cannot evict v between
		// lookup and use.
		v.Statistics().BeginUse()
		c.lock.RUnlock()
		return v, false, nil
	}
	c.lock.RUnlock()

	c.lock.Lock()
	defer c.lock.Unlock()

	// Re-check in case another caller created it while unlocked.
	v, ok = c.values[key]
	if ok {
		v.Statistics().BeginUse()
		return v, false, nil
	}

	v, err := create(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.values[key] = v
	v.Statistics().BeginUse()
	log.Debugw("Created cache entry", "key", key, "size", len(c.values))
	return v, true, nil
}

// Get returns the value cached for key without any usage accounting.
func (c *Cache[V]) Get(key resolver.Key) (V, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// EvictIdle removes and returns all values that have no operations in flight
// and are expired according to policy at time now. The caller is responsible
// for deactivating the returned values.
func (c *Cache[V]) EvictIdle(policy expiration.Policy, now time.Time) []V {
	c.lock.Lock()
	defer c.lock.Unlock()

	var evicted []V
	for key, v := range c.values {
		st := v.Statistics()
		if st.InFlight() != 0 {
			continue
		}
		if !policy.IsExpired(st.LastUsed(), now) {
			continue
		}
		delete(c.values, key)
		evicted = append(evicted, v)
		log.Debugw("Evicted idle cache entry", "key", key, "lastUsed", st.LastUsed())
	}
	return evicted
}

// RemoveAll removes and returns every cached value, busy or not. If fn is not
// nil, it is called first within the same exclusive section, so no value can
// be looked up or created between fn and the removal. fn must not call back
// into the cache.
func (c *Cache[V]) RemoveAll(fn func()) []V {
	c.lock.Lock()
	defer c.lock.Unlock()

	if fn != nil {
		fn()
	}
	if len(c.values) == 0 {
		return nil
	}
	all := make([]V, 0, len(c.values))
	for _, v := range c.values {
		all = append(all, v)
	}
	c.values = make(map[resolver.Key]V)
	return all
}

// Locked calls fn with the exclusive lock held and a snapshot of all cached
// values. No value is created or evicted while fn runs. fn must not call back
// into the cache.
func (c *Cache[V]) Locked(fn func([]V)) {
	c.lock.Lock()
	defer c.lock.Unlock()

	all := make([]V, 0, len(c.values))
	for _, v := range c.values {
		all = append(all, v)
	}
	fn(all)
}

// Keys returns the keys of all cached values.
func (c *Cache[V]) Keys() []resolver.Key {
	c.lock.RLock()
	defer c.lock.RUnlock()

	keys := make([]resolver.Key, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of cached values.
func (c *Cache[V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.values)
}
