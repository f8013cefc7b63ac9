package plugin

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// Key derives a deterministic cache key from values: their canonical JSON
// (map keys sorted) hashed with BLAKE2b-256.
func Key(parts ...any) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			b = []byte(fmt.Sprintf("%#v", p))
		}
		h.Write(b)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache memoizes generation results by key. Completed values are kept for
// the cache's lifetime, concurrent requests for one key share a single call
// and failures are not stored.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]V
	group   singleflight.Group
}

func NewCache[V any]() *Cache[V] { return &Cache[V]{entries: make(map[string]V)} }

// Get returns the value for key, calling fn to produce it when absent.
func (c *Cache[V]) Get(key string, fn func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	out, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.entries == nil {
			c.entries = make(map[string]V)
		}
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := out.(V)
	return v, nil
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Len is the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Forget evicts key.
func (c *Cache[V]) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// Store holds the named caches of one render invocation.
type Store struct {
	mu     sync.Mutex
	caches map[string]any
}

func NewStore() *Store { return &Store{caches: make(map[string]any)} }

// CacheFor returns the cache registered under name, creating it on first
// use. A nil store yields a fresh, unshared cache.
func CacheFor[V any](s *Store, name string) *Cache[V] {
	if s == nil {
		return NewCache[V]()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[name].(*Cache[V]); ok {
		return c
	}
	c := NewCache[V]()
	s.caches[name] = c
	return c
}
