// Package cache provides a small thread-safe LRU cache for compiled kernel
// binaries.
//
//	c := cache.New[uint64, []uint32](16)
//	words, hit, err := c.GetOrCreate(key, compile)
package cache

import (
	"hash/fnv"
	"sync"
)

// Cache is a thread-safe LRU cache with a fixed capacity. Cache must not be
// copied after creation.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*node[K, V]
	order    list[K, V]
	capacity int

	hits   uint64
	misses uint64
}

// New creates a cache holding at most capacity entries. A capacity below one
// is treated as one.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		entries:  make(map[K]*node[K, V], capacity),
		capacity: capacity,
	}
}

// set stores value under key, evicting the least recently used entry when
// the cache is full. c.mu must be held.
func (c *Cache[K, V]) set(key K, value V) {
	if n, ok := c.entries[key]; ok {
		n.value = value
		c.order.moveToFront(n)
		return
	}
	if len(c.entries) >= c.capacity {
		if old := c.order.back(); old != nil {
			c.order.remove(old)
			delete(c.entries, old.key)
		}
	}
	n := &node[K, V]{key: key, value: value}
	c.order.pushFront(n)
	c.entries[key] = n
}

// GetOrCreate returns the cached value for key, or calls create and caches
// its result. Errors are returned without caching. create runs under the
// cache lock, so concurrent callers never build the same key twice.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.hits++
		c.order.moveToFront(n)
		return n.value, true, nil
	}
	c.misses++
	value, err := create()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.set(key, value)
	return value, false, nil
}

// Clear removes every entry and resets the statistics.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*node[K, V], c.capacity)
	c.order = list[K, V]{}
	c.hits, c.misses = 0, 0
}

// Stats contains cache statistics.
type Stats struct {
	Len      int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Len: len(c.entries), Capacity: c.capacity, Hits: c.hits, Misses: c.misses}
}

// StringKey hashes s with 64-bit FNV-1a.
func StringKey(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// node is an entry in the recency list. Head is most recently used.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

type list[K comparable, V any] struct {
	head, tail *node[K, V]
}

func (l *list[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *list[K, V]) remove(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (l *list[K, V]) moveToFront(n *node[K, V]) {
	if l.head == n {
		return
	}
	l.remove(n)
	l.pushFront(n)
}

func (l *list[K, V]) back() *node[K, V] { return l.tail }
