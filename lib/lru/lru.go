// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lru provides a bounded least-recently-used cache whose
// entries are checked out rather than shared.
//
// [Cache.Take] removes the entry it returns, so a value is held by at
// most one user at a time; the user hands it back with [Cache.Put].
// This fits resources that are not safe to share, such as prepared
// statements: a value that is checked out cannot be evicted underneath
// its user.
//
// The OnEvict hook runs synchronously under the cache lock for every
// value that leaves the cache other than through Take: capacity
// evictions, replaced duplicates and Purge. It must not call back into
// the cache.
package lru

import (
	"container/list"
	"sync"
)

// Stats reports cache activity since creation.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a thread-safe LRU cache. The zero value is not usable; call
// New.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	maxSize   int
	onEvict   func(key K, value V)
	entries   map[K]*list.Element
	evictList *list.List
	stats     Stats
}

// New returns a cache holding at most maxSize entries. With maxSize 0
// every Put evicts immediately. onEvict may be nil.
func New[K comparable, V any](maxSize int, onEvict func(key K, value V)) *Cache[K, V] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Cache[K, V]{
		maxSize:   maxSize,
		onEvict:   onEvict,
		entries:   make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Take removes and returns the value stored under key.
func (c *Cache[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	c.evictList.Remove(element)
	delete(c.entries, key)
	return element.Value.(*entry[K, V]).value, true
}

// Put stores value under key as the most recently used entry. A value
// already stored under key is evicted, as is the least recently used
// entry once the cache is over capacity.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		c.evictElement(element)
	}
	c.entries[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: value})
	for c.evictList.Len() > c.maxSize {
		c.evictElement(c.evictList.Back())
	}
}

// Purge evicts every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for element := c.evictList.Back(); element != nil; element = c.evictList.Back() {
		c.evictElement(element)
	}
}

// Contains reports whether key is cached, without touching recency.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns a snapshot of cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.evictList.Len()
	stats.MaxSize = c.maxSize
	return stats
}

func (c *Cache[K, V]) evictElement(element *list.Element) {
	item := element.Value.(*entry[K, V])
	c.evictList.Remove(element)
	delete(c.entries, item.key)
	c.stats.Evictions++
	if c.onEvict != nil {
		c.onEvict(item.key, item.value)
	}
}
