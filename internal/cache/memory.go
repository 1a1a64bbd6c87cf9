// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is a process-local Cacher. When MaxSize is reached the least
// recently used entry is evicted, after expired entries have been dropped.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	bytes   int64
	stats   Stats

	defaultTTL time.Duration
	maxSize    int // 0 = unlimited
	now        func() time.Time

	closed bool
	stop   chan struct{}
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCacheOptions configures the memory cache.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int           // Maximum number of entries (0 = unlimited)
	CleanupInterval time.Duration // 0 disables the background sweep
}

// NewMemoryCache creates a memory cache. Call Close to stop the sweeper.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		defaultTTL: opts.DefaultTTL,
		maxSize:    opts.MaxSize,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.sweep(opts.CleanupInterval)
	}
	return c
}

// NewSimpleMemoryCache creates an unbounded memory cache with a default TTL.
func NewSimpleMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      ttl,
		CleanupInterval: time.Minute,
	})
}

// lookup returns the live entry for key, dropping it if expired.
// Callers hold c.mu.
func (c *MemoryCache) lookup(key string) (*list.Element, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if el.Value.(*memoryEntry).expired(c.now()) {
		c.removeElement(el)
		return nil, false
	}
	return el, true
}

func (c *MemoryCache) removeElement(el *list.Element) {
	e := c.lru.Remove(el).(*memoryEntry)
	delete(c.entries, e.key)
	c.bytes -= int64(len(e.value))
}

// Get returns a copy of the stored value.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}

	el, ok := c.lookup(key)
	if !ok {
		c.stats.Misses++
		return nil, ErrCacheMiss
	}
	c.lru.MoveToFront(el)
	c.stats.Hits++
	return append([]byte(nil), el.Value.(*memoryEntry).value...), nil
}

// Set stores a copy of value. A zero ttl means the default TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	entry := &memoryEntry{
		key:       key,
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	if el, ok := c.entries[key]; ok {
		c.bytes -= int64(len(el.Value.(*memoryEntry).value))
		el.Value = entry
		c.lru.MoveToFront(el)
	} else {
		c.makeRoom()
		c.entries[key] = c.lru.PushFront(entry)
	}
	c.bytes += int64(len(entry.value))
	c.stats.Sets++
	return nil
}

// makeRoom frees one slot when the cache is full. Callers hold c.mu.
func (c *MemoryCache) makeRoom() {
	if c.maxSize <= 0 || c.lru.Len() < c.maxSize {
		return
	}
	c.dropExpired()
	if c.lru.Len() >= c.maxSize {
		c.removeElement(c.lru.Back())
	}
}

func (c *MemoryCache) dropExpired() {
	now := c.now()
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*memoryEntry).expired(now) {
			c.removeElement(el)
		}
		el = next
	}
}

// Delete removes a key from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// DeleteByPrefix removes all keys starting with prefix.
func (c *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(el)
		}
	}
	return nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	clear(c.entries)
	c.lru.Init()
	c.bytes = 0
	return nil
}

// Has reports whether a live entry exists without touching its recency.
func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrCacheClosed
	}
	_, ok := c.lookup(key)
	return ok, nil
}

// Close stops the sweeper. Further calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.stop)
	}
	return nil
}

// Stats returns current cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Items = c.lru.Len()
	s.Size = c.bytes
	s.HitRate = hitRate(s.Hits, s.Misses)
	return s
}

// ResetStats zeroes the hit, miss and set counters.
func (c *MemoryCache) ResetStats() {
	c.mu.Lock()
	c.stats = Stats{}
	c.mu.Unlock()
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.dropExpired()
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

var (
	_ Cacher        = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
