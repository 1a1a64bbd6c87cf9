// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint for SCAN and the UNLINK batch size.
const scanBatch = 200

// RedisCache is a Cacher shared by every portal instance behind the same
// Redis. All keys live under a namespace so several deployments can share
// one database.
type RedisCache struct {
	client     *redis.Client
	namespace  string
	defaultTTL time.Duration
	closed     atomic.Bool

	hits, misses, sets atomic.Int64
}

// RedisCacheOptions configures the Redis cache.
type RedisCacheOptions struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string
	// Namespace is prepended to every key, e.g. "portal:".
	Namespace string

	DefaultTTL  time.Duration
	PoolSize    int
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

// DefaultRedisCacheOptions returns the options used by New.
func DefaultRedisCacheOptions() RedisCacheOptions {
	return RedisCacheOptions{
		Namespace:   "portal:",
		DefaultTTL:  time.Hour,
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
		IOTimeout:   3 * time.Second,
	}
}

// NewRedisCache connects and issues a PING before returning.
func NewRedisCache(opts RedisCacheOptions) (*RedisCache, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	defaults := DefaultRedisCacheOptions()
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaults.DialTimeout
	}
	ro.DialTimeout = opts.DialTimeout
	if opts.PoolSize > 0 {
		ro.PoolSize = opts.PoolSize
	}
	if opts.IOTimeout > 0 {
		ro.ReadTimeout = opts.IOTimeout
		ro.WriteTimeout = opts.IOTimeout
	}

	client := redis.NewClient(ro)
	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client, namespace: opts.Namespace, defaultTTL: opts.DefaultTTL}, nil
}

// NewRedisCacheFromURL is NewRedisCache with default options. Empty
// namespace and zero ttl keep the defaults.
func NewRedisCacheFromURL(url, namespace string, defaultTTL time.Duration) (*RedisCache, error) {
	opts := DefaultRedisCacheOptions()
	opts.URL = url
	if namespace != "" {
		opts.Namespace = namespace
	}
	if defaultTTL > 0 {
		opts.DefaultTTL = defaultTTL
	}
	return NewRedisCache(opts)
}

func (c *RedisCache) key(k string) string { return c.namespace + k }

func (c *RedisCache) live() error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return nil
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return nil, ErrCacheMiss
	case err != nil:
		return nil, err
	}
	c.hits.Add(1)
	return val, nil
}

// Set stores a value. A zero ttl means the default TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.live(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return err
	}
	c.sets.Add(1)
	return nil
}

// Delete removes a key from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.client.Del(ctx, c.key(key)).Err()
}

// DeleteByPrefix removes every key under prefix within the namespace.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.unlinkMatching(ctx, c.key(prefix)+"*")
}

// Clear removes the whole namespace.
func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.unlinkMatching(ctx, c.namespace+"*")
}

// unlinkMatching walks the keyspace with SCAN and UNLINKs matches in
// batches, so a large keyspace never blocks the server.
func (c *RedisCache) unlinkMatching(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Unlink(ctx, batch...).Err()
	}
	return nil
}

// Has checks if a key exists in the cache.
func (c *RedisCache) Has(ctx context.Context, key string) (bool, error) {
	if err := c.live(); err != nil {
		return false, err
	}
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	return n > 0, err
}

// Close closes the connection pool once.
func (c *RedisCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.client.Close()
}

// Ping is used by the readiness check.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.live(); err != nil {
		return err
	}
	return c.client.Ping(ctx).Err()
}

// Stats reports this process's hit and miss counters. Items and Size are
// not tracked for Redis.
func (c *RedisCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{Hits: hits, Misses: misses, Sets: c.sets.Load(), HitRate: hitRate(hits, misses)}
}

// ResetStats zeroes the local counters.
func (c *RedisCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
}

var (
	_ Cacher        = (*RedisCache)(nil)
	_ StatsProvider = (*RedisCache)(nil)
)
