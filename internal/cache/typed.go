// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// genPrefix holds the generation token of a GetOrSet key.
const genPrefix = "gen:"

// TypedCache stores JSON-encoded values of one type in a Cacher. Misses in
// GetOrSet are collapsed, so a cold category listing is loaded once no
// matter how many requests arrive together.
type TypedCache[T any] struct {
	backend Cacher
	ttl     time.Duration
	loads   singleflight.Group
}

// NewTypedCache wraps backend. A nil backend never hits and never stores.
func NewTypedCache[T any](backend Cacher, ttl time.Duration) *TypedCache[T] {
	return &TypedCache[T]{backend: backend, ttl: ttl}
}

// Get returns the cached value and true on a hit. Undecodable entries
// count as misses.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	if c.backend == nil {
		return nil, false
	}
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	v := new(T)
	if json.Unmarshal(raw, v) != nil {
		return nil, false
	}
	return v, true
}

// Set stores v with the cache's TTL.
func (c *TypedCache[T]) Set(ctx context.Context, key string, v *T) error {
	return c.SetWithTTL(ctx, key, v, c.ttl)
}

// SetWithTTL stores v with an explicit TTL.
func (c *TypedCache[T]) SetWithTTL(ctx context.Context, key string, v *T, ttl time.Duration) error {
	if c.backend == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, key, raw, ttl)
}

// Delete removes a key.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Delete(ctx, key)
}

// Invalidate removes every key under prefix.
func (c *TypedCache[T]) Invalidate(ctx context.Context, prefix string) error {
	if c.backend == nil {
		return nil
	}
	return c.backend.DeleteByPrefix(ctx, prefix)
}

// GetOrSet returns the cached value, or runs load once per key across
// concurrent callers and stores its result. A failed store still returns
// the loaded value; a failed load is not cached.
//
// Values are stored under the key's current generation. Rotate starts a new
// one, so a load that read the database before a write can never publish its
// result to readers that come after the write.
func (c *TypedCache[T]) GetOrSet(ctx context.Context, key string, load func() (*T, error)) (*T, error) {
	slot := ""
	if c.backend != nil {
		if gen, err := c.generation(ctx, key); err == nil {
			slot = key + "#" + gen
		}
	}
	if slot != "" {
		if v, ok := c.Get(ctx, slot); ok {
			return v, nil
		}
	}

	flight := slot
	if flight == "" {
		flight = key
	}
	res, err, _ := c.loads.Do(flight, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		if slot != "" {
			_ = c.Set(ctx, slot, v)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*T), nil
}

// Rotate retires every value GetOrSet cached for key. Writers call it after
// the database write commits.
func (c *TypedCache[T]) Rotate(ctx context.Context, key string) error {
	if c.backend == nil {
		return nil
	}
	if err := c.backend.DeleteByPrefix(ctx, key+"#"); err != nil {
		return err
	}
	return c.backend.Set(ctx, genPrefix+key, []byte(uuid.NewString()), 0)
}

// generation returns the token of key, starting one when none is stored.
func (c *TypedCache[T]) generation(ctx context.Context, key string) (string, error) {
	raw, err := c.backend.Get(ctx, genPrefix+key)
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return "", err
	}
	gen := uuid.NewString()
	if err := c.backend.Set(ctx, genPrefix+key, []byte(gen), 0); err != nil {
		return "", err
	}
	return gen, nil
}
