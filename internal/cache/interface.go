// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the read-through caching layer used for category
// listings, page documents, the sitemap and payment verification results.
//
// Values are opaque bytes so that the in-process and Redis backends are
// interchangeable; TypedCache adds JSON encoding on top.
package cache

import (
	"context"
	"time"
)

// Cacher is a byte-oriented key/value cache safe for concurrent use.
type Cacher interface {
	// Get returns ErrCacheMiss for absent and expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for ttl; zero selects the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix drops a whole key family, e.g. PrefixPages.
	DeleteByPrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// Stats are the counters reported on the admin health endpoint.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
	Size    int64   `json:"size_bytes,omitempty"`
}

// StatsProvider is implemented by caches that keep Stats.
type StatsProvider interface {
	Stats() Stats
	ResetStats()
}

// Error is a constant cache error.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrCacheMiss   Error = "cache miss"
	ErrCacheClosed Error = "cache closed"
)

// hitRate is a percentage; zero before the first lookup.
func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return 100 * float64(hits) / float64(hits+misses)
}
