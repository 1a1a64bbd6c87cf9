// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Backend names a cache implementation.
type Backend string

// Cache backends
const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config holds configuration for cache creation.
type Config struct {
	Backend Backend

	// RedisURL and Prefix apply to the redis backend only.
	RedisURL string
	Prefix   string

	// FallbackToMemory keeps the portal running on an in-memory cache when
	// Redis is unreachable at startup.
	FallbackToMemory bool

	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration
}

// DefaultConfig returns the in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendMemory,
		FallbackToMemory: true,
		DefaultTTL:       5 * time.Minute,
		MaxSize:          10000,
		CleanupInterval:  time.Minute,
	}
}

// Result describes the cache that was actually created.
type Result struct {
	Cache      Cacher
	Backend    Backend
	IsFallback bool
}

// New creates a cache for cfg, falling back to memory when allowed.
func New(cfg Config) (Result, error) {
	if cfg.Backend == BackendRedis {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			slog.Info("using redis cache", "url", SanitizeRedisURL(cfg.RedisURL))
			return Result{Cache: rc, Backend: BackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return Result{}, fmt.Errorf("connecting to redis at %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
		}
		slog.Warn("redis unavailable, falling back to memory cache",
			"url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return Result{Cache: newMemory(cfg), Backend: BackendMemory, IsFallback: true}, nil
	}

	return Result{Cache: newMemory(cfg), Backend: BackendMemory}, nil
}

func newMemory(cfg Config) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
