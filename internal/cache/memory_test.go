// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock drives MemoryCache expiry without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newClockedCache(opts MemoryCacheOptions) (*MemoryCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(opts)
	c.now = clock.Now
	return c, clock
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 100})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	if err := c.Set(ctx, PageKey("sobre"), []byte(`{"version":1}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, PageKey("sobre"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"version":1}` {
		t.Errorf("Get = %s", got)
	}

	_ = c.Set(ctx, PageKey("sobre"), []byte(`{"version":2}`), 0)
	got, _ = c.Get(ctx, PageKey("sobre"))
	if string(got) != `{"version":2}` {
		t.Errorf("overwrite not visible, Get = %s", got)
	}
	if n := c.Stats().Items; n != 1 {
		t.Errorf("Items = %d after overwrite, want 1", n)
	}

	if err := c.Delete(ctx, PageKey("sobre")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, PageKey("sobre")); err != ErrCacheMiss {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete of a missing key = %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, clock := newClockedCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, VerifyKey("cs_short"), []byte("paid"), 0)
	_ = c.Set(ctx, VerifyKey("cs_long"), []byte("paid"), time.Hour)

	clock.Advance(59 * time.Second)
	if has, _ := c.Has(ctx, VerifyKey("cs_short")); !has {
		t.Error("entry expired early")
	}

	clock.Advance(2 * time.Second)
	if _, err := c.Get(ctx, VerifyKey("cs_short")); err != ErrCacheMiss {
		t.Errorf("Get of expired entry = %v, want ErrCacheMiss", err)
	}
	if _, err := c.Get(ctx, VerifyKey("cs_long")); err != nil {
		t.Errorf("Get of live entry = %v", err)
	}
	if n := c.Stats().Items; n != 1 {
		t.Errorf("expired entry still counted, Items = %d", n)
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newClockedCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 2})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_, _ = c.Get(ctx, "a") // b is now the oldest
	_ = c.Set(ctx, "c", []byte("3"), 0)

	if has, _ := c.Has(ctx, "b"); has {
		t.Error("least recently used entry should be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if has, _ := c.Has(ctx, k); !has {
			t.Errorf("%s should survive", k)
		}
	}
	if n := c.Stats().Items; n != 2 {
		t.Errorf("Items = %d, want 2", n)
	}
}

func TestMemoryCache_FullCacheDropsExpiredFirst(t *testing.T) {
	c, clock := newClockedCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 2})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "stale", []byte("1"), time.Second)
	_ = c.Set(ctx, "fresh", []byte("2"), 0)
	_, _ = c.Get(ctx, "stale")
	clock.Advance(time.Minute)

	_ = c.Set(ctx, "new", []byte("3"), 0)
	if has, _ := c.Has(ctx, "fresh"); !has {
		t.Error("live entry evicted while an expired one was available")
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	c := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, PageKey("sobre"), []byte("a"), 0)
	_ = c.Set(ctx, PageKey("contato"), []byte("b"), 0)
	_ = c.Set(ctx, CategoriesKey(), []byte("c"), 0)

	if err := c.DeleteByPrefix(ctx, PrefixPages); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	for _, slug := range []string{"sobre", "contato"} {
		if has, _ := c.Has(ctx, PageKey(slug)); has {
			t.Errorf("page %s survived prefix delete", slug)
		}
	}
	if has, _ := c.Has(ctx, CategoriesKey()); !has {
		t.Error("category listing should survive a page invalidation")
	}

	_ = c.Clear(ctx)
	if s := c.Stats(); s.Items != 0 || s.Size != 0 {
		t.Errorf("Clear left %+v", s)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("abcd"), 0)
	_ = c.Set(ctx, "k", []byte("ab"), 0)
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "missing")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Sets != 2 {
		t.Errorf("counters = %+v", s)
	}
	if s.HitRate != 50 {
		t.Errorf("HitRate = %v, want 50", s.HitRate)
	}
	if s.Size != 2 {
		t.Errorf("Size = %d, want 2 after overwrite", s.Size)
	}

	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Sets != 0 || s.Items != 1 {
		t.Errorf("after ResetStats = %+v", s)
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	c := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	in := []byte("hello")
	_ = c.Set(ctx, "k", in, 0)
	in[0] = 'j'

	out, _ := c.Get(ctx, "k")
	out[0] = 'y'

	again, _ := c.Get(ctx, "k")
	if string(again) != "hello" {
		t.Errorf("stored value aliased a caller slice: %s", again)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 4})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("%s%d", PrefixVerify, n%6)
			for range 100 {
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
				_ = c.DeleteByPrefix(ctx, PrefixPages)
			}
		}(i)
	}
	wg.Wait()

	if n := c.Stats().Items; n > 4 {
		t.Errorf("Items = %d exceeds MaxSize", n)
	}
}

func TestMemoryCache_Closed(t *testing.T) {
	c := NewSimpleMemoryCache(time.Hour)
	ctx := context.Background()

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("Get = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", nil, 0); err != ErrCacheClosed {
		t.Errorf("Set = %v, want ErrCacheClosed", err)
	}
	if _, err := c.Has(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("Has = %v, want ErrCacheClosed", err)
	}
}
