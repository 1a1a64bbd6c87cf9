// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testCategory struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func TestTypedCache_BasicOperations(t *testing.T) {
	memCache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = memCache.Close() }()

	cache := NewTypedCache[testCategory](memCache, time.Hour)
	ctx := context.Background()

	cat := &testCategory{ID: 1, Slug: "noticias", Name: "Notícias"}
	if err := cache.Set(ctx, "cat:1", cat); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found := cache.Get(ctx, "cat:1")
	if !found {
		t.Fatal("expected to find cat:1")
	}
	if *got != *cat {
		t.Errorf("got %+v, want %+v", got, cat)
	}

	if err := cache.Delete(ctx, "cat:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := cache.Get(ctx, "cat:1"); found {
		t.Error("expected miss after Delete")
	}
}

func TestTypedCache_Invalidate(t *testing.T) {
	memCache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = memCache.Close() }()

	cache := NewTypedCache[testCategory](memCache, time.Hour)
	ctx := context.Background()

	_ = cache.Set(ctx, "categories:all", &testCategory{ID: 1})
	_ = cache.Set(ctx, "categories:menu", &testCategory{ID: 2})

	if err := cache.Invalidate(ctx, PrefixCategories); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, found := cache.Get(ctx, "categories:menu"); found {
		t.Error("expected miss after Invalidate")
	}
}

func TestTypedCache_GetOrSet(t *testing.T) {
	memCache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = memCache.Close() }()

	cache := NewTypedCache[testCategory](memCache, time.Hour)
	ctx := context.Background()

	calls := 0
	load := func() (*testCategory, error) {
		calls++
		return &testCategory{ID: 7, Slug: "eventos"}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, "cat:7", load)
		if err != nil {
			t.Fatalf("GetOrSet failed: %v", err)
		}
		if got.Slug != "eventos" {
			t.Errorf("Slug = %q, want eventos", got.Slug)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestTypedCache_GetOrSetError(t *testing.T) {
	memCache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = memCache.Close() }()

	cache := NewTypedCache[testCategory](memCache, time.Hour)
	ctx := context.Background()

	wantErr := errors.New("db down")
	_, err := cache.GetOrSet(ctx, "cat:9", func() (*testCategory, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if _, found := cache.Get(ctx, "cat:9"); found {
		t.Error("failed load must not be cached")
	}
}

func TestTypedCache_NilBackend(t *testing.T) {
	cache := NewTypedCache[testCategory](nil, time.Hour)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", &testCategory{ID: 1}); err != nil {
		t.Fatalf("Set on nil backend: %v", err)
	}
	if _, found := cache.Get(ctx, "k"); found {
		t.Error("nil backend must never hit")
	}

	calls := 0
	for range 2 {
		_, _ = cache.GetOrSet(ctx, "k", func() (*testCategory, error) {
			calls++
			return &testCategory{}, nil
		})
	}
	if calls != 2 {
		t.Errorf("loader called %d times, want 2", calls)
	}
}

func TestTypedCache_GetOrSetCollapsesConcurrentLoads(t *testing.T) {
	cache := NewTypedCache[testCategory](nil, time.Hour)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func() (*testCategory, error) {
		calls.Add(1)
		<-release
		return &testCategory{ID: 3, Slug: "avisos"}, nil
	}

	var wg sync.WaitGroup
	results := make([]*testCategory, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.GetOrSet(ctx, CategoriesKey(), load)
		}(i)
	}

	// Let every goroutine reach the shared load before it finishes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader ran %d times, want 1", n)
	}
	for i, r := range results {
		if r == nil || r.Slug != "avisos" {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestTypedCache_RotateOrphansInFlightLoad(t *testing.T) {
	memCache := NewSimpleMemoryCache(time.Hour)
	defer func() { _ = memCache.Close() }()

	cache := NewTypedCache[testCategory](memCache, time.Hour)
	ctx := context.Background()

	var row atomic.Value
	row.Store("antigo")
	readRow := func() (*testCategory, error) {
		return &testCategory{Slug: row.Load().(string)}, nil
	}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan *testCategory, 1)
	go func() {
		v, _ := cache.GetOrSet(ctx, CategoriesKey(), func() (*testCategory, error) {
			v, err := readRow()
			close(started)
			<-release
			return v, err
		})
		done <- v
	}()

	// The write lands while the slow reader still holds the old row.
	<-started
	row.Store("novo")
	if err := cache.Rotate(ctx, CategoriesKey()); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	close(release)
	if v := <-done; v == nil || v.Slug != "antigo" {
		t.Fatalf("in-flight load = %+v", v)
	}

	got, err := cache.GetOrSet(ctx, CategoriesKey(), readRow)
	if err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}
	if got.Slug != "novo" {
		t.Errorf("Slug = %q after Rotate, want novo", got.Slug)
	}

	// The fresh value is cached for later readers.
	got, _ = cache.GetOrSet(ctx, CategoriesKey(), func() (*testCategory, error) {
		t.Error("loader ran on a warm cache")
		return nil, errors.New("unexpected load")
	})
	if got == nil || got.Slug != "novo" {
		t.Errorf("cached value = %+v", got)
	}
}

func TestTypedCache_RotateNilBackend(t *testing.T) {
	cache := NewTypedCache[testCategory](nil, time.Hour)
	if err := cache.Rotate(context.Background(), "k"); err != nil {
		t.Errorf("Rotate on nil backend: %v", err)
	}
}
