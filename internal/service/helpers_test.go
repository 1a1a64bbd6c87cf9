// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/store"
	"github.com/olegiv/portal-go/internal/testutil"
)

var (
	editor = model.NewActor("user-1", "editor@example.org", model.RoleEditor)
	viewer = model.NewActor("user-2", "viewer@example.org", model.RoleViewer)
)

// testNow is the fixed clock used by every service under test.
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return testutil.TestLoggerSilent()
}

func testQueries(t *testing.T) *store.Queries {
	t.Helper()
	return testutil.TestQueries(t)
}

func testCache(t *testing.T) cache.Cacher {
	t.Helper()
	c := cache.NewSimpleMemoryCache(time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type recordedEvent struct {
	Type string
	Data any
}

// recordingNotifier captures dispatched events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) DispatchEvent(_ context.Context, eventType string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, len(n.events))
	for i, e := range n.events {
		types[i] = e.Type
	}
	return types
}

func newContentService(t *testing.T, q *store.Queries, n Notifier) *ContentService {
	t.Helper()
	s := NewContentService(q, NewEventService(q, discardLogger()), n, discardLogger())
	s.now = fixedClock
	return s
}

func timeAt(d time.Duration) *time.Time {
	v := testNow.Add(d)
	return &v
}

func ids(items []model.ContentItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
