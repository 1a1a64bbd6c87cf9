// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakePruner struct {
	olderThan time.Duration
	deleted   int64
	err       error
	logged    []string
}

func (f *fakePruner) DeleteOldEvents(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.deleted, f.err
}

func (f *fakePruner) LogInfo(_ context.Context, _, message, _ string, _ map[string]any) error {
	f.logged = append(f.logged, message)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	s, err := New(&fakePruner{}, Config{}, quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.cfg.RetentionSchedule != DefaultRetentionSchedule {
		t.Errorf("schedule = %q, want %q", s.cfg.RetentionSchedule, DefaultRetentionSchedule)
	}
}

func TestNewInvalidSchedule(t *testing.T) {
	if _, err := New(&fakePruner{}, Config{RetentionSchedule: "every day"}, quietLogger()); err == nil {
		t.Error("New() accepted an invalid cron expression")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	tests := []struct {
		name      string
		retention time.Duration
		wantJobs  bool
	}{
		{"retention enabled", 30 * 24 * time.Hour, true},
		{"retention disabled", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&fakePruner{}, Config{Retention: tt.retention}, quietLogger())
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer s.Stop()

			if got := !s.NextRun().IsZero(); got != tt.wantJobs {
				t.Errorf("has next run = %v, want %v", got, tt.wantJobs)
			}
		})
	}
}

func TestPruneEvents(t *testing.T) {
	p := &fakePruner{deleted: 4}
	s, _ := New(p, Config{Retention: 90 * 24 * time.Hour}, quietLogger())

	n, err := s.PruneEvents(context.Background())
	if err != nil {
		t.Fatalf("PruneEvents() error = %v", err)
	}
	if n != 4 {
		t.Errorf("deleted = %d, want 4", n)
	}
	if p.olderThan != 90*24*time.Hour {
		t.Errorf("olderThan = %v, want 90 days", p.olderThan)
	}
	if len(p.logged) != 1 {
		t.Errorf("audit entries = %d, want 1", len(p.logged))
	}
}

func TestPruneEventsNothingToDo(t *testing.T) {
	p := &fakePruner{}
	s, _ := New(p, Config{Retention: time.Hour}, quietLogger())
	if _, err := s.PruneEvents(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(p.logged) != 0 {
		t.Error("an empty prune must not write an audit entry")
	}

	disabled, _ := New(p, Config{}, quietLogger())
	p.olderThan = 0
	if n, err := disabled.PruneEvents(context.Background()); n != 0 || err != nil || p.olderThan != 0 {
		t.Errorf("disabled retention touched the store: n=%d err=%v", n, err)
	}
}

func TestPruneEventsError(t *testing.T) {
	boom := errors.New("db locked")
	s, _ := New(&fakePruner{err: boom}, Config{Retention: time.Hour}, quietLogger())
	if _, err := s.PruneEvents(context.Background()); !errors.Is(err, boom) {
		t.Errorf("PruneEvents() error = %v, want %v", err, boom)
	}
}
