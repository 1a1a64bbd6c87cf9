// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic housekeeping jobs with cron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/portal-go/internal/model"
)

// DefaultRetentionSchedule prunes the event log once a day at 03:00.
const DefaultRetentionSchedule = "0 3 * * *"

// jobTimeout bounds a single housekeeping run.
const jobTimeout = 2 * time.Minute

// EventPruner deletes event log entries older than a duration.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
	LogInfo(ctx context.Context, category, message, actor string, metadata map[string]any) error
}

// Config holds scheduler settings.
type Config struct {
	// RetentionSchedule is a standard five-field cron expression.
	RetentionSchedule string
	// Retention is how long event log entries are kept. Zero disables pruning.
	Retention time.Duration
}

// Scheduler handles scheduled housekeeping such as event log retention.
type Scheduler struct {
	cron   *cron.Cron
	events EventPruner
	cfg    Config
	logger *slog.Logger
}

// New creates a new scheduler instance. The schedule is validated here so a
// bad expression fails at startup.
func New(events EventPruner, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetentionSchedule == "" {
		cfg.RetentionSchedule = DefaultRetentionSchedule
	}
	if _, err := cron.ParseStandard(cfg.RetentionSchedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", cfg.RetentionSchedule, err)
	}

	return &Scheduler{
		cron:   cron.New(),
		events: events,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.Retention > 0 {
		_, err := s.cron.AddFunc(s.cfg.RetentionSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, err := s.PruneEvents(ctx); err != nil {
				s.logger.Error("failed to prune event log", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// PruneEvents deletes event log entries past the retention window.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	if s.cfg.Retention <= 0 {
		return 0, nil
	}

	n, err := s.events.DeleteOldEvents(ctx, s.cfg.Retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned event log", "deleted", n, "retention", s.cfg.Retention.String())
		_ = s.events.LogInfo(ctx, model.EventCategorySystem, "Event log pruned", "", map[string]any{
			"deleted":   n,
			"retention": s.cfg.Retention.String(),
		})
	}
	return n, nil
}

// NextRun reports when the retention job fires next. It is zero before
// Start or when pruning is disabled.
func (s *Scheduler) NextRun() time.Time {
	for _, e := range s.cron.Entries() {
		return e.Next
	}
	return time.Time{}
}
