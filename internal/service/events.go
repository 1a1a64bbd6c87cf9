// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the portal's business rules: the publication
// gate, content and category management, page documents, view counting and
// the ebook checkout flow from session creation to entitlement.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/store"
)

// EventService records audit events in the event log.
type EventService struct {
	queries *store.Queries
	logger  *slog.Logger
	now     func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(queries *store.Queries, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		queries: queries,
		logger:  logger,
		now:     time.Now,
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, actor string, metadata map[string]any) error {
	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		Actor:     actor,
		Metadata:  metadataJSON,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.logger.Error("failed to log event", "error", err, "message", message)
		return err
	}
	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message, actor string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, actor, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message, actor string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, actor, metadata)
}

// LogError logs an error-level event.
func (s *EventService) LogError(ctx context.Context, category, message, actor string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelError, category, message, actor, metadata)
}

// audit records an admin write. Failures are logged by LogEvent and do not
// fail the write. A nil receiver is a no-op.
func (s *EventService) audit(ctx context.Context, category, message string, actor model.Actor, metadata map[string]any) {
	if s == nil {
		return
	}
	_ = s.LogInfo(ctx, category, message, actor.Subject, metadata)
}

// ListEvents pages through the event log, newest first. An empty level
// lists every level.
func (s *EventService) ListEvents(ctx context.Context, level string, limit, offset int) ([]model.Event, error) {
	if level != "" && !model.ValidEventLevel(level) {
		return nil, invalid("level", fmt.Sprintf("must be one of %v", model.EventLevels))
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, err
	}
	events, err := s.queries.ListEvents(ctx, store.ListEventsParams{Level: level, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// DeleteOldEvents removes events older than the specified duration and
// returns how many were removed.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	n, err := s.queries.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}
