// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that also persists warnings and
// errors to the event log.
package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/store"
)

// writeTimeout bounds a single event log insert.
const writeTimeout = 2 * time.Second

// Reserved attribute keys lifted out of the metadata.
const (
	categoryKey = "category"
	actorKey    = "actor"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above a threshold (WARN by default) to the event log.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
	group   string
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
func NewEventLogHandler(inner slog.Handler, queries *store.Queries) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, queries, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, queries *store.Queries, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: queries,
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *EventLogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

// writeToEventLog persists a record. The insert is detached from the
// request context so a cancelled request still leaves its trace.
func (h *EventLogHandler) writeToEventLog(ctx context.Context, r slog.Record) {
	attrs := append([]slog.Attr{}, h.attrs...)
	var own []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})
	attrs = append(attrs, h.qualify(own)...)

	var category, actor string
	metadata := make(map[string]any, len(attrs))
	for _, a := range attrs {
		switch a.Key {
		case categoryKey:
			category = a.Value.String()
		case actorKey:
			actor = a.Value.String()
		default:
			metadata[a.Key] = attrValue(a.Value)
		}
	}
	if category == "" {
		category = inferCategory(r.Message)
	}

	encoded := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			encoded = string(b)
		}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	_ = h.queries.CreateEvent(writeCtx, store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		Actor:     actor,
		Metadata:  encoded,
		CreatedAt: r.Time,
	})
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := make(map[string]any)
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindBool:
		return v.Bool()
	default:
		return v.String()
	}
}

// eventLevel converts a slog.Level to an event log level.
func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when the record has no
// explicit "category" attribute.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "token", "auth", "jwt"):
		return model.EventCategoryAuth
	case containsAny(msg, "checkout", "payment", "session", "ebook", "entitlement"):
		return model.EventCategoryCommerce
	case strings.Contains(msg, "categor"):
		return model.EventCategoryCategory
	case strings.Contains(msg, "page"):
		return model.EventCategoryPage
	case containsAny(msg, "content", "article", "announcement", "view count"):
		return model.EventCategoryContent
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
