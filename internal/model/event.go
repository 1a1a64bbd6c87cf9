// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"slices"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventLevels lists the levels in increasing severity.
var EventLevels = []string{EventLevelInfo, EventLevelWarning, EventLevelError}

// ValidEventLevel reports whether level is a known event level.
func ValidEventLevel(level string) bool {
	return slices.Contains(EventLevels, level)
}

// Event categories
const (
	EventCategoryAuth     = "auth"
	EventCategoryContent  = "content"
	EventCategoryPage     = "page"
	EventCategoryCategory = "category"
	EventCategoryCommerce = "commerce"
	EventCategorySystem   = "system"
	EventCategoryCache    = "cache"
)

// Event is a persisted audit or log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Actor     string
	Metadata  string // JSON object
	CreatedAt time.Time
}

// Fields decodes Metadata. A malformed or empty document yields an empty
// map so listings never fail on one bad row.
func (e Event) Fields() map[string]any {
	fields := map[string]any{}
	if e.Metadata == "" {
		return fields
	}
	if err := json.Unmarshal([]byte(e.Metadata), &fields); err != nil || fields == nil {
		return map[string]any{}
	}
	return fields
}
