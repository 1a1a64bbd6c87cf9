// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook delivers publication events to configured HTTP endpoints.
package webhook

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the JSON envelope posted to subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id and a UTC timestamp.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// subjectFields are the payload fields naming the entity an event is about:
// content and ebook ids, page slugs.
var subjectFields = [...]string{"id", "slug"}

// coalesceKey groups events about the same entity. Payloads without an
// identity coalesce by type.
func (e *Event) coalesceKey() string {
	data, ok := e.Data.(map[string]any)
	if !ok {
		return e.Type
	}
	for _, field := range subjectFields {
		var subject string
		switch v := data[field].(type) {
		case string:
			subject = v
		case int64:
			subject = fmt.Sprint(v)
		case float64:
			subject = fmt.Sprint(int64(v))
		}
		if subject != "" {
			return e.Type + ":" + subject
		}
	}
	return e.Type
}
