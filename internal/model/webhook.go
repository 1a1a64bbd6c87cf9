// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "slices"

// Notification event types
const (
	EventContentPublished   = "content.published"
	EventContentUnpublished = "content.unpublished"
	EventContentDeleted     = "content.deleted"
	EventPageUpdated        = "page.updated"
	EventEbookPublished     = "ebook.published"
)

// WebhookEventInfo contains event type and description.
type WebhookEventInfo struct {
	Type        string
	Description string
}

// AllWebhookEvents returns all notification event types with descriptions.
func AllWebhookEvents() []WebhookEventInfo {
	return []WebhookEventInfo{
		{EventContentPublished, "When a content item becomes published"},
		{EventContentUnpublished, "When a content item returns to draft"},
		{EventContentDeleted, "When a content item is deleted"},
		{EventPageUpdated, "When a page document is saved"},
		{EventEbookPublished, "When an ebook becomes published"},
	}
}

// Webhook is an outbound notification endpoint.
type Webhook struct {
	URL    string
	Secret string
	// Events the endpoint receives. Empty means all events.
	Events []string
}

// HasEvent checks if the webhook is subscribed to a specific event.
func (w *Webhook) HasEvent(event string) bool {
	return len(w.Events) == 0 || slices.Contains(w.Events, event)
}
