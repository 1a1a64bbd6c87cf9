// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared by the portal: publishable
// content, categories, page documents, ebooks and payment sessions.
package model

import (
	"time"
)

// Kind identifies the flavour of a publishable content item.
type Kind string

// Content kinds
const (
	KindArticle      Kind = "article"
	KindEvent        Kind = "event"
	KindAnnouncement Kind = "announcement"
)

// AnnouncementCategorySlug is the reserved category every announcement belongs to.
const AnnouncementCategorySlug = "avisos"

// FallbackCategoryLabel is shown when a content item points at a category
// that no longer exists.
const FallbackCategoryLabel = "Uncategorized"

// Valid reports whether k is a known content kind.
func (k Kind) Valid() bool {
	switch k {
	case KindArticle, KindEvent, KindAnnouncement:
		return true
	}
	return false
}

// Plural returns the route segment of the kind, e.g. "articles".
func (k Kind) Plural() string {
	return string(k) + "s"
}

// ParseKind converts a route segment ("articles", "events", "announcements")
// or a singular kind name into a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "article", "articles":
		return KindArticle, true
	case "event", "events":
		return KindEvent, true
	case "announcement", "announcements":
		return KindAnnouncement, true
	}
	return "", false
}

// ContentItem is an article, event or announcement.
type ContentItem struct {
	ID           int64      `json:"id"`
	Kind         Kind       `json:"kind"`
	Title        string     `json:"title"`
	Excerpt      string     `json:"excerpt"`
	Body         string     `json:"body"`
	CategorySlug string     `json:"category_slug,omitempty"`
	CoverURL     string     `json:"cover_url,omitempty"`
	Published    bool       `json:"published"`
	Featured     bool       `json:"featured"`
	Pinned       bool       `json:"pinned"`
	ViewCount    int64      `json:"view_count"`
	Version      int64      `json:"version"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
	Location     string     `json:"location,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsExpired reports whether the item carries an expiry that is not after now.
func (c *ContentItem) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// ContentOrder selects the secondary ordering applied after pinned items.
type ContentOrder string

// Orderings
const (
	OrderNewest   ContentOrder = "newest"    // created_at DESC
	OrderStartAsc ContentOrder = "start_asc" // starts_at ASC
)

// DefaultOrder returns the ordering used for a kind when none is requested.
func DefaultOrder(k Kind) ContentOrder {
	if k == KindEvent {
		return OrderStartAsc
	}
	return OrderNewest
}

// ContentFilter narrows a listing of content items.
type ContentFilter struct {
	Kind         Kind
	CategorySlug string
	FeaturedOnly bool
	UpcomingOnly bool
	Order        ContentOrder
	Limit        int
	Offset       int
}
