// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

// Listing limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// IsVisible reports whether a public reader may see item at now: it must be
// published and not past its expiry.
func IsVisible(item *model.ContentItem, now time.Time) bool {
	return item.Published && !item.IsExpired(now)
}

// normalizePage applies the default and maximum page size.
func normalizePage(limit, offset int) (int, int, error) {
	if limit < 0 {
		return 0, 0, invalid("limit", "must not be negative")
	}
	if offset < 0 {
		return 0, 0, invalid("offset", "must not be negative")
	}
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, offset, nil
}
