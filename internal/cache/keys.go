// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import "strings"

// Key prefixes. Writes invalidate a whole prefix.
const (
	PrefixCategories = "categories:"
	PrefixPages      = "pages:"
	PrefixVerify     = "verify:"
)

// CategoriesKey is the key for the full category listing.
func CategoriesKey() string {
	return PrefixCategories + "all"
}

// PageKey is the key for a page document by slug.
func PageKey(slug string) string {
	return PrefixPages + strings.ToLower(slug)
}

// VerifyKey is the key for a memoized verification result.
func VerifyKey(sessionID string) string {
	return PrefixVerify + sessionID
}

// SitemapKey is the key for the rendered sitemap document.
func SitemapKey() string {
	return "sitemap:xml"
}
