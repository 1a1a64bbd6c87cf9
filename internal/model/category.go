// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Category groups content items. Items reference it by slug only.
type Category struct {
	ID         int64     `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Position   int       `json:"position"`
	Published  bool      `json:"published"`
	ShowInMenu bool      `json:"show_in_menu"`
	ShowInHome bool      `json:"show_in_home"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryScope selects which published categories a listing returns.
type CategoryScope string

// Category scopes
const (
	ScopeMenu CategoryScope = "menu"
	ScopeHome CategoryScope = "home"
	ScopeAll  CategoryScope = "all"
)

// ParseCategoryScope parses a scope name, defaulting to ScopeAll for "".
func ParseCategoryScope(s string) (CategoryScope, bool) {
	switch CategoryScope(s) {
	case "", ScopeAll:
		return ScopeAll, true
	case ScopeMenu:
		return ScopeMenu, true
	case ScopeHome:
		return ScopeHome, true
	}
	return "", false
}

// VisibleIn reports whether the category is shown for the given scope.
func (c *Category) VisibleIn(scope CategoryScope) bool {
	if !c.Published {
		return false
	}
	switch scope {
	case ScopeMenu:
		return c.ShowInMenu
	case ScopeHome:
		return c.ShowInHome
	}
	return true
}
