// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "strings"

// ContainsPathTraversal reports whether an object key or URL path has a ".."
// segment. Both slash styles count as separators.
func ContainsPathTraversal(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// CleanObjectKey trims surrounding whitespace and leading slashes from a
// storage key. It returns "" for keys that are empty or escape their root.
func CleanObjectKey(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" || ContainsPathTraversal(key) {
		return ""
	}
	return key
}
