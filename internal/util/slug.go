// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides slug generation and validation, object key checks
// and outbound URL safety helpers.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength bounds generated slugs.
const MaxSlugLength = 100

var (
	// nonSlugChars matches runs of anything that is not a lowercase letter or digit.
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	validSlug    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// stripMarks decomposes accented letters and drops the combining marks,
// so "Saúde" becomes "Saude".
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify converts a name into a slug: accents removed, lowercase, and every
// run of other characters collapsed into a single hyphen. The result never
// exceeds MaxSlugLength and never ends with a hyphen.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(stripMarks(s)), "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

// IsValidSlug reports whether s is lowercase ASCII letters and digits
// separated by single hyphens.
func IsValidSlug(s string) bool {
	return len(s) <= MaxSlugLength && validSlug.MatchString(s)
}
