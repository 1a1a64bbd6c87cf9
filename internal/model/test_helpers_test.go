// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

type hasItemTest struct {
	item string
	want bool
}

// runHasItemTests checks a membership predicate, one subtest per item.
func runHasItemTests(t *testing.T, cases []hasItemTest, has func(string) bool) {
	t.Helper()
	for _, c := range cases {
		name := c.item
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			if got := has(c.item); got != c.want {
				t.Errorf("%q: got %v, want %v", c.item, got, c.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
