// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestValidEventLevel(t *testing.T) {
	runHasItemTests(t, []hasItemTest{
		{EventLevelInfo, true},
		{EventLevelWarning, true},
		{EventLevelError, true},
		{"debug", false},
		{"WARNING", false},
		{"", false},
	}, ValidEventLevel)
}

func TestEventFields(t *testing.T) {
	e := Event{Metadata: `{"id":12,"published":true,"slug":"sobre"}`}
	f := e.Fields()
	if f["slug"] != "sobre" || f["published"] != true {
		t.Errorf("Fields() = %v", f)
	}
	if id, _ := f["id"].(float64); id != 12 {
		t.Errorf("id = %v, want 12", f["id"])
	}

	for _, raw := range []string{"", "not json", "null", "[1,2]"} {
		if got := (Event{Metadata: raw}).Fields(); got == nil || len(got) != 0 {
			t.Errorf("Fields() for %q = %v, want empty map", raw, got)
		}
	}
}
