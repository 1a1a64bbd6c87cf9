// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestSessionStatusTransitions(t *testing.T) {
	all := []SessionStatus{SessionPending, SessionPaid, SessionFailed, SessionExpired}

	for _, from := range all {
		for _, to := range all {
			want := from == SessionPending && to != SessionPending
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestSessionStatusIsTerminal(t *testing.T) {
	if SessionPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []SessionStatus{SessionPaid, SessionFailed, SessionExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if SessionStatus("refunded").Valid() {
		t.Error("unknown status reported valid")
	}
}
