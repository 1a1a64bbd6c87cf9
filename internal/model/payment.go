// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// SessionStatus is the lifecycle state of a checkout session as reported by
// the payment processor.
type SessionStatus string

// Session statuses
const (
	SessionPending SessionStatus = "pending"
	SessionPaid    SessionStatus = "paid"
	SessionFailed  SessionStatus = "failed"
	SessionExpired SessionStatus = "expired"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionPaid, SessionFailed, SessionExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionPaid || s == SessionFailed || s == SessionExpired
}

// CanTransition reports whether a session may move from one status to another.
// Only pending sessions move, and only to a terminal status.
func CanTransition(from, to SessionStatus) bool {
	return from == SessionPending && to.IsTerminal()
}

// PaymentSession is the processor's view of a single-item checkout.
// The processor owns it; nothing is persisted locally.
type PaymentSession struct {
	ID            string        `json:"id"`
	EbookID       string        `json:"ebook_id"`
	Status        SessionStatus `json:"status"`
	CustomerEmail string        `json:"customer_email,omitempty"`
	AmountCents   int64         `json:"amount_cents"`
	Currency      string        `json:"currency"`
	RedirectURL   string        `json:"redirect_url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
