// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package payment talks to the external payment processor that hosts the
// checkout pages. The processor is the source of truth for session state;
// nothing about a session is stored locally.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/olegiv/portal-go/internal/model"
)

// ErrSessionNotFound is returned when the processor does not know a session.
var ErrSessionNotFound = errors.New("payment session not found")

// CreateSessionRequest describes a single-item checkout.
type CreateSessionRequest struct {
	EbookID       string
	Title         string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Processor creates and inspects hosted checkout sessions.
type Processor interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (model.PaymentSession, error)
	GetSession(ctx context.Context, id string) (model.PaymentSession, error)
}

// StatusError is a non-2xx answer from the processor.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("processor returned HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("processor returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}
