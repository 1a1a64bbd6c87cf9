// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/portal-go/internal/model"
)

// MemoryProcessor is an in-process Processor for development and tests.
// Sessions start pending and are settled with Confirm, Fail or Expire.
type MemoryProcessor struct {
	mu          sync.Mutex
	checkoutURL string
	sessions    map[string]model.PaymentSession
	unavailable error
	calls       int
}

// NewMemoryProcessor creates a MemoryProcessor whose redirect URLs start
// with checkoutURL.
func NewMemoryProcessor(checkoutURL string) *MemoryProcessor {
	if checkoutURL == "" {
		checkoutURL = "http://localhost/checkout"
	}
	return &MemoryProcessor{
		checkoutURL: strings.TrimRight(checkoutURL, "/"),
		sessions:    make(map[string]model.PaymentSession),
	}
}

// CreateSession implements Processor.
func (p *MemoryProcessor) CreateSession(_ context.Context, req CreateSessionRequest) (model.PaymentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.unavailable != nil {
		return model.PaymentSession{}, p.unavailable
	}

	id := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s := model.PaymentSession{
		ID:            id,
		EbookID:       req.EbookID,
		Status:        model.SessionPending,
		CustomerEmail: req.CustomerEmail,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		RedirectURL:   p.checkoutURL + "/" + id,
		CreatedAt:     time.Now().UTC(),
	}
	p.sessions[id] = s
	return s, nil
}

// GetSession implements Processor.
func (p *MemoryProcessor) GetSession(_ context.Context, id string) (model.PaymentSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.unavailable != nil {
		return model.PaymentSession{}, p.unavailable
	}
	s, ok := p.sessions[id]
	if !ok {
		return model.PaymentSession{}, ErrSessionNotFound
	}
	return s, nil
}

// Confirm marks a pending session as paid.
func (p *MemoryProcessor) Confirm(id string) error {
	return p.settle(id, model.SessionPaid)
}

// Fail marks a pending session as failed.
func (p *MemoryProcessor) Fail(id string) error {
	return p.settle(id, model.SessionFailed)
}

// Expire marks a pending session as expired.
func (p *MemoryProcessor) Expire(id string) error {
	return p.settle(id, model.SessionExpired)
}

func (p *MemoryProcessor) settle(id string, to model.SessionStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !model.CanTransition(s.Status, to) {
		return fmt.Errorf("session %s cannot move from %s to %s", id, s.Status, to)
	}
	s.Status = to
	p.sessions[id] = s
	return nil
}

// SetUnavailable makes every call fail with err until reset with nil.
func (p *MemoryProcessor) SetUnavailable(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unavailable = err
}

// Calls returns how many requests reached the processor.
func (p *MemoryProcessor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
