// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/payment"
	"github.com/olegiv/portal-go/internal/store"
)

// DefaultVerifyCacheTTL is how long a settled verification is remembered.
const DefaultVerifyCacheTTL = time.Hour

// Reasons reported for unpaid sessions.
const (
	ReasonPaymentFailed    = "payment failed"
	ReasonSessionExpired   = "checkout session expired"
	ReasonEbookUnavailable = "ebook is no longer available"
)

// VerifyResult is the outcome of checking a checkout session. An unpaid
// session is a normal result, not an error.
type VerifyResult struct {
	SessionID     string              `json:"session_id"`
	Status        model.SessionStatus `json:"status"`
	Paid          bool                `json:"paid"`
	DeliveryRef   string              `json:"delivery_ref,omitempty"`
	EbookID       string              `json:"ebook_id,omitempty"`
	EbookTitle    string              `json:"ebook_title,omitempty"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	Reason        string              `json:"reason,omitempty"`
}

// VerifierConfig configures a PaymentVerifier.
type VerifierConfig struct {
	CacheTTL time.Duration
	Timeout  time.Duration
}

// PaymentVerifier asks the processor whether a session was paid and, only
// then, issues the entitlement.
type PaymentVerifier struct {
	queries   *store.Queries
	processor payment.Processor
	issuer    *EntitlementIssuer
	memo      *cache.TypedCache[VerifyResult]
	cfg       VerifierConfig
	logger    *slog.Logger
}

// NewPaymentVerifier creates a PaymentVerifier. c may be nil, in which case
// every call reaches the processor.
func NewPaymentVerifier(queries *store.Queries, processor payment.Processor, issuer *EntitlementIssuer, c cache.Cacher, cfg VerifierConfig, logger *slog.Logger) *PaymentVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultVerifyCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProcessorTimeout
	}
	return &PaymentVerifier{
		queries:   queries,
		processor: processor,
		issuer:    issuer,
		memo:      cache.NewTypedCache[VerifyResult](c, cfg.CacheTTL),
		cfg:       cfg,
		logger:    logger,
	}
}

// Verify reports the state of a checkout session. The delivery reference is
// present only when the processor confirms payment. Settled results are
// memoized so repeated calls return the same answer without side effects.
func (v *PaymentVerifier) Verify(ctx context.Context, sessionID string) (VerifyResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return VerifyResult{}, invalid("session_id", "is required")
	}

	key := cache.VerifyKey(sessionID)
	if cached, ok := v.memo.Get(ctx, key); ok {
		return *cached, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	session, err := v.processor.GetSession(callCtx, sessionID)
	cancel()
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return VerifyResult{}, notFound("checkout session", sessionID)
		}
		v.logger.Error("payment processor unavailable", "session_id", sessionID, "error", err, "category", model.EventCategoryCommerce)
		return VerifyResult{}, &ExternalServiceError{Op: "verify checkout session", Err: err}
	}

	result := VerifyResult{
		SessionID:     sessionID,
		Status:        session.Status,
		EbookID:       session.EbookID,
		CustomerEmail: session.CustomerEmail,
	}

	switch session.Status {
	case model.SessionPaid:
		memoize, err := v.deliver(ctx, &result)
		if err != nil {
			return VerifyResult{}, err
		}
		if memoize {
			v.remember(ctx, key, result, v.paidTTL())
		}
	case model.SessionFailed:
		result.Reason = ReasonPaymentFailed
		v.remember(ctx, key, result, v.cfg.CacheTTL)
	case model.SessionExpired:
		result.Reason = ReasonSessionExpired
		v.remember(ctx, key, result, v.cfg.CacheTTL)
	default:
		result.Status = model.SessionPending
	}
	return result, nil
}

// deliver fills in the entitlement for a paid session. It reports whether
// the result is stable enough to memoize.
func (v *PaymentVerifier) deliver(ctx context.Context, result *VerifyResult) (bool, error) {
	result.Paid = true

	if result.EbookID == "" {
		v.logger.Warn("paid session carries no ebook", "session_id", result.SessionID, "category", model.EventCategoryCommerce)
		result.Reason = ReasonEbookUnavailable
		return false, nil
	}
	ebook, err := v.queries.GetEbook(ctx, result.EbookID)
	if err != nil {
		if store.IsNotFound(err) {
			v.logger.Warn("paid session for deleted ebook", "session_id", result.SessionID, "ebook_id", result.EbookID, "category", model.EventCategoryCommerce)
			result.Reason = ReasonEbookUnavailable
			return false, nil
		}
		return false, err
	}
	result.EbookTitle = ebook.Title

	ref, err := v.issuer.Issue(ctx, ebook)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			v.logger.Warn("paid session for ebook without file", "session_id", result.SessionID, "ebook_id", ebook.ID, "category", model.EventCategoryCommerce)
			result.Reason = ReasonEbookUnavailable
			return false, nil
		}
		return false, err
	}
	result.DeliveryRef = ref
	v.logger.Info("entitlement issued", "session_id", result.SessionID, "ebook_id", ebook.ID)
	return true, nil
}

// paidTTL keeps a memoized delivery reference from outliving the URL.
func (v *PaymentVerifier) paidTTL() time.Duration {
	ttl := v.cfg.CacheTTL
	if life := v.issuer.Lifetime(); life > 0 && life/2 < ttl {
		ttl = life / 2
	}
	return ttl
}

func (v *PaymentVerifier) remember(ctx context.Context, key string, result VerifyResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := v.memo.SetWithTTL(ctx, key, &result, ttl); err != nil {
		v.logger.Warn("failed to memoize verification", "session_id", result.SessionID, "error", err, "category", model.EventCategoryCache)
	}
}
