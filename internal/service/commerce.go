// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/payment"
	"github.com/olegiv/portal-go/internal/store"
)

// DefaultProcessorTimeout bounds a single call to the payment processor.
const DefaultProcessorTimeout = 10 * time.Second

// CheckoutOptions are the buyer-supplied parts of a checkout. Empty URLs
// fall back to the configured defaults; others must keep the scheme and
// host of the configured URL they replace.
type CheckoutOptions struct {
	CustomerEmail string `json:"customer_email"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

// CheckoutSession is what the buyer needs to continue at the processor.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// CommerceConfig configures a CommerceService.
type CommerceConfig struct {
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// CommerceService opens checkout sessions with the payment processor.
// It keeps no local state; the processor owns every session.
type CommerceService struct {
	queries   *store.Queries
	processor payment.Processor
	cfg       CommerceConfig
	logger    *slog.Logger
}

// NewCommerceService creates a CommerceService.
func NewCommerceService(queries *store.Queries, processor payment.Processor, cfg CommerceConfig, logger *slog.Logger) *CommerceService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProcessorTimeout
	}
	return &CommerceService{queries: queries, processor: processor, cfg: cfg, logger: logger}
}

// CreateSession starts a checkout for one ebook. Every precondition is
// checked before the processor is contacted.
func (s *CommerceService) CreateSession(ctx context.Context, ebookID string, opts CheckoutOptions) (CheckoutSession, error) {
	ebookID = strings.TrimSpace(ebookID)
	if ebookID == "" {
		return CheckoutSession{}, invalid("ebook_id", "is required")
	}

	opts.CustomerEmail = strings.TrimSpace(opts.CustomerEmail)
	if opts.SuccessURL == "" {
		opts.SuccessURL = s.cfg.SuccessURL
	}
	if opts.CancelURL == "" {
		opts.CancelURL = s.cfg.CancelURL
	}
	if err := fromValidation(validation.ValidateStruct(&opts,
		validation.Field(&opts.CustomerEmail, is.EmailFormat),
		validation.Field(&opts.SuccessURL, validation.Required, is.URL, sameOrigin(s.cfg.SuccessURL)),
		validation.Field(&opts.CancelURL, validation.Required, is.URL, sameOrigin(s.cfg.CancelURL)),
	)); err != nil {
		return CheckoutSession{}, err
	}

	ebook, err := s.queries.GetEbook(ctx, ebookID)
	if err != nil {
		if store.IsNotFound(err) {
			return CheckoutSession{}, notFound("ebook", ebookID)
		}
		return CheckoutSession{}, fmt.Errorf("getting ebook %s: %w", ebookID, err)
	}
	if !ebook.Purchasable() {
		if !ebook.Published {
			return CheckoutSession{}, invalid("ebook_id", "ebook is not available for sale")
		}
		return CheckoutSession{}, invalid("ebook_id", "ebook has no downloadable file; use its payment links")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	session, err := s.processor.CreateSession(callCtx, payment.CreateSessionRequest{
		EbookID:       ebook.ID,
		Title:         ebook.Title,
		AmountCents:   ebook.PriceCents,
		Currency:      ebook.Currency,
		CustomerEmail: opts.CustomerEmail,
		SuccessURL:    opts.SuccessURL,
		CancelURL:     opts.CancelURL,
	})
	if err != nil {
		s.logger.Error("payment processor rejected checkout", "ebook_id", ebook.ID, "error", err, "category", model.EventCategoryCommerce)
		return CheckoutSession{}, &ExternalServiceError{Op: "create checkout session", Err: err}
	}

	s.logger.Info("checkout session created", "session_id", session.ID, "ebook_id", ebook.ID)
	return CheckoutSession{SessionID: session.ID, RedirectURL: session.RedirectURL}, nil
}

// sameOrigin accepts URLs with the scheme and host of configured, so the
// processor only ever returns buyers to the portal.
func sameOrigin(configured string) validation.Rule {
	return validation.By(func(value any) error {
		raw, _ := value.(string)
		u, err := url.Parse(raw)
		if err != nil {
			return errors.New("must be a valid URL")
		}
		base, err := url.Parse(configured)
		if err != nil || !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
			return errors.New("must point to the portal")
		}
		return nil
	})
}
