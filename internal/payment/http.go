// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/util"
)

// HTTP client constants
const (
	DefaultBaseURL = "https://api.stripe.com"
	DefaultTimeout = 10 * time.Second
	maxResponseLen = 64 * 1024
	userAgent      = "portal/1.0"
)

// HTTPConfig configures an HTTPProcessor.
type HTTPConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
	// BlockPrivate refuses connections to private and reserved addresses.
	BlockPrivate bool
}

// HTTPProcessor is a client for a Stripe-compatible checkout sessions API.
type HTTPProcessor struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewHTTPProcessor creates an HTTPProcessor.
func NewHTTPProcessor(cfg HTTPConfig) *HTTPProcessor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.BlockPrivate {
		transport.DialContext = util.SSRFSafeDialContext(&net.Dialer{Timeout: cfg.Timeout})
	}
	return &HTTPProcessor{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

// checkoutSession is the subset of the processor's session object we read.
type checkoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	ClientReferenceID string            `json:"client_reference_id"`
	CustomerEmail     string            `json:"customer_email"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Created           int64             `json:"created"`
	Metadata          map[string]string `json:"metadata"`
	CustomerDetails   *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	PaymentIntent *struct {
		Status           string          `json:"status"`
		LastPaymentError json.RawMessage `json:"last_payment_error"`
	} `json:"payment_intent"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession opens a hosted checkout for one ebook. The literal
// "{CHECKOUT_SESSION_ID}" in SuccessURL is replaced by the processor.
func (p *HTTPProcessor) CreateSession(ctx context.Context, req CreateSessionRequest) (model.PaymentSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.EbookID)
	form.Set("metadata[ebook_id]", req.EbookID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Title)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	var cs checkoutSession
	if err := p.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &cs); err != nil {
		return model.PaymentSession{}, fmt.Errorf("creating checkout session: %w", err)
	}
	return cs.toModel(), nil
}

// GetSession fetches the current state of a session.
func (p *HTTPProcessor) GetSession(ctx context.Context, id string) (model.PaymentSession, error) {
	path := "/v1/checkout/sessions/" + url.PathEscape(id) + "?expand[]=payment_intent"
	var cs checkoutSession
	if err := p.do(ctx, http.MethodGet, path, nil, &cs); err != nil {
		return model.PaymentSession{}, fmt.Errorf("retrieving checkout session: %w", err)
	}
	return cs.toModel(), nil
}

func (p *HTTPProcessor) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(p.secretKey, "")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	// Only the processor's own error body identifies a missing session; a
	// bare 404 comes from a wrong base URL or a proxy in between.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Error.Code == "resource_missing" {
			return ErrSessionNotFound
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (cs *checkoutSession) toModel() model.PaymentSession {
	s := model.PaymentSession{
		ID:            cs.ID,
		EbookID:       cs.Metadata["ebook_id"],
		Status:        cs.status(),
		CustomerEmail: cs.CustomerEmail,
		AmountCents:   cs.AmountTotal,
		Currency:      strings.ToUpper(cs.Currency),
		RedirectURL:   cs.URL,
	}
	if s.EbookID == "" {
		s.EbookID = cs.ClientReferenceID
	}
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		s.CustomerEmail = cs.CustomerDetails.Email
	}
	if cs.Created > 0 {
		s.CreatedAt = time.Unix(cs.Created, 0).UTC()
	}
	return s
}

// status maps processor states onto the session state machine.
func (cs *checkoutSession) status() model.SessionStatus {
	switch {
	case cs.PaymentStatus == "paid" || cs.PaymentStatus == "no_payment_required":
		return model.SessionPaid
	case cs.Status == "expired":
		return model.SessionExpired
	case cs.PaymentIntent != nil && cs.PaymentIntent.Status == "canceled":
		return model.SessionFailed
	case cs.Status == "complete" && cs.PaymentIntent != nil &&
		cs.PaymentIntent.Status == "requires_payment_method" && hasValue(cs.PaymentIntent.LastPaymentError):
		return model.SessionFailed
	}
	return model.SessionPending
}

func hasValue(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}
