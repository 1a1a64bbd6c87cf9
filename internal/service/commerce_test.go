// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/portal-go/internal/asset"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/payment"
	"github.com/olegiv/portal-go/internal/store"
)

type commerceFixture struct {
	queries   *store.Queries
	ebooks    *EbookService
	processor *payment.MemoryProcessor
	commerce  *CommerceService
	verifier  *PaymentVerifier
}

func newCommerceFixture(t *testing.T, assets asset.Store) *commerceFixture {
	t.Helper()
	q := testQueries(t)
	p := payment.NewMemoryProcessor("https://pay.test/checkout")
	if assets == nil {
		assets = asset.NewDirectStore("")
	}
	return &commerceFixture{
		queries:   q,
		ebooks:    newEbookService(t, q, nil),
		processor: p,
		commerce: NewCommerceService(q, p, CommerceConfig{
			SuccessURL: "https://portal.example/obrigado?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:  "https://portal.example/ebooks",
			Timeout:    time.Second,
		}, discardLogger()),
		verifier: NewPaymentVerifier(q, p, NewEntitlementIssuer(assets), testCache(t), VerifierConfig{
			CacheTTL: time.Hour,
			Timeout:  time.Second,
		}, discardLogger()),
	}
}

func (f *commerceFixture) publishedEbook(t *testing.T, in EbookInput) model.Ebook {
	t.Helper()
	ctx := context.Background()
	e, err := f.ebooks.Create(ctx, editor, in)
	require.NoError(t, err)
	e, err = f.ebooks.TogglePublished(ctx, editor, e.ID)
	require.NoError(t, err)
	return e
}

func TestCommerceService_CreateSession(t *testing.T) {
	f := newCommerceFixture(t, nil)
	e := f.publishedEbook(t, EbookInput{ID: "manual", Title: "Manual", Price: "29.90", PDFRef: "asset://x"})

	cs, err := f.commerce.CreateSession(context.Background(), e.ID, CheckoutOptions{CustomerEmail: "ana@example.org"})
	require.NoError(t, err)
	assert.NotEmpty(t, cs.SessionID)
	assert.Equal(t, "https://pay.test/checkout/"+cs.SessionID, cs.RedirectURL)

	s, err := f.processor.GetSession(context.Background(), cs.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "manual", s.EbookID)
	assert.EqualValues(t, 2990, s.AmountCents)
	assert.Equal(t, "ana@example.org", s.CustomerEmail)
}

// returnURLRecorder remembers the return URLs of the last checkout.
type returnURLRecorder struct {
	payment.Processor
	success, cancel string
}

func (r *returnURLRecorder) CreateSession(ctx context.Context, req payment.CreateSessionRequest) (model.PaymentSession, error) {
	r.success, r.cancel = req.SuccessURL, req.CancelURL
	return r.Processor.CreateSession(ctx, req)
}

func TestCommerceService_ReturnURLs(t *testing.T) {
	ctx := context.Background()
	f := newCommerceFixture(t, nil)
	e := f.publishedEbook(t, EbookInput{ID: "manual", Title: "Manual", Price: "10", PDFRef: "asset://m"})

	rec := &returnURLRecorder{Processor: f.processor}
	commerce := NewCommerceService(f.queries, rec, CommerceConfig{
		SuccessURL: "https://portal.example/obrigado?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://portal.example/ebooks",
		Timeout:    time.Second,
	}, discardLogger())

	_, err := commerce.CreateSession(ctx, e.ID, CheckoutOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/obrigado?session_id={CHECKOUT_SESSION_ID}", rec.success)
	assert.Equal(t, "https://portal.example/ebooks", rec.cancel)

	_, err = commerce.CreateSession(ctx, e.ID, CheckoutOptions{
		SuccessURL: "https://PORTAL.example/ebooks/manual/obrigado?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://portal.example/ebooks/manual",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://PORTAL.example/ebooks/manual/obrigado?session_id={CHECKOUT_SESSION_ID}", rec.success)
	assert.Equal(t, "https://portal.example/ebooks/manual", rec.cancel)

	rec.success, rec.cancel = "", ""
	_, err = commerce.CreateSession(ctx, e.ID, CheckoutOptions{
		SuccessURL: "https://evil.example/steal?s={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://evil.example/",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, rec.success, "a foreign return URL reached the processor")
}

// Preconditions fail before the processor is ever contacted.
func TestCommerceService_PreconditionsBeforeProcessor(t *testing.T) {
	ctx := context.Background()
	f := newCommerceFixture(t, nil)

	hidden, err := f.ebooks.Create(ctx, editor, EbookInput{ID: "rascunho", Title: "Rascunho", PDFRef: "asset://r"})
	require.NoError(t, err)
	linksOnly := f.publishedEbook(t, EbookInput{
		ID: "so-links", Title: "Links",
		PaymentLinks: []model.PaymentLink{{Label: "Pix", URL: "https://pay.example/pix"}},
	})
	ok := f.publishedEbook(t, EbookInput{ID: "ok", Title: "Ok", PDFRef: "asset://ok"})

	tests := []struct {
		name    string
		ebookID string
		opts    CheckoutOptions
		want    error
	}{
		{"unknown ebook", "nope", CheckoutOptions{}, ErrNotFound},
		{"unpublished ebook", hidden.ID, CheckoutOptions{}, ErrValidation},
		{"no asset", linksOnly.ID, CheckoutOptions{}, ErrValidation},
		{"empty id", " ", CheckoutOptions{}, ErrValidation},
		{"bad email", ok.ID, CheckoutOptions{CustomerEmail: "not-an-email"}, ErrValidation},
		{"bad success url", ok.ID, CheckoutOptions{SuccessURL: "no url"}, ErrValidation},
		{"foreign success host", ok.ID, CheckoutOptions{SuccessURL: "https://evil.example/steal?s={CHECKOUT_SESSION_ID}"}, ErrValidation},
		{"foreign cancel host", ok.ID, CheckoutOptions{CancelURL: "https://evil.example/"}, ErrValidation},
		{"downgraded scheme", ok.ID, CheckoutOptions{SuccessURL: "http://portal.example/obrigado"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.commerce.CreateSession(ctx, tt.ebookID, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.processor.Calls())
}

func TestCommerceService_ProcessorUnavailable(t *testing.T) {
	f := newCommerceFixture(t, nil)
	e := f.publishedEbook(t, EbookInput{ID: "manual", Title: "Manual", PDFRef: "asset://x"})

	outage := errors.New("dial tcp: connection refused")
	f.processor.SetUnavailable(outage)

	_, err := f.commerce.CreateSession(context.Background(), e.ID, CheckoutOptions{})
	require.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, outage)
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.True(t, ext.Retryable())
}

type slowProcessor struct {
	payment.Processor
}

func (slowProcessor) CreateSession(ctx context.Context, _ payment.CreateSessionRequest) (model.PaymentSession, error) {
	<-ctx.Done()
	return model.PaymentSession{}, ctx.Err()
}

func TestCommerceService_ProcessorTimeout(t *testing.T) {
	f := newCommerceFixture(t, nil)
	e := f.publishedEbook(t, EbookInput{ID: "manual", Title: "Manual", PDFRef: "asset://x"})

	svc := NewCommerceService(f.queries, slowProcessor{}, CommerceConfig{
		SuccessURL: "https://portal.example/ok",
		CancelURL:  "https://portal.example/cancel",
		Timeout:    20 * time.Millisecond,
	}, discardLogger())

	_, err := svc.CreateSession(context.Background(), e.ID, CheckoutOptions{})
	assert.ErrorIs(t, err, ErrExternalService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
