// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olegiv/portal-go/internal/asset"
	"github.com/olegiv/portal-go/internal/auth"
	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/payment"
	"github.com/olegiv/portal-go/internal/service"
	"github.com/olegiv/portal-go/internal/store"
	"github.com/olegiv/portal-go/internal/testutil"
)

const (
	adminToken  = "admin-token"
	editorToken = "editor-token"
	viewerToken = "viewer-token"
)

type testServer struct {
	t         *testing.T
	handler   http.Handler
	queries   *store.Queries
	processor *payment.MemoryProcessor
	views     *service.ViewCounter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testutil.TestLoggerSilent()
	q := store.New(testutil.SQLite3DB(t))
	c := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	processor := payment.NewMemoryProcessor("https://pay.test/checkout")
	events := service.NewEventService(q, logger)
	views := service.NewViewCounter(q, logger, false)

	h := NewHandler(Services{
		Content:    service.NewContentService(q, events, nil, logger),
		Views:      views,
		Categories: service.NewCategoryRegistry(q, c, time.Minute, events, logger),
		Pages:      service.NewPageService(q, c, time.Minute, events, nil, logger),
		Ebooks:     service.NewEbookService(q, model.DefaultCurrency, events, nil, logger),
		Commerce: service.NewCommerceService(q, processor, service.CommerceConfig{
			SuccessURL: "https://portal.test/obrigado?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:  "https://portal.test/ebooks",
			Timeout:    time.Second,
		}, logger),
		Verifier: service.NewPaymentVerifier(q, processor,
			service.NewEntitlementIssuer(asset.NewDirectStore("https://files.test")),
			c, service.VerifierConfig{CacheTTL: time.Hour, Timeout: time.Second}, logger),
		Events: events,
	}, logger)

	verifier := auth.StaticVerifier{
		adminToken:  model.NewActor("admin-1", "admin@example.org", model.RoleAdmin),
		editorToken: model.NewActor("editor-1", "editor@example.org", model.RoleEditor),
		viewerToken: model.NewActor("viewer-1", "viewer@example.org", model.RoleViewer),
	}

	return &testServer{
		t:         t,
		handler:   h.Routes(RouteOptions{Verifier: verifier}),
		queries:   q,
		processor: processor,
		views:     views,
	}
}

// do sends a request with an optional JSON body and bearer token.
func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// envelope decodes {data, meta} into T.
type envelope[T any] struct {
	Data T     `json:"data"`
	Meta *Meta `json:"meta"`
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding %q: %v", rr.Body.String(), err)
	}
	return env
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding %q: %v", rr.Body.String(), err)
	}
	return resp.Error
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("Status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

// createPublished creates and publishes an item as the editor.
func (s *testServer) createPublished(in service.ContentInput) model.ContentItem {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/admin/content", editorToken, in)
	assertStatus(s.t, rr, http.StatusCreated)
	item := decodeData[model.ContentItem](s.t, rr).Data

	rr = s.do(http.MethodPost, "/admin/content/"+itoa(item.ID)+"/toggle-published", editorToken, nil)
	assertStatus(s.t, rr, http.StatusOK)
	return decodeData[model.ContentItem](s.t, rr).Data
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
