// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

func newTestProcessor(t *testing.T, h http.HandlerFunc) *HTTPProcessor {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPProcessor(HTTPConfig{BaseURL: srv.URL, SecretKey: "sk_test", Timeout: 2 * time.Second})
}

func TestHTTPProcessor_CreateSession(t *testing.T) {
	p := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		user, _, ok := r.BasicAuth()
		if !ok || user != "sk_test" {
			t.Errorf("basic auth user = %q, want sk_test", user)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		checks := [][2]string{
			{"mode", "payment"},
			{"metadata[ebook_id]", "guia"},
			{"line_items[0][price_data][unit_amount]", "2990"},
			{"line_items[0][price_data][currency]", "brl"},
			{"customer_email", "ana@example.org"},
		}
		for _, c := range checks {
			if got := r.PostForm.Get(c[0]); got != c[1] {
				t.Errorf("form %s = %q, want %q", c[0], got, c[1])
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1","status":"open","payment_status":"unpaid",
			"amount_total":2990,"currency":"brl","created":1700000000,"metadata":{"ebook_id":"guia"}}`))
	})

	s, err := p.CreateSession(context.Background(), CreateSessionRequest{
		EbookID:       "guia",
		Title:         "Guia",
		AmountCents:   2990,
		Currency:      "BRL",
		CustomerEmail: "ana@example.org",
		SuccessURL:    "https://portal.example/ok?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://portal.example/cancel",
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID != "cs_1" {
		t.Errorf("ID = %q, want cs_1", s.ID)
	}
	if s.RedirectURL != "https://pay.example/cs_1" {
		t.Errorf("RedirectURL = %q", s.RedirectURL)
	}
	if s.Status != model.SessionPending {
		t.Errorf("Status = %q, want pending", s.Status)
	}
	if s.Currency != "BRL" || s.AmountCents != 2990 || s.EbookID != "guia" {
		t.Errorf("session = %+v", s)
	}
}

func TestHTTPProcessor_GetSessionStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.SessionStatus
	}{
		{"open", `{"id":"cs","status":"open","payment_status":"unpaid"}`, model.SessionPending},
		{"paid", `{"id":"cs","status":"complete","payment_status":"paid"}`, model.SessionPaid},
		{"no payment required", `{"id":"cs","status":"complete","payment_status":"no_payment_required"}`, model.SessionPaid},
		{"async pending", `{"id":"cs","status":"complete","payment_status":"unpaid","payment_intent":{"status":"processing"}}`, model.SessionPending},
		{"expired", `{"id":"cs","status":"expired","payment_status":"unpaid"}`, model.SessionExpired},
		{"canceled intent", `{"id":"cs","status":"complete","payment_status":"unpaid","payment_intent":{"status":"canceled"}}`, model.SessionFailed},
		{"declined", `{"id":"cs","status":"complete","payment_status":"unpaid","payment_intent":{"status":"requires_payment_method","last_payment_error":{"code":"card_declined"}}}`, model.SessionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/checkout/sessions/cs" {
					t.Errorf("path = %q", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			s, err := p.GetSession(context.Background(), "cs")
			if err != nil {
				t.Fatalf("GetSession: %v", err)
			}
			if s.Status != tt.want {
				t.Errorf("Status = %q, want %q", s.Status, tt.want)
			}
		})
	}
}

func TestHTTPProcessor_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		p := newTestProcessor(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"resource_missing","message":"No such checkout.session"}}`))
		})
		_, err := p.GetSession(context.Background(), "missing")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("bare 404 is not a missing session", func(t *testing.T) {
		p := newTestProcessor(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<html><body>404 page not found</body></html>`))
		})
		_, err := p.GetSession(context.Background(), "cs_1")
		if errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("err = %v, a proxy 404 must not read as a missing session", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
			t.Errorf("err = %v, want *StatusError with 404", err)
		}
	})

	t.Run("resource missing on 400", func(t *testing.T) {
		p := newTestProcessor(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"resource_missing"}}`))
		})
		_, err := p.GetSession(context.Background(), "missing")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("err = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		p := newTestProcessor(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := p.GetSession(context.Background(), "cs")
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("err = %v, want *StatusError", err)
		}
		if !se.Temporary() {
			t.Error("502 should be temporary")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()
		p := NewHTTPProcessor(HTTPConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
		if _, err := p.GetSession(context.Background(), "cs"); err == nil {
			t.Error("expected timeout error")
		}
	})
}

func TestHTTPProcessor_BlockPrivate(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := NewHTTPProcessor(HTTPConfig{BaseURL: srv.URL, Timeout: time.Second, BlockPrivate: true})
	_, err := p.GetSession(context.Background(), "cs_1")
	if err == nil || !strings.Contains(err.Error(), "private or reserved address") {
		t.Fatalf("GetSession = %v, want blocked dial", err)
	}
	if called {
		t.Error("request reached a loopback server")
	}
}

func TestStatusError_Temporary(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, false},
		{401, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		if got := (&StatusError{StatusCode: tt.code}).Temporary(); got != tt.want {
			t.Errorf("Temporary(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
