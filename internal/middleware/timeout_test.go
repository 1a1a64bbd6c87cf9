// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serveWithTimeout(d time.Duration, h http.HandlerFunc) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	Timeout(d)(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	return rr
}

func TestTimeoutPassesFastResponseThrough(t *testing.T) {
	rr := serveWithTimeout(time.Second, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"3"`)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	if rr.Code != http.StatusCreated {
		t.Errorf("Status = %d, want 201", rr.Code)
	}
	if rr.Header().Get("ETag") != `"3"` {
		t.Errorf("ETag = %q", rr.Header().Get("ETag"))
	}
	if rr.Body.String() != `{"data":{}}` {
		t.Errorf("Body = %q", rr.Body.String())
	}
}

func TestTimeoutImplicitOK(t *testing.T) {
	rr := serveWithTimeout(time.Second, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}

	rr = serveWithTimeout(time.Second, func(http.ResponseWriter, *http.Request) {})
	if rr.Code != http.StatusOK {
		t.Errorf("empty handler Status = %d, want 200", rr.Code)
	}
}

func TestTimeoutSlowHandler(t *testing.T) {
	lateErr := make(chan error, 1)
	rr := serveWithTimeout(30*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Partial", "yes")
		<-r.Context().Done()
		time.Sleep(10 * time.Millisecond)
		_, err := w.Write([]byte("too late"))
		lateErr <- err
	})

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Status = %d, want 503", rr.Code)
	}
	if rr.Header().Get("X-Partial") != "" {
		t.Error("headers of an abandoned response leaked")
	}
	var apiErr APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if apiErr.Error.Code != "request_timeout" || !apiErr.Error.Retryable {
		t.Errorf("error = %+v, want retryable request_timeout", apiErr.Error)
	}

	select {
	case err := <-lateErr:
		if err != http.ErrHandlerTimeout {
			t.Errorf("late Write error = %v, want ErrHandlerTimeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never finished")
	}
}

func TestTimeoutClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	h := Timeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}))
	h.ServeHTTP(rr, req)

	if rr.Body.Len() != 0 {
		t.Errorf("nothing should be written for a cancelled request, got %q", rr.Body.String())
	}
}

func TestTimeoutDisabled(t *testing.T) {
	rr := serveWithTimeout(0, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("disabled timeout should not set a deadline")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if rr.Code != http.StatusNoContent {
		t.Errorf("Status = %d, want 204", rr.Code)
	}
}

func TestTimeoutRepanics(t *testing.T) {
	defer func() {
		if p := recover(); p != "boom" {
			t.Errorf("recovered %v, want boom", p)
		}
	}()
	serveWithTimeout(time.Second, func(http.ResponseWriter, *http.Request) { panic("boom") })
	t.Fatal("panic was swallowed")
}
