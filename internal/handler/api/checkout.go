// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/portal-go/internal/service"
)

// CreateCheckout handles POST /api/v1/ebooks/{id}/checkout. The body is
// optional; without it the configured return URLs are used.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var opts service.CheckoutOptions
	if !decodeJSON(w, r, &opts, true) {
		return
	}
	session, err := h.svc.Commerce.CreateSession(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, session)
}

// VerifyCheckout handles GET /api/v1/checkout/sessions/{sessionID}. An
// unpaid session is a normal 200 response with paid=false.
func (h *Handler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Verifier.Verify(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, result, nil)
}
