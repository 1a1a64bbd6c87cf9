// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/portal-go/internal/middleware"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/render"
	"github.com/olegiv/portal-go/internal/service"
)

// EbookResponse is a catalog entry as served to public readers.
type EbookResponse struct {
	model.Ebook
	DescriptionHTML string `json:"description_html,omitempty"`
}

// AdminEbookResponse exposes the asset reference, hidden from the public.
type AdminEbookResponse struct {
	model.Ebook
	PDFRef string `json:"pdf_ref"`
}

func adminEbook(e model.Ebook) AdminEbookResponse {
	return AdminEbookResponse{Ebook: e, PDFRef: e.PDFRef}
}

type ebookRequest struct {
	service.EbookInput
	Version *int64 `json:"version,omitempty"`
}

// ListEbooks handles GET /api/v1/ebooks?featured=.
func (h *Handler) ListEbooks(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePaging(w, r)
	if !ok {
		return
	}
	featured, err := parseBoolQuery(r, "featured")
	if err != nil {
		WriteValidationError(w, "Invalid query parameters", map[string]string{"featured": "must be a boolean"})
		return
	}
	ebooks, total, err := h.svc.Ebooks.ListPublished(r.Context(), featured, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, ebooks, pageMeta(total, limit, offset))
}

// GetEbook handles GET /api/v1/ebooks/{id}.
func (h *Handler) GetEbook(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Ebooks.GetPublished(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	html, err := render.Markdown(e.Description)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, EbookResponse{Ebook: e, DescriptionHTML: html}, nil)
}

// AdminListEbooks handles GET /api/v1/admin/ebooks.
func (h *Handler) AdminListEbooks(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePaging(w, r)
	if !ok {
		return
	}
	ebooks, total, err := h.svc.Ebooks.List(r.Context(), middleware.GetActor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]AdminEbookResponse, 0, len(ebooks))
	for _, e := range ebooks {
		out = append(out, adminEbook(e))
	}
	WriteSuccess(w, out, pageMeta(total, limit, offset))
}

// AdminGetEbook handles GET /api/v1/admin/ebooks/{id}.
func (h *Handler) AdminGetEbook(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Ebooks.Get(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, e.Version)
	WriteSuccess(w, adminEbook(e), nil)
}

// CreateEbook handles POST /api/v1/admin/ebooks.
func (h *Handler) CreateEbook(w http.ResponseWriter, r *http.Request) {
	var req ebookRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	e, err := h.svc.Ebooks.Create(r.Context(), middleware.GetActor(r), req.EbookInput)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, e.Version)
	WriteCreated(w, adminEbook(e))
}

// UpdateEbook handles PUT /api/v1/admin/ebooks/{id}.
func (h *Handler) UpdateEbook(w http.ResponseWriter, r *http.Request) {
	var req ebookRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	expected, ok := requireVersion(w, r, req.Version)
	if !ok {
		return
	}
	e, err := h.svc.Ebooks.Update(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"), expected, req.EbookInput)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, e.Version)
	WriteSuccess(w, adminEbook(e), nil)
}

// ToggleEbookPublished handles POST /api/v1/admin/ebooks/{id}/toggle-published.
func (h *Handler) ToggleEbookPublished(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Ebooks.TogglePublished(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, e.Version)
	WriteSuccess(w, adminEbook(e), nil)
}

// DeleteEbook handles DELETE /api/v1/admin/ebooks/{id}.
func (h *Handler) DeleteEbook(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ebooks.Delete(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
