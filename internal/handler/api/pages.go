// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/portal-go/internal/middleware"
	"github.com/olegiv/portal-go/internal/model"
)

// PageResponse is a page document merged over its defaults. Exists is false
// when nothing was stored yet and Content holds the defaults only.
type PageResponse struct {
	Slug      string         `json:"slug"`
	Exists    bool           `json:"exists"`
	Version   int64          `json:"version"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	Content   map[string]any `json:"content"`
}

// GetPage handles GET /api/v1/pages/{slug}.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
	doc, found, err := h.svc.Pages.Get(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := PageResponse{Slug: slug, Exists: found}
	if found {
		resp.Version = doc.Version
		updated := doc.UpdatedAt
		resp.UpdatedAt = &updated
		setETag(w, doc.Version)
	}
	resp.Content, err = model.MergePageDefaults(resp.Slug, doc.Data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, resp, nil)
}

// AdminListPages handles GET /api/v1/admin/pages.
func (h *Handler) AdminListPages(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Pages.List(r.Context(), middleware.GetActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, docs, &Meta{Total: int64(len(docs)), Limit: len(docs)})
}

// UpsertPage handles PUT /api/v1/admin/pages/{slug}. The body is the page
// document itself. Without If-Match the last write wins.
func (h *Handler) UpsertPage(w http.ResponseWriter, r *http.Request) {
	expected, err := ifMatchVersion(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		WriteBadRequest(w, "Failed to read body")
		return
	}

	doc, err := h.svc.Pages.Upsert(r.Context(), middleware.GetActor(r), chi.URLParam(r, "slug"), json.RawMessage(data), expected)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, doc.Version)
	WriteSuccess(w, doc, nil)
}
