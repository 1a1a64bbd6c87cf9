// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/portal-go/internal/middleware"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/service"
)

type categoryRequest struct {
	service.CategoryInput
	Version *int64 `json:"version,omitempty"`
}

// ListCategories handles GET /api/v1/categories?scope=menu|home|all.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	scope, ok := model.ParseCategoryScope(r.URL.Query().Get("scope"))
	if !ok {
		WriteValidationError(w, "Invalid query parameters", map[string]string{"scope": "must be menu, home or all"})
		return
	}
	categories, err := h.svc.Categories.ListVisible(r.Context(), scope)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, categories, &Meta{Total: int64(len(categories)), Limit: len(categories)})
}

// GetCategory handles GET /api/v1/categories/{slug}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Categories.ResolveBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, c, nil)
}

// AdminListCategories handles GET /api/v1/admin/categories.
func (h *Handler) AdminListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories.ListAll(r.Context(), middleware.GetActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, categories, &Meta{Total: int64(len(categories)), Limit: len(categories)})
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	c, err := h.svc.Categories.Create(r.Context(), middleware.GetActor(r), req.CategoryInput)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, c.Version)
	WriteCreated(w, c)
}

// UpdateCategory handles PUT /api/v1/admin/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	expected, ok := requireVersion(w, r, req.Version)
	if !ok {
		return
	}
	c, err := h.svc.Categories.Update(r.Context(), middleware.GetActor(r), id, expected, req.CategoryInput)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, c.Version)
	WriteSuccess(w, c, nil)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}. Content that
// references the category keeps its slug.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Categories.Delete(r.Context(), middleware.GetActor(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
