// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/portal-go/internal/middleware"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/render"
	"github.com/olegiv/portal-go/internal/service"
)

// ContentResponse is a content item as served to public readers.
type ContentResponse struct {
	model.ContentItem
	CategoryLabel string `json:"category_label,omitempty"`
	BodyHTML      string `json:"body_html,omitempty"`
}

// contentRequest is the body of admin create and update calls.
type contentRequest struct {
	service.ContentInput
	Version *int64 `json:"version,omitempty"`
}

func (h *Handler) publicItem(ctx context.Context, item model.ContentItem, withHTML bool) (ContentResponse, error) {
	resp := ContentResponse{ContentItem: item}
	if item.CategorySlug != "" {
		resp.CategoryLabel = h.svc.Categories.Label(ctx, item.CategorySlug)
	}
	if withHTML {
		html, err := render.Markdown(item.Body)
		if err != nil {
			return ContentResponse{}, err
		}
		resp.BodyHTML = html
	}
	return resp, nil
}

// kindParam parses the {kind} URL parameter ("articles", "events", ...).
func kindParam(w http.ResponseWriter, r *http.Request) (model.Kind, bool) {
	kind, ok := model.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		WriteNotFound(w, "Unknown content kind")
		return "", false
	}
	return kind, true
}

// ListPublished handles GET /api/v1/{kind}.
func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	limit, offset, ok := parsePaging(w, r)
	if !ok {
		return
	}
	featured, err := parseBoolQuery(r, "featured")
	if err != nil {
		WriteValidationError(w, "Invalid query parameters", map[string]string{"featured": "must be a boolean"})
		return
	}
	upcoming, err := parseBoolQuery(r, "upcoming")
	if err != nil {
		WriteValidationError(w, "Invalid query parameters", map[string]string{"upcoming": "must be a boolean"})
		return
	}

	items, total, err := h.svc.Content.ListPublished(r.Context(), model.ContentFilter{
		Kind:         kind,
		CategorySlug: r.URL.Query().Get("category"),
		FeaturedOnly: featured,
		UpcomingOnly: upcoming,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]ContentResponse, 0, len(items))
	for _, item := range items {
		resp, err := h.publicItem(r.Context(), item, false)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		out = append(out, resp)
	}
	WriteSuccess(w, out, pageMeta(total, limit, offset))
}

// GetPublished handles GET /api/v1/{kind}/{id}. A successful read counts
// one view in the background.
func (h *Handler) GetPublished(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Content.GetPublished(r.Context(), kind, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp, err := h.publicItem(r.Context(), item, true)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if h.svc.Views != nil {
		h.svc.Views.Track(item.ID, r.UserAgent())
	}
	WriteSuccess(w, resp, nil)
}

// RecordView handles POST /api/v1/content/{id}/views. Counting is best
// effort and skips items hidden from the public, so the response is always
// 202 for a well-formed id.
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if h.svc.Views != nil {
		h.svc.Views.Track(id, r.UserAgent())
	}
	WriteJSON(w, http.StatusAccepted, Response{Data: map[string]any{"id": id, "accepted": true}})
}

// AdminListContent handles GET /api/v1/admin/content.
func (h *Handler) AdminListContent(w http.ResponseWriter, r *http.Request) {
	var kind model.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := model.ParseKind(raw)
		if !ok {
			WriteValidationError(w, "Invalid query parameters", map[string]string{"kind": "unknown content kind"})
			return
		}
		kind = k
	}
	limit, offset, ok := parsePaging(w, r)
	if !ok {
		return
	}

	items, total, err := h.svc.Content.List(r.Context(), middleware.GetActor(r), kind, limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, items, pageMeta(total, limit, offset))
}

// AdminGetContent handles GET /api/v1/admin/content/{id}.
func (h *Handler) AdminGetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Content.Get(r.Context(), middleware.GetActor(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, item.Version)
	WriteSuccess(w, item, nil)
}

// CreateContent handles POST /api/v1/admin/content.
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	item, err := h.svc.Content.Create(r.Context(), middleware.GetActor(r), req.ContentInput)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, item.Version)
	WriteCreated(w, item)
}

// UpdateContent handles PUT /api/v1/admin/content/{id}.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	expected, ok := requireVersion(w, r, req.Version)
	if !ok {
		return
	}

	item, err := h.svc.Content.Update(r.Context(), middleware.GetActor(r), id, expected, req.ContentInput)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, item.Version)
	WriteSuccess(w, item, nil)
}

// ToggleContentPublished handles POST /api/v1/admin/content/{id}/toggle-published.
func (h *Handler) ToggleContentPublished(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Content.TogglePublished(r.Context(), middleware.GetActor(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	setETag(w, item.Version)
	WriteSuccess(w, item, nil)
}

// DeleteContent handles DELETE /api/v1/admin/content/{id}.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Content.Delete(r.Context(), middleware.GetActor(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
