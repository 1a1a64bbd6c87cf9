// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/olegiv/portal-go/internal/middleware"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/service"
)

// EventResponse is an event log entry.
type EventResponse struct {
	ID        int64          `json:"id"`
	Level     string         `json:"level"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Actor     string         `json:"actor,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// AdminListEvents handles GET /api/v1/admin/events. Admins only; the
// optional level query parameter filters by severity.
func (h *Handler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	if middleware.GetActor(r).Role != model.RoleAdmin {
		h.writeServiceError(w, r, &service.PermissionError{Action: "read the event log"})
		return
	}
	limit, offset, ok := parsePaging(w, r)
	if !ok {
		return
	}

	events, err := h.svc.Events.ListEvents(r.Context(), r.URL.Query().Get("level"), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			Actor:     e.Actor,
			Metadata:  e.Fields(),
			CreatedAt: e.CreatedAt,
		})
	}
	WriteSuccess(w, out, nil)
}
