// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers of the portal.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/portal-go/internal/service"
	"github.com/olegiv/portal-go/internal/version"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Services are the collaborators the API handlers call into.
type Services struct {
	Content    *service.ContentService
	Views      *service.ViewCounter
	Categories *service.CategoryRegistry
	Pages      *service.PageService
	Ebooks     *service.EbookService
	Commerce   *service.CommerceService
	Verifier   *service.PaymentVerifier
	// Events is optional; without it the admin event log is not routed.
	Events *service.EventService
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, message string, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", message, fieldErrors)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

// WriteServiceUnavailable writes a retryable 503 response.
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse{
		Error: ErrorDetail{
			Code:      "external_service_unavailable",
			Message:   message,
			Retryable: true,
		},
	})
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
// Details of external and unexpected failures are only logged.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		WriteValidationError(w, validationErr.Error(), validationErr.Details())
	case errors.Is(err, service.ErrValidation):
		WriteValidationError(w, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, service.ErrPermission):
		WriteError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action", nil)
	case errors.Is(err, service.ErrExternalService):
		h.logger.Error("external service failed", "error", err, "path", r.URL.Path)
		WriteServiceUnavailable(w, "A required service is temporarily unavailable. Please try again.")
	default:
		h.logger.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		WriteInternalError(w)
	}
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string       `json:"status"`
	Version version.Info `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{Status: "ok", Version: version.Get()}, nil)
}

// decodeJSON reads a JSON body into dst. It writes the error response and
// returns false on failure. An empty body is accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		WriteBadRequest(w, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// parseIDParam parses the {id} URL parameter.
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid ID")
		return 0, false
	}
	return id, true
}

// parsePaging reads limit and offset query parameters.
func parsePaging(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	fields := map[string]string{}
	parse := func(name string) int {
		raw := q.Get(name)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[name] = "must be an integer"
		}
		return n
	}
	limit, offset = parse("limit"), parse("offset")
	if len(fields) > 0 {
		WriteValidationError(w, "Invalid query parameters", fields)
		return 0, 0, false
	}
	return limit, offset, true
}

// pageMeta echoes the effective paging of a list response.
func pageMeta(total int64, limit, offset int) *Meta {
	if limit <= 0 {
		limit = service.DefaultListLimit
	}
	if limit > service.MaxListLimit {
		limit = service.MaxListLimit
	}
	return &Meta{Total: total, Limit: limit, Offset: offset}
}

// parseBoolQuery parses a boolean query parameter; absent means false.
func parseBoolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// ifMatchVersion reads an entity version from the If-Match header.
// Both quoted and weak tags are accepted.
func ifMatchVersion(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, errors.New("If-Match must carry an entity version")
	}
	return &v, nil
}

// requireVersion resolves the expected version of an update from If-Match or
// the body. Updates without one are rejected with 428.
func requireVersion(w http.ResponseWriter, r *http.Request, fromBody *int64) (int64, bool) {
	v, err := ifMatchVersion(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	if v == nil {
		v = fromBody
	}
	if v == nil {
		WriteError(w, http.StatusPreconditionRequired, "precondition_required",
			"Send the current version in If-Match or the version field", nil)
		return 0, false
	}
	return *v, true
}

// setETag exposes an entity version for later If-Match requests.
func setETag(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", `"`+strconv.FormatInt(version, 10)+`"`)
}
