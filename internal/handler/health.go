// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the operational HTTP handlers of the portal.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/middleware"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/version"
)

const checkTimeout = 2 * time.Second

// Check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// pinger is implemented by caches that talk to a remote server.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db           *sql.DB
	cache        cache.Cacher
	cacheBackend string
	startTime    time.Time
}

// NewHealthHandler creates a new health handler. c may be nil.
func NewHealthHandler(db *sql.DB, c cache.Cacher, cacheBackend string) *HealthHandler {
	return &HealthHandler{
		db:           db,
		cache:        c,
		cacheBackend: cacheBackend,
		startTime:    time.Now(),
	}
}

// StartTime returns when the handler (and application) was started.
func (h *HealthHandler) StartTime() time.Time {
	return h.startTime
}

// HealthStatusPublic is the minimal health response for unauthenticated callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus represents the overall health status (admins only).
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   version.Info     `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Cache     *cache.Stats     `json:"cache,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// depCheck is one dependency check. A failing critical check makes the
// portal unhealthy; any other failure only degrades it.
type depCheck struct {
	name     string
	critical bool
	run      func(context.Context) Check
}

func (h *HealthHandler) depChecks() []depCheck {
	return []depCheck{
		{name: "database", critical: true, run: h.checkDatabase},
		{name: "cache", run: h.checkCache},
	}
}

// runChecks runs every dependency check concurrently and folds the results into an
// overall status.
func (h *HealthHandler) runChecks(ctx context.Context) (string, map[string]Check) {
	deps := h.depChecks()
	results := make([]Check, len(deps))

	var g errgroup.Group
	for i, p := range deps {
		g.Go(func() error {
			results[i] = p.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	checks := make(map[string]Check, len(deps))
	for i, p := range deps {
		c := results[i]
		checks[p.name] = c
		switch {
		case c.Status == StatusHealthy:
		case p.critical:
			overall = StatusUnhealthy
		case overall == StatusHealthy:
			overall = StatusDegraded
		}
	}
	return overall, checks
}

// Health handles GET /health. Anonymous callers only get the overall
// status; admins also get every check, cache counters and, with
// ?verbose=true, runtime figures.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	overall, checks := h.runChecks(r.Context())

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	if middleware.GetActor(r).Role != model.RoleAdmin {
		writeJSON(w, code, HealthStatusPublic{Status: overall})
		return
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   version.Get(),
		Checks:    checks,
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		stats := sp.Stats()
		status.Cache = &stats
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /health/live. It never touches dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. Only the database gates traffic;
// the error text is shown to admins.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	db := h.checkDatabase(r.Context())
	if db.Status == StatusHealthy {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	resp := map[string]string{"status": "not_ready"}
	if middleware.GetActor(r).Role == model.RoleAdmin {
		resp["message"] = db.Message
	}
	writeJSON(w, http.StatusServiceUnavailable, resp)
}

// timed runs fn under checkTimeout and reports its latency.
func timed(ctx context.Context, fn func(context.Context) error) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	return time.Since(start), err
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	latency, err := timed(ctx, h.db.PingContext)
	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: StatusHealthy, Message: "Connected", Latency: latency.String()}
}

// checkCache pings remote caches; in-process caches are always healthy.
func (h *HealthHandler) checkCache(ctx context.Context) Check {
	if h.cache == nil {
		return Check{Status: StatusHealthy, Message: "disabled"}
	}
	p, ok := h.cache.(pinger)
	if !ok {
		return Check{Status: StatusHealthy, Message: h.cacheBackend}
	}
	latency, err := timed(ctx, p.Ping)
	if err != nil {
		return Check{Status: StatusDegraded, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: StatusHealthy, Message: h.cacheBackend, Latency: latency.String()}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     humanize.IBytes(m.Alloc),
		MemSys:       humanize.IBytes(m.Sys),
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
