// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/portal-go/internal/auth"
	"github.com/olegiv/portal-go/internal/middleware"
)

// DefaultPublicMaxAge is the Cache-Control max-age of public reads.
const DefaultPublicMaxAge = 60

// RouteOptions configure the API router.
type RouteOptions struct {
	// Verifier authenticates bearer tokens. Nil rejects every token.
	Verifier auth.Verifier
	// APILimiter applies to every API request when set.
	APILimiter *middleware.RateLimiter
	// CheckoutLimiter applies to checkout creation when set.
	CheckoutLimiter *middleware.RateLimiter
	// PublicMaxAge is the max-age of public reads; zero uses the default,
	// a negative value disables caching.
	PublicMaxAge int
}

// Routes returns the /api/v1 router.
func (h *Handler) Routes(opts RouteOptions) chi.Router {
	maxAge := opts.PublicMaxAge
	if maxAge == 0 {
		maxAge = DefaultPublicMaxAge
	}
	publicCache := middleware.NoStore
	if maxAge > 0 {
		publicCache = middleware.PublicCache(maxAge)
	}

	r := chi.NewRouter()
	if opts.APILimiter != nil {
		r.Use(opts.APILimiter.Middleware())
	}
	r.Use(middleware.Authenticate(opts.Verifier))

	r.With(middleware.NoStore).Get("/status", h.Status)

	// Public reads
	r.Group(func(r chi.Router) {
		r.Use(publicCache)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{slug}", h.GetCategory)
		r.Get("/pages/{slug}", h.GetPage)
		r.Get("/ebooks", h.ListEbooks)
		r.Get("/ebooks/{id}", h.GetEbook)
		r.Get("/{kind}", h.ListPublished)
		r.Get("/{kind}/{id}", h.GetPublished)
	})

	r.Post("/content/{id}/views", h.RecordView)

	// Commerce
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		if opts.CheckoutLimiter != nil {
			r.With(opts.CheckoutLimiter.Middleware()).Post("/ebooks/{id}/checkout", h.CreateCheckout)
		} else {
			r.Post("/ebooks/{id}/checkout", h.CreateCheckout)
		}
		r.Get("/checkout/sessions/{sessionID}", h.VerifyCheckout)
	})

	// Administration
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireActor, middleware.NoStore)

		r.Route("/content", func(r chi.Router) {
			r.Get("/", h.AdminListContent)
			r.Post("/", h.CreateContent)
			r.Get("/{id}", h.AdminGetContent)
			r.Put("/{id}", h.UpdateContent)
			r.Delete("/{id}", h.DeleteContent)
			r.Post("/{id}/toggle-published", h.ToggleContentPublished)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.AdminListCategories)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})

		r.Get("/pages", h.AdminListPages)
		r.Put("/pages/{slug}", h.UpsertPage)

		r.Route("/ebooks", func(r chi.Router) {
			r.Get("/", h.AdminListEbooks)
			r.Post("/", h.CreateEbook)
			r.Get("/{id}", h.AdminGetEbook)
			r.Put("/{id}", h.UpdateEbook)
			r.Delete("/{id}", h.DeleteEbook)
			r.Post("/{id}/toggle-published", h.ToggleEbookPublished)
		})

		if h.svc.Events != nil {
			r.Get("/events", h.AdminListEvents)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})
	return r
}
