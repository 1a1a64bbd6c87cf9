// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/seo"
	"github.com/olegiv/portal-go/internal/service"
)

// sitemapPages are the singleton pages linked from the sitemap when stored.
var sitemapPages = []string{model.PageSlugAbout, model.PageSlugContact}

// SEOConfig configures the crawler endpoints.
type SEOConfig struct {
	// SiteURL is the public frontend origin the sitemap links to.
	SiteURL string
	// DisallowAll blocks every crawler, for staging deployments.
	DisallowAll bool
	// BlockAgents are crawlers denied the whole site.
	BlockAgents []string
	// CacheTTL bounds how stale a served sitemap may be.
	CacheTTL time.Duration
}

// SEOHandler serves /sitemap.xml and /robots.txt.
type SEOHandler struct {
	content    *service.ContentService
	categories *service.CategoryRegistry
	pages      *service.PageService
	ebooks     *service.EbookService
	cache      cache.Cacher
	cfg        SEOConfig
	logger     *slog.Logger
}

// NewSEOHandler creates a new SEO handler. c may be nil.
func NewSEOHandler(content *service.ContentService, categories *service.CategoryRegistry,
	pages *service.PageService, ebooks *service.EbookService, c cache.Cacher, cfg SEOConfig, logger *slog.Logger) *SEOHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SEOHandler{
		content:    content,
		categories: categories,
		pages:      pages,
		ebooks:     ebooks,
		cache:      c,
		cfg:        cfg,
		logger:     logger,
	}
}

// Sitemap handles GET /sitemap.xml.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		if data, err := h.cache.Get(ctx, cache.SitemapKey()); err == nil {
			writeXML(w, data)
			return
		}
	}

	data, err := h.buildSitemap(ctx)
	if err != nil {
		h.logger.Error("failed to build sitemap", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, cache.SitemapKey(), data, h.cfg.CacheTTL); err != nil {
			h.logger.Warn("failed to cache sitemap", "error", err)
		}
	}
	writeXML(w, data)
}

func (h *SEOHandler) buildSitemap(ctx context.Context) ([]byte, error) {
	b := seo.NewSitemapBuilder(h.cfg.SiteURL)
	b.AddHomepage()

	for _, slug := range sitemapPages {
		doc, found, err := h.pages.Get(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("loading page %s: %w", slug, err)
		}
		if found {
			b.AddPage(slug, doc.UpdatedAt)
		}
	}

	categories, err := h.categories.ListVisible(ctx, model.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	for _, c := range categories {
		b.AddCategory(c)
	}

	for offset := 0; !b.Full(); offset += service.MaxListLimit {
		ebooks, total, err := h.ebooks.ListPublished(ctx, false, service.MaxListLimit, offset)
		if err != nil {
			return nil, fmt.Errorf("listing ebooks: %w", err)
		}
		for _, e := range ebooks {
			b.AddEbook(e)
		}
		if int64(offset+len(ebooks)) >= total || len(ebooks) == 0 {
			break
		}
	}

	for offset := 0; !b.Full(); offset += service.MaxListLimit {
		items, total, err := h.content.ListPublished(ctx, model.ContentFilter{
			Order:  model.OrderNewest,
			Limit:  service.MaxListLimit,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("listing content: %w", err)
		}
		for _, item := range items {
			b.AddContent(item)
		}
		if int64(offset+len(items)) >= total || len(items) == 0 {
			break
		}
	}

	return b.Build()
}

// Robots handles GET /robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	content := seo.NewRobotsBuilder(seo.RobotsConfig{
		SiteURL:     h.cfg.SiteURL,
		DisallowAll: h.cfg.DisallowAll,
		BlockAgents: h.cfg.BlockAgents,
	}).Build()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(content))
}

func writeXML(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(data)
}
