// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/store"
	"github.com/olegiv/portal-go/internal/util"
)

// maxPageDocumentSize bounds a stored page document.
const maxPageDocumentSize = 256 << 10

// pageEntry is what the page cache stores, including misses. The document
// body is kept as a string so it survives the cache byte for byte.
type pageEntry struct {
	Doc   model.PageDocument `json:"doc"`
	Data  string             `json:"data"`
	Found bool               `json:"found"`
}

func newPageEntry(doc model.PageDocument) *pageEntry {
	e := &pageEntry{Doc: doc, Data: string(doc.Data), Found: true}
	e.Doc.Data = nil
	return e
}

// PageService stores the JSON documents behind static pages.
type PageService struct {
	queries  *store.Queries
	cache    *cache.TypedCache[pageEntry]
	events   *EventService
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewPageService creates a PageService. c, events and notifier may be nil.
func NewPageService(queries *store.Queries, c cache.Cacher, ttl time.Duration, events *EventService, notifier Notifier, logger *slog.Logger) *PageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageService{
		queries:  queries,
		cache:    cache.NewTypedCache[pageEntry](c, ttl),
		events:   events,
		notifier: notifierOrNop(notifier),
		logger:   logger,
		now:      time.Now,
	}
}

func normalizePageSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !util.IsValidSlug(slug) {
		return "", invalid("slug", "must contain only lowercase letters, digits and single hyphens")
	}
	return slug, nil
}

// Get returns the document for slug. A missing document is not an error:
// found is false and callers fall back to model.PageDefaults.
func (s *PageService) Get(ctx context.Context, slug string) (model.PageDocument, bool, error) {
	slug, err := normalizePageSlug(slug)
	if err != nil {
		return model.PageDocument{}, false, err
	}
	entry, err := s.cache.GetOrSet(ctx, cache.PageKey(slug), func() (*pageEntry, error) {
		doc, err := s.queries.GetPageDocument(ctx, slug)
		if err != nil {
			if store.IsNotFound(err) {
				return &pageEntry{}, nil
			}
			return nil, fmt.Errorf("getting page %s: %w", slug, err)
		}
		return newPageEntry(doc), nil
	})
	if err != nil {
		return model.PageDocument{}, false, err
	}
	if !entry.Found {
		return model.PageDocument{}, false, nil
	}
	doc := entry.Doc
	doc.Data = json.RawMessage(entry.Data)
	return doc, true, nil
}

// List returns every stored page document.
func (s *PageService) List(ctx context.Context, actor model.Actor) ([]model.PageDocument, error) {
	if !actor.CanWrite {
		return nil, &PermissionError{Action: "list pages"}
	}
	docs, err := s.queries.ListPageDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	return docs, nil
}

// Upsert replaces the document for slug. data must be a JSON object and is
// stored verbatim. With expectedVersion nil the last write wins; otherwise the
// write succeeds only if the stored version equals it, where 0 means the
// document must not exist yet.
func (s *PageService) Upsert(ctx context.Context, actor model.Actor, slug string, data json.RawMessage, expectedVersion *int64) (model.PageDocument, error) {
	if !actor.CanWrite {
		return model.PageDocument{}, &PermissionError{Action: "edit pages"}
	}
	slug, err := normalizePageSlug(slug)
	if err != nil {
		return model.PageDocument{}, err
	}
	if err := validatePageData(data); err != nil {
		return model.PageDocument{}, err
	}

	var doc model.PageDocument
	if expectedVersion == nil {
		doc, err = s.queries.UpsertPageDocument(ctx, slug, data, s.now())
	} else {
		doc, err = s.queries.UpsertPageDocumentVersioned(ctx, slug, data, *expectedVersion, s.now())
	}
	if err != nil {
		if errors.Is(err, store.ErrStaleVersion) {
			return model.PageDocument{}, staleVersion("page", slug)
		}
		return model.PageDocument{}, fmt.Errorf("saving page %s: %w", slug, err)
	}

	if err := s.cache.Rotate(ctx, cache.PageKey(slug)); err != nil {
		s.logger.Warn("failed to invalidate page cache", "slug", slug, "error", err, "category", model.EventCategoryCache)
	}
	s.logger.Info("page updated", "slug", slug, "version", doc.Version, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryPage, "page updated", actor, map[string]any{"slug": slug, "version": doc.Version})
	notify(ctx, s.notifier, s.logger, model.EventPageUpdated, map[string]any{"slug": slug, "version": doc.Version})
	return doc, nil
}

func validatePageData(data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return invalid("data", "is required")
	}
	if len(trimmed) > maxPageDocumentSize {
		return invalid("data", "is too large")
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return invalid("data", "must be a JSON object")
	}
	return nil
}
