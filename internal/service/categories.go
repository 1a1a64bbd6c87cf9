// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/store"
	"github.com/olegiv/portal-go/internal/util"
)

// CategoryInput carries the editable fields of a category. An empty slug is
// derived from the name.
type CategoryInput struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	Published  bool   `json:"published"`
	ShowInMenu bool   `json:"show_in_menu"`
	ShowInHome bool   `json:"show_in_home"`
}

func (in *CategoryInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(strings.ToLower(in.Slug))
	if in.Slug == "" {
		in.Slug = util.Slugify(in.Name)
	}
}

func (in *CategoryInput) validate() error {
	return fromValidation(validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Slug, validation.Required, validation.Length(1, 100), validation.By(slugRule)),
		validation.Field(&in.Position, validation.Min(0)),
	))
}

// CategoryRegistry resolves categories for public listings and manages them
// for editors. Published listings are cached and invalidated on every write.
type CategoryRegistry struct {
	queries *store.Queries
	cache   *cache.TypedCache[[]model.Category]
	events  *EventService
	logger  *slog.Logger
	now     func() time.Time
}

// NewCategoryRegistry creates a CategoryRegistry. c and events may be nil.
func NewCategoryRegistry(queries *store.Queries, c cache.Cacher, ttl time.Duration, events *EventService, logger *slog.Logger) *CategoryRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryRegistry{
		queries: queries,
		cache:   cache.NewTypedCache[[]model.Category](c, ttl),
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

func (r *CategoryRegistry) all(ctx context.Context) ([]model.Category, error) {
	categories, err := r.cache.GetOrSet(ctx, cache.CategoriesKey(), func() (*[]model.Category, error) {
		categories, err := r.queries.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing categories: %w", err)
		}
		return &categories, nil
	})
	if err != nil {
		return nil, err
	}
	return *categories, nil
}

// ListVisible returns the published categories shown in scope, ordered by
// position then name.
func (r *CategoryRegistry) ListVisible(ctx context.Context, scope model.CategoryScope) ([]model.Category, error) {
	categories, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]model.Category, 0, len(categories))
	for i := range categories {
		if categories[i].VisibleIn(scope) {
			visible = append(visible, categories[i])
		}
	}
	return visible, nil
}

// ResolveBySlug returns a published category.
func (r *CategoryRegistry) ResolveBySlug(ctx context.Context, slug string) (model.Category, error) {
	categories, err := r.all(ctx)
	if err != nil {
		return model.Category{}, err
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, c := range categories {
		if c.Slug == slug && c.Published {
			return c, nil
		}
	}
	return model.Category{}, notFound("category", slug)
}

// Label returns the display name for a category slug. Unknown or
// unpublished slugs, and lookup failures, yield the fallback label.
func (r *CategoryRegistry) Label(ctx context.Context, slug string) string {
	if slug == "" {
		return model.FallbackCategoryLabel
	}
	c, err := r.ResolveBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("category lookup failed", "slug", slug, "error", err)
		}
		return model.FallbackCategoryLabel
	}
	return c.Name
}

// ListAll returns every category, published or not.
func (r *CategoryRegistry) ListAll(ctx context.Context, actor model.Actor) ([]model.Category, error) {
	if !actor.CanWrite {
		return nil, &PermissionError{Action: "list categories"}
	}
	categories, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// Create adds a category. A taken slug is a conflict.
func (r *CategoryRegistry) Create(ctx context.Context, actor model.Actor, in CategoryInput) (model.Category, error) {
	if !actor.CanWrite {
		return model.Category{}, &PermissionError{Action: "create categories"}
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return model.Category{}, err
	}

	c, err := r.queries.CreateCategory(ctx, store.CreateCategoryParams{
		Slug:       in.Slug,
		Name:       in.Name,
		Position:   in.Position,
		Published:  in.Published,
		ShowInMenu: in.ShowInMenu,
		ShowInHome: in.ShowInHome,
		CreatedAt:  r.now(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Category{}, slugTaken(in.Slug)
		}
		return model.Category{}, fmt.Errorf("creating category: %w", err)
	}

	r.invalidate(ctx)
	r.logger.Info("category created", "id", c.ID, "slug", c.Slug, "actor", actor.Subject)
	r.events.audit(ctx, model.EventCategoryCategory, "category created", actor, map[string]any{"id": c.ID, "slug": c.Slug})
	return c, nil
}

// Update edits a category if expectedVersion matches. Renaming the slug does
// not rewrite content items that reference the old slug.
func (r *CategoryRegistry) Update(ctx context.Context, actor model.Actor, id, expectedVersion int64, in CategoryInput) (model.Category, error) {
	if !actor.CanWrite {
		return model.Category{}, &PermissionError{Action: "update categories"}
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return model.Category{}, err
	}

	c, err := r.queries.UpdateCategory(ctx, store.UpdateCategoryParams{
		ID:              id,
		ExpectedVersion: expectedVersion,
		Slug:            in.Slug,
		Name:            in.Name,
		Position:        in.Position,
		Published:       in.Published,
		ShowInMenu:      in.ShowInMenu,
		ShowInHome:      in.ShowInHome,
		UpdatedAt:       r.now(),
	})
	switch {
	case errors.Is(err, store.ErrStaleVersion):
		return model.Category{}, staleVersion("category", id)
	case errors.Is(err, sql.ErrNoRows):
		return model.Category{}, notFound("category", id)
	case store.IsUniqueViolation(err):
		return model.Category{}, slugTaken(in.Slug)
	case err != nil:
		return model.Category{}, fmt.Errorf("updating category %d: %w", id, err)
	}

	r.invalidate(ctx)
	r.logger.Info("category updated", "id", id, "version", c.Version, "actor", actor.Subject)
	r.events.audit(ctx, model.EventCategoryCategory, "category updated", actor, map[string]any{"id": id, "slug": c.Slug})
	return c, nil
}

// Delete removes the category row only. Items that referenced it keep their
// slug and render with the fallback label.
func (r *CategoryRegistry) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.CanWrite {
		return &PermissionError{Action: "delete categories"}
	}
	c, err := r.queries.GetCategoryByID(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return notFound("category", id)
		}
		return fmt.Errorf("getting category %d: %w", id, err)
	}
	if err := r.queries.DeleteCategory(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return notFound("category", id)
		}
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	r.invalidate(ctx)

	orphans, err := r.queries.CountContentInCategory(ctx, c.Slug)
	if err != nil {
		r.logger.Warn("failed to count orphaned content", "slug", c.Slug, "error", err)
	}
	r.logger.Info("category deleted", "id", id, "slug", c.Slug, "orphaned_items", orphans, "actor", actor.Subject)
	r.events.audit(ctx, model.EventCategoryCategory, "category deleted", actor, map[string]any{
		"id": id, "slug": c.Slug, "orphaned_items": orphans,
	})
	return nil
}

func (r *CategoryRegistry) invalidate(ctx context.Context) {
	if err := r.cache.Rotate(ctx, cache.CategoriesKey()); err != nil {
		r.logger.Warn("failed to invalidate category cache", "error", err, "category", model.EventCategoryCache)
	}
}

func slugTaken(slug string) *ConflictError {
	return &ConflictError{Resource: "category", ID: slug, Message: fmt.Sprintf("category slug %q is already in use", slug)}
}
