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
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/store"
	"github.com/olegiv/portal-go/internal/util"
)

// ContentInput carries the editable fields of an article, event or
// announcement. Publication state is changed only through TogglePublished.
type ContentInput struct {
	Kind         model.Kind `json:"kind"`
	Title        string     `json:"title"`
	Excerpt      string     `json:"excerpt"`
	Body         string     `json:"body"`
	CategorySlug string     `json:"category_slug"`
	CoverURL     string     `json:"cover_url"`
	Featured     bool       `json:"featured"`
	Pinned       bool       `json:"pinned"`
	ExpiresAt    *time.Time `json:"expires_at"`
	StartsAt     *time.Time `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
	Location     string     `json:"location"`
}

func (in *ContentInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.CategorySlug = strings.TrimSpace(strings.ToLower(in.CategorySlug))
	in.CoverURL = strings.TrimSpace(in.CoverURL)
	in.Location = strings.TrimSpace(in.Location)
	if in.Kind == model.KindAnnouncement {
		in.CategorySlug = model.AnnouncementCategorySlug
	}
	if in.Kind != model.KindEvent {
		in.StartsAt, in.EndsAt, in.Location = nil, nil, ""
	}
}

func (in *ContentInput) validate() error {
	return fromValidation(validation.ValidateStruct(in,
		validation.Field(&in.Kind, validation.Required, validation.By(func(any) error {
			if !in.Kind.Valid() {
				return errors.New("must be article, event or announcement")
			}
			return nil
		})),
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&in.Excerpt, validation.Length(0, 1000)),
		validation.Field(&in.CategorySlug, validation.By(slugRule)),
		validation.Field(&in.CoverURL, is.URL),
		validation.Field(&in.StartsAt, validation.When(in.Kind == model.KindEvent, validation.Required.Error("is required for events"))),
		validation.Field(&in.EndsAt, validation.By(func(any) error {
			if in.EndsAt != nil && in.StartsAt != nil && in.EndsAt.Before(*in.StartsAt) {
				return errors.New("must not be before starts_at")
			}
			return nil
		})),
	))
}

func slugRule(value any) error {
	s, _ := value.(string)
	if s != "" && !util.IsValidSlug(s) {
		return errors.New("must contain only lowercase letters, digits and single hyphens")
	}
	return nil
}

// ContentService exposes content items to public readers through the
// publication gate and to editors for management.
type ContentService struct {
	queries  *store.Queries
	events   *EventService
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewContentService creates a ContentService. events and notifier may be nil.
func NewContentService(queries *store.Queries, events *EventService, notifier Notifier, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		queries:  queries,
		events:   events,
		notifier: notifierOrNop(notifier),
		logger:   logger,
		now:      time.Now,
	}
}

// ListPublished returns the visible items matching filter and the total
// number of visible matches.
func (s *ContentService) ListPublished(ctx context.Context, filter model.ContentFilter) ([]model.ContentItem, int64, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, 0, invalid("kind", "unknown content kind")
	}
	limit, offset, err := normalizePage(filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	filter.Limit, filter.Offset = limit, offset
	if filter.Order == "" {
		filter.Order = model.DefaultOrder(filter.Kind)
	}

	now := s.now()
	items, err := s.queries.ListPublishedContent(ctx, filter, now)
	if err != nil {
		return nil, 0, fmt.Errorf("listing published content: %w", err)
	}
	total, err := s.queries.CountPublishedContent(ctx, filter, now)
	if err != nil {
		return nil, 0, fmt.Errorf("counting published content: %w", err)
	}
	return items, total, nil
}

// GetPublished returns a visible item of the given kind. Hidden, expired and
// missing items are all reported as not found.
func (s *ContentService) GetPublished(ctx context.Context, kind model.Kind, id int64) (model.ContentItem, error) {
	item, err := s.queries.GetContentItem(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return model.ContentItem{}, notFound("content", id)
		}
		return model.ContentItem{}, fmt.Errorf("getting content %d: %w", id, err)
	}
	if (kind != "" && item.Kind != kind) || !IsVisible(&item, s.now()) {
		return model.ContentItem{}, notFound("content", id)
	}
	return item, nil
}

// Get returns any item, including drafts and expired ones.
func (s *ContentService) Get(ctx context.Context, actor model.Actor, id int64) (model.ContentItem, error) {
	if !actor.CanWrite {
		return model.ContentItem{}, &PermissionError{Action: "read drafts"}
	}
	item, err := s.queries.GetContentItem(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return model.ContentItem{}, notFound("content", id)
		}
		return model.ContentItem{}, fmt.Errorf("getting content %d: %w", id, err)
	}
	return item, nil
}

// List returns all items of a kind (or every kind), newest first.
func (s *ContentService) List(ctx context.Context, actor model.Actor, kind model.Kind, limit, offset int) ([]model.ContentItem, int64, error) {
	if !actor.CanWrite {
		return nil, 0, &PermissionError{Action: "list drafts"}
	}
	if kind != "" && !kind.Valid() {
		return nil, 0, invalid("kind", "unknown content kind")
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.queries.ListContentItems(ctx, store.ListContentItemsParams{Kind: kind, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, fmt.Errorf("listing content: %w", err)
	}
	total, err := s.queries.CountContentItems(ctx, kind)
	if err != nil {
		return nil, 0, fmt.Errorf("counting content: %w", err)
	}
	return items, total, nil
}

// Create stores a new draft.
func (s *ContentService) Create(ctx context.Context, actor model.Actor, in ContentInput) (model.ContentItem, error) {
	if !actor.CanWrite {
		return model.ContentItem{}, &PermissionError{Action: "create content"}
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return model.ContentItem{}, err
	}

	item, err := s.queries.CreateContentItem(ctx, store.CreateContentItemParams{
		Kind:         in.Kind,
		Title:        in.Title,
		Excerpt:      in.Excerpt,
		Body:         in.Body,
		CategorySlug: in.CategorySlug,
		CoverURL:     in.CoverURL,
		Featured:     in.Featured,
		Pinned:       in.Pinned,
		ExpiresAt:    in.ExpiresAt,
		StartsAt:     in.StartsAt,
		EndsAt:       in.EndsAt,
		Location:     in.Location,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return model.ContentItem{}, fmt.Errorf("creating content: %w", err)
	}

	s.logger.Info("content created", "id", item.ID, "kind", item.Kind, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryContent, "content created", actor, map[string]any{"id": item.ID, "kind": item.Kind})
	return item, nil
}

// Update edits an item if expectedVersion matches the stored version. The
// kind of an item cannot change.
func (s *ContentService) Update(ctx context.Context, actor model.Actor, id, expectedVersion int64, in ContentInput) (model.ContentItem, error) {
	if !actor.CanWrite {
		return model.ContentItem{}, &PermissionError{Action: "update content"}
	}
	current, err := s.queries.GetContentItem(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return model.ContentItem{}, notFound("content", id)
		}
		return model.ContentItem{}, fmt.Errorf("getting content %d: %w", id, err)
	}
	if in.Kind == "" {
		in.Kind = current.Kind
	}
	if in.Kind != current.Kind {
		return model.ContentItem{}, invalid("kind", "cannot be changed")
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return model.ContentItem{}, err
	}

	item, err := s.queries.UpdateContentItem(ctx, store.UpdateContentItemParams{
		ID:              id,
		ExpectedVersion: expectedVersion,
		Title:           in.Title,
		Excerpt:         in.Excerpt,
		Body:            in.Body,
		CategorySlug:    in.CategorySlug,
		CoverURL:        in.CoverURL,
		Featured:        in.Featured,
		Pinned:          in.Pinned,
		ExpiresAt:       in.ExpiresAt,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		Location:        in.Location,
		UpdatedAt:       s.now(),
	})
	switch {
	case errors.Is(err, store.ErrStaleVersion):
		return model.ContentItem{}, staleVersion("content", id)
	case errors.Is(err, sql.ErrNoRows):
		return model.ContentItem{}, notFound("content", id)
	case err != nil:
		return model.ContentItem{}, fmt.Errorf("updating content %d: %w", id, err)
	}

	s.logger.Info("content updated", "id", id, "version", item.Version, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryContent, "content updated", actor, map[string]any{"id": id, "version": item.Version})
	return item, nil
}

// TogglePublished flips an item between draft and published.
func (s *ContentService) TogglePublished(ctx context.Context, actor model.Actor, id int64) (model.ContentItem, error) {
	if !actor.CanWrite {
		return model.ContentItem{}, &PermissionError{Action: "publish content"}
	}
	item, err := s.queries.ToggleContentPublished(ctx, id, s.now())
	if err != nil {
		if store.IsNotFound(err) {
			return model.ContentItem{}, notFound("content", id)
		}
		return model.ContentItem{}, fmt.Errorf("toggling content %d: %w", id, err)
	}

	event, message := model.EventContentUnpublished, "content unpublished"
	if item.Published {
		event, message = model.EventContentPublished, "content published"
	}
	s.logger.Info(message, "id", id, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryContent, message, actor, map[string]any{"id": id})
	notify(ctx, s.notifier, s.logger, event, contentEventData(item))
	return item, nil
}

// Delete removes an item permanently.
func (s *ContentService) Delete(ctx context.Context, actor model.Actor, id int64) error {
	if !actor.CanWrite {
		return &PermissionError{Action: "delete content"}
	}
	item, err := s.queries.GetContentItem(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return notFound("content", id)
		}
		return fmt.Errorf("getting content %d: %w", id, err)
	}
	if err := s.queries.DeleteContentItem(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return notFound("content", id)
		}
		return fmt.Errorf("deleting content %d: %w", id, err)
	}

	s.logger.Info("content deleted", "id", id, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryContent, "content deleted", actor, map[string]any{"id": id})
	notify(ctx, s.notifier, s.logger, model.EventContentDeleted, contentEventData(item))
	return nil
}

func contentEventData(item model.ContentItem) map[string]any {
	return map[string]any{
		"id":        item.ID,
		"kind":      item.Kind,
		"title":     item.Title,
		"category":  item.CategorySlug,
		"published": item.Published,
	}
}
