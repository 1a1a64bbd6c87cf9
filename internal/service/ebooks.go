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
	"github.com/google/uuid"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/store"
)

// EbookInput carries the editable fields of an ebook. Price, when set, is a
// decimal string that overrides PriceCents.
type EbookInput struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	PriceCents   int64               `json:"price_cents"`
	Price        string              `json:"price"`
	Currency     string              `json:"currency"`
	Featured     bool                `json:"featured"`
	CoverURL     string              `json:"cover_url"`
	PDFRef       string              `json:"pdf_ref"`
	PaymentLinks []model.PaymentLink `json:"payment_links"`
}

func (in *EbookInput) normalize(defaultCurrency string) error {
	in.ID = strings.ToLower(strings.TrimSpace(in.ID))
	in.Title = strings.TrimSpace(in.Title)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.PDFRef = strings.TrimSpace(in.PDFRef)
	in.CoverURL = strings.TrimSpace(in.CoverURL)
	if in.Currency == "" {
		in.Currency = defaultCurrency
	}
	if in.Price != "" {
		cents, err := model.ParsePrice(in.Price)
		if err != nil {
			return invalid("price", "must be a decimal amount with at most two decimal places")
		}
		in.PriceCents = cents
	}
	return nil
}

func (in *EbookInput) validate() error {
	return fromValidation(validation.ValidateStruct(in,
		validation.Field(&in.ID, validation.Length(1, 100), validation.By(slugRule)),
		validation.Field(&in.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&in.PriceCents, validation.Min(int64(0))),
		validation.Field(&in.Currency, validation.Required, validation.Length(3, 3), is.UpperCase),
		validation.Field(&in.CoverURL, is.URL),
		validation.Field(&in.PaymentLinks, validation.Each(validation.By(func(v any) error {
			link, _ := v.(model.PaymentLink)
			return validation.ValidateStruct(&link,
				validation.Field(&link.Label, validation.Required),
				validation.Field(&link.URL, validation.Required, is.URL),
			)
		}))),
	))
}

// EbookService manages the ebook catalog.
type EbookService struct {
	queries         *store.Queries
	defaultCurrency string
	events          *EventService
	notifier        Notifier
	logger          *slog.Logger
	now             func() time.Time
}

// NewEbookService creates an EbookService. events and notifier may be nil.
func NewEbookService(queries *store.Queries, defaultCurrency string, events *EventService, notifier Notifier, logger *slog.Logger) *EbookService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultCurrency == "" {
		defaultCurrency = model.DefaultCurrency
	}
	return &EbookService{
		queries:         queries,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		events:          events,
		notifier:        notifierOrNop(notifier),
		logger:          logger,
		now:             time.Now,
	}
}

// ListPublished returns published ebooks, featured first.
func (s *EbookService) ListPublished(ctx context.Context, featuredOnly bool, limit, offset int) ([]model.Ebook, int64, error) {
	return s.list(ctx, store.ListEbooksParams{PublishedOnly: true, FeaturedOnly: featuredOnly}, limit, offset)
}

// GetPublished returns a published ebook. Unpublished ebooks are not found.
func (s *EbookService) GetPublished(ctx context.Context, id string) (model.Ebook, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return model.Ebook{}, err
	}
	if !e.Published {
		return model.Ebook{}, notFound("ebook", id)
	}
	return e, nil
}

// Get returns any ebook.
func (s *EbookService) Get(ctx context.Context, actor model.Actor, id string) (model.Ebook, error) {
	if !actor.CanWrite {
		return model.Ebook{}, &PermissionError{Action: "read unpublished ebooks"}
	}
	return s.get(ctx, id)
}

// List returns every ebook.
func (s *EbookService) List(ctx context.Context, actor model.Actor, limit, offset int) ([]model.Ebook, int64, error) {
	if !actor.CanWrite {
		return nil, 0, &PermissionError{Action: "list ebooks"}
	}
	return s.list(ctx, store.ListEbooksParams{}, limit, offset)
}

func (s *EbookService) list(ctx context.Context, arg store.ListEbooksParams, limit, offset int) ([]model.Ebook, int64, error) {
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	arg.Limit, arg.Offset = limit, offset
	ebooks, err := s.queries.ListEbooks(ctx, arg)
	if err != nil {
		return nil, 0, fmt.Errorf("listing ebooks: %w", err)
	}
	total, err := s.queries.CountEbooks(ctx, arg)
	if err != nil {
		return nil, 0, fmt.Errorf("counting ebooks: %w", err)
	}
	return ebooks, total, nil
}

func (s *EbookService) get(ctx context.Context, id string) (model.Ebook, error) {
	if strings.TrimSpace(id) == "" {
		return model.Ebook{}, invalid("id", "is required")
	}
	e, err := s.queries.GetEbook(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return model.Ebook{}, notFound("ebook", id)
		}
		return model.Ebook{}, fmt.Errorf("getting ebook %s: %w", id, err)
	}
	return e, nil
}

// Create adds an unpublished ebook. A missing id is generated.
func (s *EbookService) Create(ctx context.Context, actor model.Actor, in EbookInput) (model.Ebook, error) {
	if !actor.CanWrite {
		return model.Ebook{}, &PermissionError{Action: "create ebooks"}
	}
	if err := in.normalize(s.defaultCurrency); err != nil {
		return model.Ebook{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if err := in.validate(); err != nil {
		return model.Ebook{}, err
	}

	e, err := s.queries.CreateEbook(ctx, store.CreateEbookParams{
		ID:           in.ID,
		Title:        in.Title,
		Description:  in.Description,
		PriceCents:   in.PriceCents,
		Currency:     in.Currency,
		Featured:     in.Featured,
		CoverURL:     in.CoverURL,
		PDFRef:       in.PDFRef,
		PaymentLinks: in.PaymentLinks,
		CreatedAt:    s.now(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Ebook{}, &ConflictError{Resource: "ebook", ID: in.ID, Message: fmt.Sprintf("ebook %q already exists", in.ID)}
		}
		return model.Ebook{}, fmt.Errorf("creating ebook: %w", err)
	}

	s.logger.Info("ebook created", "id", e.ID, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryCommerce, "ebook created", actor, map[string]any{"id": e.ID})
	return e, nil
}

// Update edits an ebook if expectedVersion matches. The id is immutable.
func (s *EbookService) Update(ctx context.Context, actor model.Actor, id string, expectedVersion int64, in EbookInput) (model.Ebook, error) {
	if !actor.CanWrite {
		return model.Ebook{}, &PermissionError{Action: "update ebooks"}
	}
	if err := in.normalize(s.defaultCurrency); err != nil {
		return model.Ebook{}, err
	}
	if in.ID != "" && in.ID != id {
		return model.Ebook{}, invalid("id", "cannot be changed")
	}
	in.ID = ""
	if err := in.validate(); err != nil {
		return model.Ebook{}, err
	}

	e, err := s.queries.UpdateEbook(ctx, store.UpdateEbookParams{
		ID:              id,
		ExpectedVersion: expectedVersion,
		Title:           in.Title,
		Description:     in.Description,
		PriceCents:      in.PriceCents,
		Currency:        in.Currency,
		Featured:        in.Featured,
		CoverURL:        in.CoverURL,
		PDFRef:          in.PDFRef,
		PaymentLinks:    in.PaymentLinks,
		UpdatedAt:       s.now(),
	})
	switch {
	case errors.Is(err, store.ErrStaleVersion):
		return model.Ebook{}, staleVersion("ebook", id)
	case errors.Is(err, sql.ErrNoRows):
		return model.Ebook{}, notFound("ebook", id)
	case err != nil:
		return model.Ebook{}, fmt.Errorf("updating ebook %s: %w", id, err)
	}

	s.logger.Info("ebook updated", "id", id, "version", e.Version, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryCommerce, "ebook updated", actor, map[string]any{"id": id, "version": e.Version})
	return e, nil
}

// TogglePublished flips an ebook between hidden and published.
func (s *EbookService) TogglePublished(ctx context.Context, actor model.Actor, id string) (model.Ebook, error) {
	if !actor.CanWrite {
		return model.Ebook{}, &PermissionError{Action: "publish ebooks"}
	}
	e, err := s.queries.ToggleEbookPublished(ctx, id, s.now())
	if err != nil {
		if store.IsNotFound(err) {
			return model.Ebook{}, notFound("ebook", id)
		}
		return model.Ebook{}, fmt.Errorf("toggling ebook %s: %w", id, err)
	}

	s.logger.Info("ebook publication toggled", "id", id, "published", e.Published, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryCommerce, "ebook publication toggled", actor, map[string]any{"id": id, "published": e.Published})
	if e.Published {
		notify(ctx, s.notifier, s.logger, model.EventEbookPublished, map[string]any{
			"id": e.ID, "title": e.Title, "price_cents": e.PriceCents, "currency": e.Currency,
		})
	}
	return e, nil
}

// Delete removes an ebook. Sessions already paid for it keep verifying as
// paid but no longer deliver a file.
func (s *EbookService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.CanWrite {
		return &PermissionError{Action: "delete ebooks"}
	}
	if err := s.queries.DeleteEbook(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return notFound("ebook", id)
		}
		return fmt.Errorf("deleting ebook %s: %w", id, err)
	}
	s.logger.Info("ebook deleted", "id", id, "actor", actor.Subject)
	s.events.audit(ctx, model.EventCategoryCommerce, "ebook deleted", actor, map[string]any{"id": id})
	return nil
}
