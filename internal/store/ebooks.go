// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

const ebookColumns = `id, title, description, price_cents, currency, published, featured,
	cover_url, pdf_ref, payment_links, version, created_at, updated_at`

func scanEbook(row rowScanner) (model.Ebook, error) {
	var (
		e     model.Ebook
		links string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.PriceCents, &e.Currency, &e.Published, &e.Featured,
		&e.CoverURL, &e.PDFRef, &links, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return model.Ebook{}, err
	}
	if links != "" && links != "[]" {
		if err := json.Unmarshal([]byte(links), &e.PaymentLinks); err != nil {
			return model.Ebook{}, fmt.Errorf("decoding payment links of ebook %s: %w", e.ID, err)
		}
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func paymentLinksJSON(links []model.PaymentLink) (string, error) {
	if len(links) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("encoding payment links: %w", err)
	}
	return string(data), nil
}

// CreateEbookParams holds the fields of a new ebook. Ebooks start unpublished.
type CreateEbookParams struct {
	ID           string
	Title        string
	Description  string
	PriceCents   int64
	Currency     string
	Featured     bool
	CoverURL     string
	PDFRef       string
	PaymentLinks []model.PaymentLink
	CreatedAt    time.Time
}

// CreateEbook inserts an unpublished ebook.
func (q *Queries) CreateEbook(ctx context.Context, arg CreateEbookParams) (model.Ebook, error) {
	links, err := paymentLinksJSON(arg.PaymentLinks)
	if err != nil {
		return model.Ebook{}, err
	}
	now := arg.CreatedAt.UTC()
	_, err = q.exec(ctx, `INSERT INTO ebooks (
		id, title, description, price_cents, currency, published, featured,
		cover_url, pdf_ref, payment_links, version, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, FALSE, ?, ?, ?, ?, 1, ?, ?)`,
		arg.ID, arg.Title, arg.Description, arg.PriceCents, arg.Currency, arg.Featured,
		arg.CoverURL, arg.PDFRef, links, now, now,
	)
	if err != nil {
		return model.Ebook{}, err
	}
	return q.GetEbook(ctx, arg.ID)
}

// GetEbook returns an ebook regardless of its publication state.
func (q *Queries) GetEbook(ctx context.Context, id string) (model.Ebook, error) {
	return scanEbook(q.queryRow(ctx, `SELECT `+ebookColumns+` FROM ebooks WHERE id = ?`, id))
}

// ListEbooksParams filters ebook listings.
type ListEbooksParams struct {
	PublishedOnly bool
	FeaturedOnly  bool
	Limit         int
	Offset        int
}

func ebooksWhere(arg ListEbooksParams) string {
	switch {
	case arg.PublishedOnly && arg.FeaturedOnly:
		return ` WHERE published AND featured`
	case arg.PublishedOnly:
		return ` WHERE published`
	case arg.FeaturedOnly:
		return ` WHERE featured`
	}
	return ""
}

// ListEbooks returns ebooks, featured first then newest.
func (q *Queries) ListEbooks(ctx context.Context, arg ListEbooksParams) ([]model.Ebook, error) {
	rows, err := q.query(ctx, `SELECT `+ebookColumns+` FROM ebooks`+ebooksWhere(arg)+
		` ORDER BY featured DESC, created_at DESC, id ASC LIMIT ? OFFSET ?`, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing ebooks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ebooks := []model.Ebook{}
	for rows.Next() {
		e, err := scanEbook(rows)
		if err != nil {
			return nil, err
		}
		ebooks = append(ebooks, e)
	}
	return ebooks, rows.Err()
}

// CountEbooks counts the ebooks ListEbooks would page over.
func (q *Queries) CountEbooks(ctx context.Context, arg ListEbooksParams) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM ebooks`+ebooksWhere(arg)).Scan(&n)
	return n, err
}

// UpdateEbookParams holds the editable fields of an ebook.
type UpdateEbookParams struct {
	ID              string
	ExpectedVersion int64
	Title           string
	Description     string
	PriceCents      int64
	Currency        string
	Featured        bool
	CoverURL        string
	PDFRef          string
	PaymentLinks    []model.PaymentLink
	UpdatedAt       time.Time
}

// UpdateEbook applies an edit if the stored version still matches.
func (q *Queries) UpdateEbook(ctx context.Context, arg UpdateEbookParams) (model.Ebook, error) {
	links, err := paymentLinksJSON(arg.PaymentLinks)
	if err != nil {
		return model.Ebook{}, err
	}
	var id string
	err = q.queryRow(ctx, `UPDATE ebooks SET
		title = ?, description = ?, price_cents = ?, currency = ?, featured = ?,
		cover_url = ?, pdf_ref = ?, payment_links = ?, version = version + 1, updated_at = ?
	WHERE id = ? AND version = ?
	RETURNING id`,
		arg.Title, arg.Description, arg.PriceCents, arg.Currency, arg.Featured,
		arg.CoverURL, arg.PDFRef, links, arg.UpdatedAt.UTC(), arg.ID, arg.ExpectedVersion,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ebook{}, q.missingOrStale(ctx, "ebooks", "id", arg.ID)
	}
	if err != nil {
		return model.Ebook{}, err
	}
	return q.GetEbook(ctx, id)
}

// ToggleEbookPublished flips the published flag atomically.
func (q *Queries) ToggleEbookPublished(ctx context.Context, id string, now time.Time) (model.Ebook, error) {
	res, err := q.exec(ctx, `UPDATE ebooks SET
		published = NOT published, version = version + 1, updated_at = ?
	WHERE id = ?`, now.UTC(), id)
	if err != nil {
		return model.Ebook{}, err
	}
	if err := requireAffected(res); err != nil {
		return model.Ebook{}, err
	}
	return q.GetEbook(ctx, id)
}

// DeleteEbook removes an ebook. It returns sql.ErrNoRows when absent.
func (q *Queries) DeleteEbook(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM ebooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
