// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

const contentColumns = `id, kind, title, excerpt, body, category_slug, cover_url,
	published, featured, pinned, view_count, version,
	expires_at, starts_at, ends_at, location, created_at, updated_at`

func scanContentItem(row rowScanner) (model.ContentItem, error) {
	var (
		item                       model.ContentItem
		kind                       string
		expiresAt, startsAt, endAt sql.NullTime
	)
	err := row.Scan(
		&item.ID, &kind, &item.Title, &item.Excerpt, &item.Body, &item.CategorySlug, &item.CoverURL,
		&item.Published, &item.Featured, &item.Pinned, &item.ViewCount, &item.Version,
		&expiresAt, &startsAt, &endAt, &item.Location, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return model.ContentItem{}, err
	}
	item.Kind = model.Kind(kind)
	item.ExpiresAt = timePtr(expiresAt)
	item.StartsAt = timePtr(startsAt)
	item.EndsAt = timePtr(endAt)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}

func collectContentItems(rows *sql.Rows) ([]model.ContentItem, error) {
	defer func() { _ = rows.Close() }()

	items := []model.ContentItem{}
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateContentItemParams holds the fields of a new content item.
// New items are always stored as drafts.
type CreateContentItemParams struct {
	Kind         model.Kind
	Title        string
	Excerpt      string
	Body         string
	CategorySlug string
	CoverURL     string
	Featured     bool
	Pinned       bool
	ExpiresAt    *time.Time
	StartsAt     *time.Time
	EndsAt       *time.Time
	Location     string
	CreatedAt    time.Time
}

// CreateContentItem inserts a draft content item.
func (q *Queries) CreateContentItem(ctx context.Context, arg CreateContentItemParams) (model.ContentItem, error) {
	now := arg.CreatedAt.UTC()
	row := q.queryRow(ctx, `INSERT INTO content_items (
		kind, title, excerpt, body, category_slug, cover_url,
		published, featured, pinned, view_count, version,
		expires_at, starts_at, ends_at, location, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, FALSE, ?, ?, 0, 1, ?, ?, ?, ?, ?, ?)
	RETURNING id`,
		string(arg.Kind), arg.Title, arg.Excerpt, arg.Body, arg.CategorySlug, arg.CoverURL,
		arg.Featured, arg.Pinned,
		nullTime(arg.ExpiresAt), nullTime(arg.StartsAt), nullTime(arg.EndsAt), arg.Location, now, now,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return model.ContentItem{}, err
	}
	return q.GetContentItem(ctx, id)
}

// GetContentItem returns a content item regardless of its visibility.
func (q *Queries) GetContentItem(ctx context.Context, id int64) (model.ContentItem, error) {
	row := q.queryRow(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id = ?`, id)
	return scanContentItem(row)
}

// publishedWhere builds the visibility predicate plus the filter clauses.
func publishedWhere(filter model.ContentFilter, now time.Time) (string, []any) {
	now = now.UTC()
	clauses := []string{"published", "(expires_at IS NULL OR expires_at > ?)"}
	args := []any{now}

	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.CategorySlug != "" {
		clauses = append(clauses, "category_slug = ?")
		args = append(args, filter.CategorySlug)
	}
	if filter.FeaturedOnly {
		clauses = append(clauses, "featured")
	}
	if filter.UpcomingOnly {
		clauses = append(clauses, "(starts_at >= ? OR ends_at >= ?)")
		args = append(args, now, now)
	}
	return strings.Join(clauses, " AND "), args
}

func orderClause(order model.ContentOrder) string {
	if order == model.OrderStartAsc {
		return "pinned DESC, starts_at IS NULL, starts_at ASC, id ASC"
	}
	return "pinned DESC, created_at DESC, id ASC"
}

// ListPublishedContent returns the items a public reader may see at now.
func (q *Queries) ListPublishedContent(ctx context.Context, filter model.ContentFilter, now time.Time) ([]model.ContentItem, error) {
	where, args := publishedWhere(filter, now)
	order := filter.Order
	if order == "" {
		order = model.DefaultOrder(filter.Kind)
	}

	query := `SELECT ` + contentColumns + ` FROM content_items WHERE ` + where +
		` ORDER BY ` + orderClause(order) + ` LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing published content: %w", err)
	}
	return collectContentItems(rows)
}

// CountPublishedContent counts the items ListPublishedContent would page over.
func (q *Queries) CountPublishedContent(ctx context.Context, filter model.ContentFilter, now time.Time) (int64, error) {
	where, args := publishedWhere(filter, now)
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM content_items WHERE `+where, args...).Scan(&n)
	return n, err
}

// ListContentItemsParams filters the admin listing.
type ListContentItemsParams struct {
	Kind   model.Kind
	Limit  int
	Offset int
}

// ListContentItems returns drafts and published items, newest first.
func (q *Queries) ListContentItems(ctx context.Context, arg ListContentItemsParams) ([]model.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items`
	var args []any
	if arg.Kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(arg.Kind))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	return collectContentItems(rows)
}

// CountContentItems counts items of a kind, or all items when kind is empty.
func (q *Queries) CountContentItems(ctx context.Context, kind model.Kind) (int64, error) {
	query := `SELECT COUNT(*) FROM content_items`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	var n int64
	err := q.queryRow(ctx, query, args...).Scan(&n)
	return n, err
}

// UpdateContentItemParams holds the editable fields of a content item.
// Publication state and the view count are not editable here.
type UpdateContentItemParams struct {
	ID              int64
	ExpectedVersion int64
	Title           string
	Excerpt         string
	Body            string
	CategorySlug    string
	CoverURL        string
	Featured        bool
	Pinned          bool
	ExpiresAt       *time.Time
	StartsAt        *time.Time
	EndsAt          *time.Time
	Location        string
	UpdatedAt       time.Time
}

// UpdateContentItem applies an edit if the stored version still matches.
// It returns sql.ErrNoRows for a missing item and ErrStaleVersion when the
// version moved on.
func (q *Queries) UpdateContentItem(ctx context.Context, arg UpdateContentItemParams) (model.ContentItem, error) {
	row := q.queryRow(ctx, `UPDATE content_items SET
		title = ?, excerpt = ?, body = ?, category_slug = ?, cover_url = ?,
		featured = ?, pinned = ?, expires_at = ?, starts_at = ?, ends_at = ?, location = ?,
		version = version + 1, updated_at = ?
	WHERE id = ? AND version = ?
	RETURNING id`,
		arg.Title, arg.Excerpt, arg.Body, arg.CategorySlug, arg.CoverURL,
		arg.Featured, arg.Pinned, nullTime(arg.ExpiresAt), nullTime(arg.StartsAt), nullTime(arg.EndsAt), arg.Location,
		arg.UpdatedAt.UTC(), arg.ID, arg.ExpectedVersion,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ContentItem{}, q.missingOrStale(ctx, "content_items", "id", arg.ID)
		}
		return model.ContentItem{}, err
	}
	return q.GetContentItem(ctx, id)
}

// ToggleContentPublished flips the published flag atomically.
func (q *Queries) ToggleContentPublished(ctx context.Context, id int64, now time.Time) (model.ContentItem, error) {
	row := q.queryRow(ctx, `UPDATE content_items SET
		published = NOT published, version = version + 1, updated_at = ?
	WHERE id = ?
	RETURNING id`, now.UTC(), id)
	if err := row.Scan(&id); err != nil {
		return model.ContentItem{}, err
	}
	return q.GetContentItem(ctx, id)
}

// DeleteContentItem removes an item. It returns sql.ErrNoRows when absent.
func (q *Queries) DeleteContentItem(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, `DELETE FROM content_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// IncrementViewCount adds one to the view counter in a single statement.
// It returns sql.ErrNoRows when the item does not exist.
func (q *Queries) IncrementViewCount(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, `UPDATE content_items SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// IncrementVisibleViewCount is IncrementViewCount limited to items a public
// reader can see at now. Drafts and expired items report not found.
func (q *Queries) IncrementVisibleViewCount(ctx context.Context, id int64, now time.Time) error {
	res, err := q.exec(ctx, `UPDATE content_items SET view_count = view_count + 1
	WHERE id = ? AND published AND (expires_at IS NULL OR expires_at > ?)`, id, now.UTC())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CountContentInCategory counts items referencing a category slug.
func (q *Queries) CountContentInCategory(ctx context.Context, slug string) (int64, error) {
	var n int64
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM content_items WHERE category_slug = ?`, slug).Scan(&n)
	return n, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// missingOrStale explains why a versioned write matched no row.
func (q *Queries) missingOrStale(ctx context.Context, table, column string, key any) error {
	ok, err := q.exists(ctx, table, column, key)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	return ErrStaleVersion
}
