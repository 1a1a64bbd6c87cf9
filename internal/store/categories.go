// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

const categoryColumns = `id, slug, name, position, published, show_in_menu, show_in_home,
	version, created_at, updated_at`

func scanCategory(row rowScanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &c.Position, &c.Published, &c.ShowInMenu, &c.ShowInHome,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, err
}

// CreateCategoryParams holds the fields of a new category.
type CreateCategoryParams struct {
	Slug       string
	Name       string
	Position   int
	Published  bool
	ShowInMenu bool
	ShowInHome bool
	CreatedAt  time.Time
}

// CreateCategory inserts a category. Duplicate slugs fail with a unique
// violation, see IsUniqueViolation.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (model.Category, error) {
	now := arg.CreatedAt.UTC()
	var id int64
	err := q.queryRow(ctx, `INSERT INTO categories (
		slug, name, position, published, show_in_menu, show_in_home, version, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
	RETURNING id`,
		arg.Slug, arg.Name, arg.Position, arg.Published, arg.ShowInMenu, arg.ShowInHome, now, now,
	).Scan(&id)
	if err != nil {
		return model.Category{}, err
	}
	return q.GetCategoryByID(ctx, id)
}

// GetCategoryByID returns a category by its primary key.
func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (model.Category, error) {
	return scanCategory(q.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
}

// GetCategoryBySlug returns a category by slug, published or not.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error) {
	return scanCategory(q.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug))
}

// ListCategories returns every category ordered by position then name.
func (q *Queries) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY position ASC, name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategoryParams holds the editable fields of a category.
type UpdateCategoryParams struct {
	ID              int64
	ExpectedVersion int64
	Slug            string
	Name            string
	Position        int
	Published       bool
	ShowInMenu      bool
	ShowInHome      bool
	UpdatedAt       time.Time
}

// UpdateCategory applies an edit if the stored version still matches.
func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (model.Category, error) {
	var id int64
	err := q.queryRow(ctx, `UPDATE categories SET
		slug = ?, name = ?, position = ?, published = ?, show_in_menu = ?, show_in_home = ?,
		version = version + 1, updated_at = ?
	WHERE id = ? AND version = ?
	RETURNING id`,
		arg.Slug, arg.Name, arg.Position, arg.Published, arg.ShowInMenu, arg.ShowInHome,
		arg.UpdatedAt.UTC(), arg.ID, arg.ExpectedVersion,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, q.missingOrStale(ctx, "categories", "id", arg.ID)
	}
	if err != nil {
		return model.Category{}, err
	}
	return q.GetCategoryByID(ctx, id)
}

// DeleteCategory removes the category row only. Content items keep their
// slug reference.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
