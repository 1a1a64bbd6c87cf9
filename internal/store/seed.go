// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

// defaultCategories are created on first start.
var defaultCategories = []CreateCategoryParams{
	{Slug: "noticias", Name: "Notícias", Position: 1, Published: true, ShowInMenu: true, ShowInHome: true},
	{Slug: "eventos", Name: "Eventos", Position: 2, Published: true, ShowInMenu: true, ShowInHome: true},
	{Slug: model.AnnouncementCategorySlug, Name: "Avisos", Position: 3, Published: true, ShowInMenu: true},
}

// Seed creates the categories every portal needs. Existing rows are left
// untouched.
func Seed(ctx context.Context, q *Queries) error {
	now := time.Now()
	created := 0
	for _, c := range defaultCategories {
		_, err := q.GetCategoryBySlug(ctx, c.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking category %s: %w", c.Slug, err)
		}

		c.CreatedAt = now
		if _, err := q.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("creating category %s: %w", c.Slug, err)
		}
		created++
	}

	if created > 0 {
		slog.Info("seeded default categories", "count", created)
	}
	return nil
}
