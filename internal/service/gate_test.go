// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/portal-go/internal/model"
)

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name      string
		published bool
		expiresAt *time.Time
		want      bool
	}{
		{"draft", false, nil, false},
		{"published", true, nil, true},
		{"published future expiry", true, timeAt(time.Hour), true},
		{"published expired", true, timeAt(-time.Hour), false},
		{"published expiring now", true, timeAt(0), false},
		{"draft future expiry", false, timeAt(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &model.ContentItem{Published: tt.published, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, IsVisible(item, testNow))
		})
	}
}

func TestNormalizePage(t *testing.T) {
	limit, offset, err := normalizePage(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, limit)
	assert.Equal(t, 0, offset)

	limit, _, err = normalizePage(500, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, limit)

	_, _, err = normalizePage(-1, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = normalizePage(10, -5)
	assert.ErrorIs(t, err, ErrValidation)
}

// Every combination of published, featured, pinned and expiry is created;
// no listing may ever contain a hidden item.
func TestGateInvariant(t *testing.T) {
	ctx := context.Background()
	q := testQueries(t)
	s := newContentService(t, q, nil)

	expiries := []*time.Time{nil, timeAt(24 * time.Hour), timeAt(-24 * time.Hour)}
	hidden := map[int64]bool{}
	for _, kind := range []model.Kind{model.KindArticle, model.KindEvent, model.KindAnnouncement} {
		for _, published := range []bool{false, true} {
			for _, featured := range []bool{false, true} {
				for _, pinned := range []bool{false, true} {
					for _, exp := range expiries {
						in := ContentInput{
							Kind: kind, Title: "item", Featured: featured, Pinned: pinned,
							CategorySlug: "noticias", ExpiresAt: exp,
						}
						if kind == model.KindEvent {
							in.StartsAt = timeAt(48 * time.Hour)
						}
						item, err := s.Create(ctx, editor, in)
						require.NoError(t, err)
						if published {
							item, err = s.TogglePublished(ctx, editor, item.ID)
							require.NoError(t, err)
						}
						hidden[item.ID] = !IsVisible(&item, testNow)
					}
				}
			}
		}
	}

	filters := []model.ContentFilter{
		{},
		{Kind: model.KindArticle},
		{Kind: model.KindEvent, UpcomingOnly: true},
		{Kind: model.KindAnnouncement},
		{FeaturedOnly: true},
		{CategorySlug: "noticias"},
		{CategorySlug: model.AnnouncementCategorySlug},
		{Kind: model.KindArticle, Order: model.OrderStartAsc},
		{Kind: model.KindEvent, Order: model.OrderNewest, FeaturedOnly: true},
	}
	for _, f := range filters {
		f.Limit = MaxListLimit
		items, total, err := s.ListPublished(ctx, f)
		require.NoError(t, err)
		assert.EqualValues(t, len(items), total, "filter %+v", f)
		for _, it := range items {
			assert.False(t, hidden[it.ID], "hidden item %d listed for filter %+v", it.ID, f)
			assert.True(t, it.Published)
		}
	}

	for id, isHidden := range hidden {
		_, err := s.GetPublished(ctx, "", id)
		if isHidden {
			assert.ErrorIs(t, err, ErrNotFound, "item %d", id)
		} else {
			assert.NoError(t, err, "item %d", id)
		}
	}
}
