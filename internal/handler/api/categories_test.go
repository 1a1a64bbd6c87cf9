// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"testing"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/service"
)

func TestCategories(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/admin/categories", editorToken, service.CategoryInput{
		Name: "Notícias", Published: true, ShowInMenu: true,
	})
	assertStatus(t, rr, http.StatusCreated)
	news := decodeData[model.Category](t, rr).Data
	if news.Slug != "noticias" {
		t.Errorf("slug = %q, want noticias", news.Slug)
	}

	rr = s.do(http.MethodPost, "/admin/categories", editorToken, service.CategoryInput{
		Name: "Cultura", Published: true, ShowInHome: true,
	})
	assertStatus(t, rr, http.StatusCreated)

	rr = s.do(http.MethodPost, "/admin/categories", editorToken, service.CategoryInput{Name: "Outra", Slug: "noticias"})
	assertStatus(t, rr, http.StatusConflict)

	tests := []struct {
		scope string
		want  int
	}{
		{"menu", 1},
		{"home", 1},
		{"all", 2},
		{"", 2},
	}
	for _, tt := range tests {
		rr = s.do(http.MethodGet, "/categories?scope="+tt.scope, "", nil)
		assertStatus(t, rr, http.StatusOK)
		if got := len(decodeData[[]model.Category](t, rr).Data); got != tt.want {
			t.Errorf("scope %q: %d categories, want %d", tt.scope, got, tt.want)
		}
	}
	assertStatus(t, s.do(http.MethodGet, "/categories?scope=footer", "", nil), http.StatusUnprocessableEntity)

	rr = s.do(http.MethodGet, "/categories/noticias", "", nil)
	assertStatus(t, rr, http.StatusOK)
	if got := decodeData[model.Category](t, rr).Data.Name; got != "Notícias" {
		t.Errorf("name = %q", got)
	}
	assertStatus(t, s.do(http.MethodGet, "/categories/missing", "", nil), http.StatusNotFound)

	rr = s.do(http.MethodPut, "/admin/categories/"+itoa(news.ID), editorToken,
		service.CategoryInput{Name: "Notícias da semana", Slug: "noticias", Published: true, ShowInMenu: true},
		"If-Match", `"1"`)
	assertStatus(t, rr, http.StatusOK)

	rr = s.do(http.MethodGet, "/categories/noticias", "", nil)
	assertStatus(t, rr, http.StatusOK)
	if got := decodeData[model.Category](t, rr).Data.Name; got != "Notícias da semana" {
		t.Errorf("name after update = %q", got)
	}
}

func TestDeleteCategoryKeepsContent(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/admin/categories", editorToken, service.CategoryInput{Name: "Eventos", Published: true})
	assertStatus(t, rr, http.StatusCreated)
	category := decodeData[model.Category](t, rr).Data

	item := s.createPublished(service.ContentInput{Kind: model.KindArticle, Title: "Agenda", CategorySlug: "eventos"})

	rr = s.do(http.MethodGet, "/articles/"+itoa(item.ID), "", nil)
	assertStatus(t, rr, http.StatusOK)
	if got := decodeData[ContentResponse](t, rr).Data.CategoryLabel; got != "Eventos" {
		t.Errorf("label = %q, want Eventos", got)
	}

	assertStatus(t, s.do(http.MethodDelete, "/admin/categories/"+itoa(category.ID), editorToken, nil), http.StatusNoContent)

	rr = s.do(http.MethodGet, "/articles/"+itoa(item.ID), "", nil)
	assertStatus(t, rr, http.StatusOK)
	got := decodeData[ContentResponse](t, rr).Data
	if got.CategorySlug != "eventos" {
		t.Errorf("category_slug = %q, want eventos", got.CategorySlug)
	}
	if got.CategoryLabel != model.FallbackCategoryLabel {
		t.Errorf("label = %q, want fallback", got.CategoryLabel)
	}

	assertStatus(t, s.do(http.MethodDelete, "/admin/categories/"+itoa(category.ID), editorToken, nil), http.StatusNotFound)
}
