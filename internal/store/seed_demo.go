// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

// DemoEbookID is the id of the ebook created by SeedDemo.
const DemoEbookID = "guia-do-voluntario"

// SeedDemo creates sample content for showcasing the portal. It does nothing
// when content already exists.
func SeedDemo(ctx context.Context, q *Queries) error {
	count, err := q.CountContentItems(ctx, "")
	if err != nil {
		return fmt.Errorf("counting content: %w", err)
	}
	if count > 0 {
		slog.Info("content already exists, skipping demo content")
		return nil
	}

	slog.Info("seeding demo content")

	if err := seedDemoContent(ctx, q); err != nil {
		return fmt.Errorf("seeding demo content: %w", err)
	}
	if err := seedDemoPages(ctx, q); err != nil {
		return fmt.Errorf("seeding demo pages: %w", err)
	}
	if err := seedDemoEbook(ctx, q); err != nil {
		return fmt.Errorf("seeding demo ebook: %w", err)
	}

	slog.Info("demo content seeded successfully")
	return nil
}

type demoItem struct {
	params  CreateContentItemParams
	publish bool
}

func demoItems(now time.Time) []demoItem {
	start := now.Add(14 * 24 * time.Hour).Truncate(time.Hour)
	end := start.Add(3 * time.Hour)
	expires := now.Add(30 * 24 * time.Hour).Truncate(time.Hour)

	return []demoItem{
		{publish: true, params: CreateContentItemParams{
			Kind:         model.KindArticle,
			Title:        "Portal no ar",
			Excerpt:      "Conheça o novo portal da instituição.",
			Body:         "## Bem-vindo\n\nEste é o **novo portal** com notícias, eventos e avisos.",
			CategorySlug: "noticias",
			Featured:     true,
			Pinned:       true,
		}},
		{publish: true, params: CreateContentItemParams{
			Kind:         model.KindArticle,
			Title:        "Relatório anual publicado",
			Excerpt:      "O relatório de atividades está disponível.",
			Body:         "Leia o relatório completo na seção de transparência.",
			CategorySlug: "noticias",
		}},
		{publish: false, params: CreateContentItemParams{
			Kind:         model.KindArticle,
			Title:        "Rascunho de entrevista",
			Body:         "Texto em revisão.",
			CategorySlug: "noticias",
		}},
		{publish: true, params: CreateContentItemParams{
			Kind:         model.KindEvent,
			Title:        "Encontro de voluntários",
			Excerpt:      "Roda de conversa aberta ao público.",
			Body:         "Inscrições gratuitas no local.",
			CategorySlug: "eventos",
			StartsAt:     &start,
			EndsAt:       &end,
			Location:     "Auditório principal",
		}},
		{publish: true, params: CreateContentItemParams{
			Kind:         model.KindAnnouncement,
			Title:        "Horário de atendimento reduzido",
			Body:         "Durante o recesso o atendimento será das 9h às 12h.",
			CategorySlug: model.AnnouncementCategorySlug,
			ExpiresAt:    &expires,
		}},
	}
}

func seedDemoContent(ctx context.Context, q *Queries) error {
	now := time.Now().UTC()
	items := demoItems(now)
	for i, it := range items {
		it.params.CreatedAt = now.Add(-time.Duration(len(items)-i) * time.Hour)
		created, err := q.CreateContentItem(ctx, it.params)
		if err != nil {
			return fmt.Errorf("creating %s %q: %w", it.params.Kind, it.params.Title, err)
		}
		if it.publish {
			if _, err := q.ToggleContentPublished(ctx, created.ID, now); err != nil {
				return fmt.Errorf("publishing %q: %w", it.params.Title, err)
			}
		}
	}

	slog.Info("seeded demo content items", "count", len(items))
	return nil
}

func seedDemoPages(ctx context.Context, q *Queries) error {
	pages := map[string]any{
		model.PageSlugAbout: model.AboutContent{
			Title:   "Sobre nós",
			Body:    "Somos uma organização dedicada à comunidade.",
			Mission: "Informar e aproximar as pessoas.",
			Values:  []string{"Transparência", "Cuidado", "Participação"},
		},
		model.PageSlugContact: model.ContactContent{
			Email: "contato@example.org",
			Phone: "+55 11 4000-0000",
			Hours: "Segunda a sexta, 8h às 17h",
		},
	}

	now := time.Now()
	for slug, content := range pages {
		data, err := json.Marshal(content)
		if err != nil {
			return fmt.Errorf("encoding page %s: %w", slug, err)
		}
		if _, err := q.UpsertPageDocument(ctx, slug, data, now); err != nil {
			return fmt.Errorf("saving page %s: %w", slug, err)
		}
	}

	slog.Info("seeded demo pages", "count", len(pages))
	return nil
}

func seedDemoEbook(ctx context.Context, q *Queries) error {
	now := time.Now()
	if _, err := q.CreateEbook(ctx, CreateEbookParams{
		ID:          DemoEbookID,
		Title:       "Guia do Voluntário",
		Description: "Tudo o que você precisa saber para começar.",
		PriceCents:  2990,
		Currency:    model.DefaultCurrency,
		Featured:    true,
		PDFRef:      "ebooks/guia-do-voluntario.pdf",
		CreatedAt:   now,
	}); err != nil {
		return err
	}
	if _, err := q.ToggleEbookPublished(ctx, DemoEbookID, now); err != nil {
		return err
	}

	slog.Info("seeded demo ebook", "id", DemoEbookID)
	return nil
}
