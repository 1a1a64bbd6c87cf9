// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

func TestSitemapBuilderAddHomepage(t *testing.T) {
	builder := NewSitemapBuilder("https://example.org/")
	builder.AddHomepage()

	if builder.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", builder.Len())
	}
	url := builder.urls[0]
	if url.Loc != "https://example.org/" {
		t.Errorf("Loc = %q, want %q", url.Loc, "https://example.org/")
	}
	if url.Priority != "1.0" || url.ChangeFreq != ChangeFreqDaily {
		t.Errorf("got priority %q freq %q", url.Priority, url.ChangeFreq)
	}
}

func TestSitemapBuilderAddContent(t *testing.T) {
	updated := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		item         model.ContentItem
		wantLoc      string
		wantFreq     ChangeFreq
		wantPriority string
	}{
		{
			name:         "article",
			item:         model.ContentItem{ID: 7, Kind: model.KindArticle, UpdatedAt: updated},
			wantLoc:      "https://example.org/articles/7",
			wantFreq:     ChangeFreqMonthly,
			wantPriority: "0.6",
		},
		{
			name:         "featured event",
			item:         model.ContentItem{ID: 8, Kind: model.KindEvent, Featured: true, UpdatedAt: updated},
			wantLoc:      "https://example.org/events/8",
			wantFreq:     ChangeFreqWeekly,
			wantPriority: "0.8",
		},
		{
			name:         "pinned announcement",
			item:         model.ContentItem{ID: 9, Kind: model.KindAnnouncement, Pinned: true, UpdatedAt: updated},
			wantLoc:      "https://example.org/announcements/9",
			wantFreq:     ChangeFreqDaily,
			wantPriority: "0.8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewSitemapBuilder("https://example.org")
			builder.AddContent(tt.item)

			url := builder.urls[0]
			if url.Loc != tt.wantLoc {
				t.Errorf("Loc = %q, want %q", url.Loc, tt.wantLoc)
			}
			if url.ChangeFreq != tt.wantFreq {
				t.Errorf("ChangeFreq = %q, want %q", url.ChangeFreq, tt.wantFreq)
			}
			if url.Priority != tt.wantPriority {
				t.Errorf("Priority = %q, want %q", url.Priority, tt.wantPriority)
			}
			if url.LastMod != "2026-03-15T10:00:00Z" {
				t.Errorf("LastMod = %q", url.LastMod)
			}
		})
	}
}

func TestSitemapBuilderOtherEntities(t *testing.T) {
	builder := NewSitemapBuilder("https://example.org")
	builder.AddCategory(model.Category{Slug: "noticias"})
	builder.AddEbook(model.Ebook{ID: "guia"})
	builder.AddPage(model.PageSlugAbout, time.Time{})
	builder.AddPage(model.PageSlugHome, time.Time{})

	want := []string{
		"https://example.org/categories/noticias",
		"https://example.org/ebooks/guia",
		"https://example.org/sobre",
	}
	if builder.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d (home page is skipped)", builder.Len(), len(want))
	}
	for i, loc := range want {
		if builder.urls[i].Loc != loc {
			t.Errorf("urls[%d].Loc = %q, want %q", i, builder.urls[i].Loc, loc)
		}
		if builder.urls[i].LastMod != "" {
			t.Errorf("urls[%d].LastMod = %q, want empty for zero time", i, builder.urls[i].LastMod)
		}
	}
}

func TestSitemapBuilderStopsAtLimit(t *testing.T) {
	builder := NewSitemapBuilder("https://example.org")
	for i := 0; i < MaxURLs+10; i++ {
		builder.AddContent(model.ContentItem{ID: int64(i + 1), Kind: model.KindArticle})
	}
	if builder.Len() != MaxURLs {
		t.Errorf("Len() = %d, want %d", builder.Len(), MaxURLs)
	}
	if !builder.Full() {
		t.Error("Full() = false, want true")
	}
}

func TestSitemapBuilderBuild(t *testing.T) {
	builder := NewSitemapBuilder("https://example.org")
	builder.AddHomepage()
	builder.AddEbook(model.Ebook{ID: "guia"})

	data, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.HasPrefix(string(data), xml.Header) {
		t.Error("Build() output should start with the XML header")
	}

	var parsed Sitemap
	if err := xml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if parsed.XMLNS != XMLNamespace {
		t.Errorf("xmlns = %q, want %q", parsed.XMLNS, XMLNamespace)
	}
	if len(parsed.URLs) != 2 || parsed.URLs[1].Loc != "https://example.org/ebooks/guia" {
		t.Errorf("URLs = %+v", parsed.URLs)
	}
}
