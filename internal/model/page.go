// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known page slugs
const (
	PageSlugAbout   = "sobre"
	PageSlugContact = "contato"
	PageSlugHome    = "inicio"
)

// PageDocument is a slug-keyed JSON document backing a static page.
// Data is stored verbatim; its shape depends on the slug.
type PageDocument struct {
	ID        int64           `json:"id"`
	Slug      string          `json:"slug"`
	Data      json.RawMessage `json:"data"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Content decodes the document into its slug-specific variant.
func (p *PageDocument) Content() (PageContent, error) {
	return DecodePageContent(p.Slug, p.Data)
}

// PageContent is implemented by every page variant.
type PageContent interface {
	PageSlug() string
}

// AboutContent is the shape of the "sobre" page.
type AboutContent struct {
	Title   string   `json:"title,omitempty" yaml:"title"`
	Body    string   `json:"body,omitempty" yaml:"body"`
	Mission string   `json:"mission,omitempty" yaml:"mission"`
	Vision  string   `json:"vision,omitempty" yaml:"vision"`
	Values  []string `json:"values,omitempty" yaml:"values"`
}

// PageSlug implements PageContent.
func (AboutContent) PageSlug() string { return PageSlugAbout }

// ContactContent is the shape of the "contato" page.
type ContactContent struct {
	Email    string `json:"email,omitempty" yaml:"email"`
	Phone    string `json:"phone,omitempty" yaml:"phone"`
	WhatsApp string `json:"whatsapp,omitempty" yaml:"whatsapp"`
	Address  string `json:"address,omitempty" yaml:"address"`
	Hours    string `json:"hours,omitempty" yaml:"hours"`
	MapURL   string `json:"map_url,omitempty" yaml:"map_url"`
}

// PageSlug implements PageContent.
func (ContactContent) PageSlug() string { return PageSlugContact }

// HomeContent is the shape of the "inicio" page.
type HomeContent struct {
	Headline    string `json:"headline,omitempty" yaml:"headline"`
	Subheadline string `json:"subheadline,omitempty" yaml:"subheadline"`
	CTALabel    string `json:"cta_label,omitempty" yaml:"cta_label"`
	CTAURL      string `json:"cta_url,omitempty" yaml:"cta_url"`
}

// PageSlug implements PageContent.
func (HomeContent) PageSlug() string { return PageSlugHome }

// GenericContent holds documents for slugs without a known shape.
type GenericContent struct {
	Slug   string
	Fields map[string]any
}

// PageSlug implements PageContent.
func (g GenericContent) PageSlug() string { return g.Slug }

// DecodePageContent decodes raw JSON into the variant registered for slug.
func DecodePageContent(slug string, data json.RawMessage) (PageContent, error) {
	switch slug {
	case PageSlugAbout:
		var c AboutContent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding %s page: %w", slug, err)
		}
		return c, nil
	case PageSlugContact:
		var c ContactContent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding %s page: %w", slug, err)
		}
		return c, nil
	case PageSlugHome:
		var c HomeContent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding %s page: %w", slug, err)
		}
		return c, nil
	}

	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding %s page: %w", slug, err)
	}
	return GenericContent{Slug: slug, Fields: fields}, nil
}

//go:embed page_defaults.yaml
var pageDefaultsYAML []byte

var (
	pageDefaultsOnce sync.Once
	pageDefaults     map[string]map[string]any
	pageDefaultsErr  error
)

// PageDefaults returns the default fields for a slug. Callers merge them with
// a stored document, or use them alone when no document exists yet.
// Unknown slugs get an empty map.
func PageDefaults(slug string) map[string]any {
	pageDefaultsOnce.Do(func() {
		pageDefaults = map[string]map[string]any{}
		pageDefaultsErr = yaml.Unmarshal(pageDefaultsYAML, &pageDefaults)
	})
	if pageDefaultsErr != nil {
		return map[string]any{}
	}
	return maps.Clone(pageDefaults[slug])
}

// MergePageDefaults overlays the stored document fields on the slug defaults.
// A nil document yields the defaults.
func MergePageDefaults(slug string, data json.RawMessage) (map[string]any, error) {
	merged := PageDefaults(slug)
	if merged == nil {
		merged = map[string]any{}
	}
	if len(data) == 0 {
		return merged, nil
	}
	stored := map[string]any{}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decoding %s page: %w", slug, err)
	}
	maps.Copy(merged, stored)
	return merged, nil
}
