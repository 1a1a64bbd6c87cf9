// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds the sitemap and robots.txt the portal frontend
// publishes for crawlers.
package seo

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/portal-go/internal/model"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// MaxURLs is the protocol limit for a single sitemap file.
const MaxURLs = 50000

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Valid change frequency values.
const (
	ChangeFreqAlways  ChangeFreq = "always"
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
	ChangeFreqYearly  ChangeFreq = "yearly"
	ChangeFreqNever   ChangeFreq = "never"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapBuilder collects frontend URLs for published entities. Links
// follow the public API layout: /{kind}s/{id}, /categories/{slug},
// /ebooks/{id} and /{page}.
type SitemapBuilder struct {
	siteURL string
	urls    []SitemapURL
}

// NewSitemapBuilder creates a new sitemap builder.
func NewSitemapBuilder(siteURL string) *SitemapBuilder {
	return &SitemapBuilder{
		siteURL: strings.TrimRight(siteURL, "/"),
		urls:    make([]SitemapURL, 0),
	}
}

// Len returns the number of URLs added so far.
func (b *SitemapBuilder) Len() int {
	return len(b.urls)
}

// Full reports whether the sitemap reached MaxURLs.
func (b *SitemapBuilder) Full() bool {
	return len(b.urls) >= MaxURLs
}

func (b *SitemapBuilder) add(path string, updatedAt time.Time, freq ChangeFreq, priority string) {
	if b.Full() {
		return
	}
	u := SitemapURL{
		Loc:        b.siteURL + path,
		ChangeFreq: freq,
		Priority:   priority,
	}
	if !updatedAt.IsZero() {
		u.LastMod = updatedAt.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, u)
}

// AddHomepage adds the homepage to the sitemap.
func (b *SitemapBuilder) AddHomepage() {
	b.add("/", time.Time{}, ChangeFreqDaily, "1.0")
}

// AddContent adds a published content item. Announcements change the most
// often; featured items rank higher.
func (b *SitemapBuilder) AddContent(item model.ContentItem) {
	freq := ChangeFreqMonthly
	switch item.Kind {
	case model.KindAnnouncement:
		freq = ChangeFreqDaily
	case model.KindEvent:
		freq = ChangeFreqWeekly
	}
	priority := "0.6"
	if item.Featured || item.Pinned {
		priority = "0.8"
	}
	b.add("/"+item.Kind.Plural()+"/"+strconv.FormatInt(item.ID, 10), item.UpdatedAt, freq, priority)
}

// AddCategory adds a category archive page.
func (b *SitemapBuilder) AddCategory(cat model.Category) {
	b.add("/categories/"+cat.Slug, cat.UpdatedAt, ChangeFreqDaily, "0.5")
}

// AddEbook adds an ebook detail page.
func (b *SitemapBuilder) AddEbook(ebook model.Ebook) {
	b.add("/ebooks/"+ebook.ID, ebook.UpdatedAt, ChangeFreqWeekly, "0.7")
}

// AddPage adds a singleton page. The home document is the homepage itself
// and is skipped.
func (b *SitemapBuilder) AddPage(slug string, updatedAt time.Time) {
	if slug == model.PageSlugHome {
		return
	}
	b.add("/"+slug, updatedAt, ChangeFreqMonthly, "0.7")
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	sitemap := Sitemap{
		XMLNS: XMLNamespace,
		URLs:  b.urls,
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(output, xmlBytes...), nil
}
