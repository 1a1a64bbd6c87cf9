// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"fmt"
	"strings"
)

// DefaultDisallowPaths keeps crawlers away from editorial and commerce endpoints.
var DefaultDisallowPaths = []string{
	"/api/v1/admin",
	"/api/v1/checkout",
	"/health",
}

// RobotsConfig holds configuration for robots.txt generation.
type RobotsConfig struct {
	SiteURL       string   // origin the Sitemap line points at; empty omits it
	DisallowAll   bool     // staging deployments
	DisallowPaths []string // in addition to DefaultDisallowPaths
	BlockAgents   []string // user agents shut out entirely
}

// RobotsBuilder renders robots.txt.
type RobotsBuilder struct {
	cfg RobotsConfig
}

// NewRobotsBuilder creates a new robots.txt builder.
func NewRobotsBuilder(cfg RobotsConfig) *RobotsBuilder {
	return &RobotsBuilder{cfg: cfg}
}

type robotsGroup struct {
	agent    string
	disallow []string
	allow    []string
}

func (g robotsGroup) writeTo(sb *strings.Builder) {
	fmt.Fprintf(sb, "User-agent: %s\n", g.agent)
	for _, p := range g.disallow {
		fmt.Fprintf(sb, "Disallow: %s\n", p)
	}
	for _, p := range g.allow {
		fmt.Fprintf(sb, "Allow: %s\n", p)
	}
}

func (b *RobotsBuilder) groups() []robotsGroup {
	if b.cfg.DisallowAll {
		return []robotsGroup{{agent: "*", disallow: []string{"/"}}}
	}
	groups := make([]robotsGroup, 0, len(b.cfg.BlockAgents)+1)
	for _, agent := range b.cfg.BlockAgents {
		groups = append(groups, robotsGroup{agent: agent, disallow: []string{"/"}})
	}
	paths := make([]string, 0, len(DefaultDisallowPaths)+len(b.cfg.DisallowPaths))
	paths = append(paths, DefaultDisallowPaths...)
	paths = append(paths, b.cfg.DisallowPaths...)
	return append(groups, robotsGroup{agent: "*", disallow: paths, allow: []string{"/"}})
}

// Build renders the groups followed by the Sitemap line.
func (b *RobotsBuilder) Build() string {
	var sb strings.Builder
	for i, g := range b.groups() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		g.writeTo(&sb)
	}
	if b.cfg.SiteURL != "" && !b.cfg.DisallowAll {
		fmt.Fprintf(&sb, "\nSitemap: %s/sitemap.xml\n", strings.TrimRight(b.cfg.SiteURL, "/"))
	}
	return sb.String()
}
