// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render converts Markdown bodies to sanitized HTML.
package render

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns Markdown into HTML that is safe to embed in a page.
// It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a Renderer with GitHub-flavoured Markdown extensions and the
// user-generated-content sanitizer policy.
func New() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: policy,
	}
}

// Markdown renders body. Raw HTML in the source is dropped by goldmark
// and anything that survives conversion is sanitized again.
func (r *Renderer) Markdown(body string) (string, error) {
	if body == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

var defaultRenderer = New()

// Markdown renders body with the default Renderer.
func Markdown(body string) (string, error) {
	return defaultRenderer.Markdown(body)
}
