// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contains    []string
		notContains []string
	}{
		{
			name:     "heading and emphasis",
			body:     "## Bem-vindo\n\nEste é o **novo portal**.",
			contains: []string{"<h2", "Bem-vindo</h2>", "<strong>novo portal</strong>"},
		},
		{
			name:        "raw script dropped",
			body:        "hello <script>alert(1)</script>",
			contains:    []string{"hello"},
			notContains: []string{"<script", "alert(1)</script>"},
		},
		{
			name:        "javascript link neutralized",
			body:        "[click](javascript:alert(1))",
			notContains: []string{"javascript:"},
		},
		{
			name:     "external link gets nofollow",
			body:     "[site](https://example.org)",
			contains: []string{`href="https://example.org"`, "nofollow", `target="_blank"`},
		},
		{
			name:     "gfm table",
			body:     "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Markdown(tt.body)
			if err != nil {
				t.Fatalf("Markdown() error = %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("output %q does not contain %q", got, s)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(got, s) {
					t.Errorf("output %q contains %q", got, s)
				}
			}
		})
	}
}

func TestMarkdownEmpty(t *testing.T) {
	got, err := Markdown("")
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if got != "" {
		t.Errorf("Markdown(\"\") = %q, want empty", got)
	}
}
