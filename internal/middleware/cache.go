// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
)

// PublicCache lets browsers and CDNs keep anonymous GET and HEAD responses
// for maxAge seconds. Requests carrying a bearer token may see drafts, so
// they are never stored, and shared caches are told the response varies
// by Authorization.
func PublicCache(maxAge int) func(http.Handler) http.Handler {
	public := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Authorization")
			cacheable := r.Method == http.MethodGet || r.Method == http.MethodHead
			if cacheable && r.Header.Get("Authorization") == "" {
				h.Set("Cache-Control", public)
			} else {
				h.Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable. Admin and checkout routes carry
// actor-specific or payment data.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
