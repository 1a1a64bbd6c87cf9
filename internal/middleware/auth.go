// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/olegiv/portal-go/internal/auth"
	"github.com/olegiv/portal-go/internal/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyActor holds the model.Actor of the request.
const ContextKeyActor ContextKey = "actor"

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authenticate resolves the bearer token, if any, into an actor stored in
// the request context. Requests without a token continue as anonymous; a
// token that fails verification is rejected with 401.
func Authenticate(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>")
				return
			}
			if verifier == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication is not configured")
				return
			}

			actor, err := verifier.Verify(r.Context(), token)
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireActor rejects anonymous requests with 401. Whether the actor may
// write is decided by the services.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetActor(r).Authenticated {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor returns ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// GetActor retrieves the actor from the request context, or model.Anonymous.
func GetActor(r *http.Request) model.Actor {
	if actor, ok := r.Context().Value(ContextKeyActor).(model.Actor); ok {
		return actor
	}
	return model.Anonymous
}
