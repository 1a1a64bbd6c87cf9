// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth verifies access tokens issued by the hosted identity provider
// and turns them into actors. Users, roles and sessions are managed there.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/portal-go/internal/model"
)

// ErrUnauthorized is returned for any token that cannot be trusted. The
// cause is logged, never returned to the caller.
var ErrUnauthorized = errors.New("unauthorized")

// authenticatedRole is the token-level role of a signed-in user; "anon"
// tokens are rejected.
const authenticatedRole = "authenticated"

// leeway tolerates clock skew between the portal and the identity provider.
const leeway = 30 * time.Second

// Claims is the token payload issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	AppMetadata map[string]any `json:"app_metadata"`
}

// PortalRole returns the portal role granted in app_metadata, or viewer.
func (c *Claims) PortalRole() string {
	if role, ok := c.AppMetadata["role"].(string); ok && role != "" {
		return strings.ToLower(role)
	}
	return model.RoleViewer
}

// Verifier validates a bearer token and returns the actor it identifies.
type Verifier interface {
	Verify(ctx context.Context, token string) (model.Actor, error)
}

// Options restricts which tokens are accepted.
type Options struct {
	Issuer   string
	Audience string
}

// JWTVerifier verifies signed JWTs.
type JWTVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
	logger  *slog.Logger
}

// NewJWKSVerifier creates a verifier that fetches public keys from a JWKS
// endpoint. Keys are cached and refreshed until ctx is cancelled. Only
// asymmetric algorithms are accepted.
func NewJWKSVerifier(ctx context.Context, jwksURL string, opts Options, logger *slog.Logger) (*JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("creating JWKS client: %w", err)
	}

	v := newJWTVerifier(jwks.Keyfunc, []string{"RS256", "ES256"}, opts, logger)
	v.logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return v, nil
}

// NewHMACVerifier creates a verifier for tokens signed with a shared HS256
// secret.
func NewHMACVerifier(secret []byte, opts Options, logger *slog.Logger) (*JWTVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("JWT secret cannot be empty")
	}
	key := func(*jwt.Token) (any, error) { return secret, nil }
	return newJWTVerifier(key, []string{"HS256"}, opts, logger), nil
}

func newJWTVerifier(key jwt.Keyfunc, algs []string, opts Options, logger *slog.Logger) *JWTVerifier {
	if logger == nil {
		logger = slog.Default()
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(algs),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}

	return &JWTVerifier{
		keyfunc: key,
		parser:  jwt.NewParser(parserOpts...),
		logger:  logger,
	}
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (model.Actor, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keyfunc)
	if err != nil || !token.Valid {
		v.logger.Debug("token rejected", "error", err)
		return model.Anonymous, ErrUnauthorized
	}

	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return model.Anonymous, ErrUnauthorized
	}
	if claims.Role != authenticatedRole {
		v.logger.Debug("token has non-authenticated role", "role", claims.Role, "sub", claims.Subject)
		return model.Anonymous, ErrUnauthorized
	}

	return model.NewActor(claims.Subject, claims.Email, claims.PortalRole()), nil
}

// StaticVerifier maps fixed tokens to actors. Development and tests only.
type StaticVerifier map[string]model.Actor

// Verify implements Verifier.
func (s StaticVerifier) Verify(_ context.Context, token string) (model.Actor, error) {
	if actor, ok := s[token]; ok {
		return actor, nil
	}
	return model.Anonymous, ErrUnauthorized
}
