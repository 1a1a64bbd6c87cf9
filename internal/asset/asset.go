// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package asset resolves stored file references into URLs a buyer can
// download from.
package asset

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/olegiv/portal-go/internal/util"
)

// ErrInvalidRef is returned for empty or unsafe references.
var ErrInvalidRef = errors.New("invalid asset reference")

// Store turns an asset reference into a download URL.
type Store interface {
	// URL returns a URL for ref.
	URL(ctx context.Context, ref string) (string, error)
	// Lifetime is how long a returned URL stays usable. Zero means it does
	// not expire.
	Lifetime() time.Duration
}

// DirectStore hands out references unchanged. Relative references are
// joined to the base URL; anything with a scheme is returned as is.
type DirectStore struct {
	baseURL string
}

// NewDirectStore creates a DirectStore. baseURL may be empty when every
// reference is already an absolute URL.
func NewDirectStore(baseURL string) *DirectStore {
	return &DirectStore{baseURL: strings.TrimRight(baseURL, "/")}
}

// URL implements Store.
func (s *DirectStore) URL(_ context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidRef
	}
	if isAbsoluteURL(ref) {
		return ref, nil
	}
	key, err := cleanKey(ref)
	if err != nil {
		return "", err
	}
	if s.baseURL == "" {
		return "/" + key, nil
	}
	return s.baseURL + "/" + key, nil
}

// Lifetime implements Store.
func (s *DirectStore) Lifetime() time.Duration { return 0 }

func isAbsoluteURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

func cleanKey(ref string) (string, error) {
	key := util.CleanObjectKey(ref)
	if key == "" {
		return "", ErrInvalidRef
	}
	return key, nil
}
