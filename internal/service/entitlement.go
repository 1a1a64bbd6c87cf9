// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"time"

	"github.com/olegiv/portal-go/internal/asset"
	"github.com/olegiv/portal-go/internal/model"
)

// EntitlementIssuer turns a paid ebook into a download reference.
type EntitlementIssuer struct {
	assets asset.Store
}

// NewEntitlementIssuer creates an EntitlementIssuer.
func NewEntitlementIssuer(assets asset.Store) *EntitlementIssuer {
	return &EntitlementIssuer{assets: assets}
}

// Issue returns the delivery reference for ebook. Callers must only invoke
// it for a confirmed payment.
func (i *EntitlementIssuer) Issue(ctx context.Context, ebook model.Ebook) (string, error) {
	if !ebook.HasAsset() {
		return "", invalid("pdf_ref", "ebook has no downloadable file")
	}
	ref, err := i.assets.URL(ctx, ebook.PDFRef)
	if err != nil {
		if errors.Is(err, asset.ErrInvalidRef) {
			return "", invalid("pdf_ref", err.Error())
		}
		return "", &ExternalServiceError{Op: "issue download link", Err: err}
	}
	return ref, nil
}

// Lifetime is how long an issued reference stays valid; zero means forever.
func (i *EntitlementIssuer) Lifetime() time.Duration {
	return i.assets.Lifetime()
}
