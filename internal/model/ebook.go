// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultCurrency is used when an ebook is created without a currency.
const DefaultCurrency = "BRL"

// ErrInvalidPrice is returned by ParsePrice for malformed amounts.
var ErrInvalidPrice = errors.New("invalid price")

// PaymentLink is an optional external payment URL shown next to an ebook.
type PaymentLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Ebook is a purchasable digital product.
type Ebook struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	PriceCents   int64         `json:"price_cents"`
	Currency     string        `json:"currency"`
	Published    bool          `json:"published"`
	Featured     bool          `json:"featured"`
	CoverURL     string        `json:"cover_url,omitempty"`
	PDFRef       string        `json:"-"`
	PaymentLinks []PaymentLink `json:"payment_links,omitempty"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasAsset reports whether a deliverable file is attached.
func (e *Ebook) HasAsset() bool {
	return strings.TrimSpace(e.PDFRef) != ""
}

// Purchasable reports whether a checkout session may be opened for the ebook.
func (e *Ebook) Purchasable() bool {
	return e.Published && e.HasAsset()
}

// ParsePrice converts a decimal amount such as "29.90" or "29,90" into the
// smallest currency unit. At most two decimal places are accepted.
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidPrice
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, ErrInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if units > (1<<63-1-cents)/100 {
		return 0, ErrInvalidPrice
	}
	return units*100 + cents, nil
}

// FormatPrice renders an amount in the smallest currency unit as "29.90".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + frac
}
