// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/portal-go/internal/service"
	"github.com/olegiv/portal-go/internal/store"
)

// execute runs portalctl against dsn and returns what it printed.
func execute(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--driver", "sqlite", "--dsn", dsn}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func tempDSN(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data", "portal.db")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, tempDSN(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "portalctl dev")
}

func TestMigrateCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := execute(t, dsn, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "database is up to date")

	out, err = execute(t, dsn, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "applied")
	assert.NotContains(t, out, "pending")
}

func TestSeedAndListEbooks(t *testing.T) {
	dsn := tempDSN(t)

	out, err := execute(t, dsn, "seed", "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "seed complete")

	out, err = execute(t, dsn, "ebook", "list")
	require.NoError(t, err)
	assert.Contains(t, out, store.DemoEbookID)
	assert.Contains(t, out, "BRL 29.90")
}

func TestEbookCreateCommand(t *testing.T) {
	dsn := tempDSN(t)

	out, err := execute(t, dsn, "ebook", "create",
		"--id", "manual", "--title", "Manual", "--price", "12.50",
		"--currency", "usd", "--pdf", "ebooks/manual.pdf", "--publish")
	require.NoError(t, err)
	assert.Equal(t, "created ebook manual (USD 12.50, published: true)\n", out)

	_, err = execute(t, dsn, "ebook", "create", "--id", "manual", "--title", "Again")
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = execute(t, dsn, "ebook", "create", "--title", "Odd", "--price", "1.234")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = execute(t, dsn, "ebook", "create", "--id", "untitled")
	assert.Error(t, err, "title is a required flag")
}

func TestSessionVerifyCommand(t *testing.T) {
	processor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_paid":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "cs_paid",
				"status": "complete",
				"payment_status": "paid",
				"customer_email": "reader@example.org",
				"metadata": {"ebook_id": "` + store.DemoEbookID + `"}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": {"code": "resource_missing"}}`))
		}
	}))
	defer processor.Close()

	t.Setenv("PORTAL_PAYMENT_BACKEND", "http")
	t.Setenv("PORTAL_PAYMENT_BASE_URL", processor.URL)
	t.Setenv("PORTAL_PAYMENT_SECRET_KEY", "sk_test_123")
	t.Setenv("PORTAL_ASSET_BACKEND", "direct")
	t.Setenv("PORTAL_ASSET_BASE_URL", "https://files.test")

	dsn := tempDSN(t)
	_, err := execute(t, dsn, "seed", "--demo")
	require.NoError(t, err)

	out, err := execute(t, dsn, "session", "verify", "cs_paid")
	require.NoError(t, err)

	var result service.VerifyResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Paid)
	assert.Equal(t, store.DemoEbookID, result.EbookID)
	assert.Equal(t, "https://files.test/ebooks/guia-do-voluntario.pdf", result.DeliveryRef)
	assert.Equal(t, "reader@example.org", result.CustomerEmail)

	_, err = execute(t, dsn, "session", "verify", "cs_missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSessionVerifyRequiresHTTPBackend(t *testing.T) {
	t.Setenv("PORTAL_PAYMENT_BACKEND", "memory")

	_, err := execute(t, tempDSN(t), "session", "verify", "cs_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http payment backend")
}

func TestEventsPrune(t *testing.T) {
	dsn := tempDSN(t)

	out, err := execute(t, dsn, "events", "prune", "--older-than", "24h")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 events older than 24h0m0s")

	_, err = execute(t, dsn, "events", "prune", "--older-than", "0s")
	assert.Error(t, err)
}

func TestEventsList(t *testing.T) {
	dsn := tempDSN(t)

	_, err := execute(t, dsn, "ebook", "create", "--id", "manual", "--title", "Manual", "--price", "5")
	require.NoError(t, err)

	out, err := execute(t, dsn, "events", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "ebook created")
	assert.Contains(t, out, "portalctl")

	out, err = execute(t, dsn, "events", "list", "--level", "error")
	require.NoError(t, err)
	assert.NotContains(t, out, "ebook created")

	_, err = execute(t, dsn, "events", "list", "--level", "loud")
	assert.ErrorIs(t, err, service.ErrValidation)
}
