// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the portal.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/portal-go/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that discards everything.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database with all migrations applied.
// It is closed when the test finishes.
func TestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "portal-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, store.DialectSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// SQLite3DB is TestDB on the cgo sqlite3 driver. API tests use it so both
// SQLite drivers run the migrations and queries.
func SQLite3DB(t testing.TB) *sql.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "portal-api.db") + "?_busy_timeout=5000&_foreign_keys=on&_loc=UTC"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("opening sqlite3 database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, store.DialectSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// TestQueries returns queries over a fresh TestDB.
func TestQueries(t testing.TB) *store.Queries {
	t.Helper()
	return store.New(TestDB(t))
}

// SeededQueries returns queries over a fresh TestDB holding the default
// categories and the demo content.
func SeededQueries(t testing.TB) *store.Queries {
	t.Helper()
	q := TestQueries(t)
	ctx := context.Background()
	if err := store.Seed(ctx, q); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := store.SeedDemo(ctx, q); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	return q
}
