// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command portalctl performs administrative tasks against the portal database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/portal-go/internal/config"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/service"
	"github.com/olegiv/portal-go/internal/store"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliActor is recorded in the audit log for changes made from the CLI.
var cliActor = model.NewActor("portalctl", "", model.RoleAdmin)

// app is shared by all subcommands. The database is opened on first use.
type app struct {
	out     io.Writer
	logger  *slog.Logger
	verbose bool
	driver  string
	dsn     string

	cfg     *config.Config
	dialect store.Dialect
	db      *sql.DB
	queries *store.Queries
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Administrative tasks for the portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelInfo
			}
			a.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
			return a.loadConfig()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.driver, "driver", "", "database driver, overrides PORTAL_DB_DRIVER")
	flags.StringVar(&a.dsn, "dsn", "", "database file or DSN, overrides PORTAL_DB_DSN")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newVersionCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newEbookCmd(a),
		newSessionCmd(a),
		newEventsCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	_ = godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.DBDriver = a.driver
	}
	if a.dsn != "" {
		cfg.DBDSN = a.dsn
	}
	a.cfg = cfg
	return nil
}

// openDB connects and brings the schema up to date.
func (a *app) openDB(ctx context.Context) (*store.Queries, error) {
	if a.queries != nil {
		return a.queries, nil
	}

	dialect, err := store.ParseDialect(a.cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	if dialect == store.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBDSN), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := store.Open(ctx, dialect, a.cfg.DBDSN, store.DefaultDBConfig())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	a.dialect = dialect
	a.db = db
	a.queries = store.NewWithDialect(db, dialect)
	return a.queries, nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.queries = nil, nil
	return err
}

func (a *app) events() *service.EventService {
	return service.NewEventService(a.queries, a.logger)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
