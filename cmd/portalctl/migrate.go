// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olegiv/portal-go/internal/store"
	"github.com/olegiv/portal-go/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config or database needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			a.printf("portalctl %s\n", version.Get())
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.openDB(cmd.Context()); err != nil {
				return err
			}
			a.printf("database is up to date\n")
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.openDB(cmd.Context()); err != nil {
				return err
			}
			statuses, err := store.MigrationStatus(cmd.Context(), a.db, a.dialect)
			if err != nil {
				return fmt.Errorf("reading migration status: %w", err)
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
			for _, s := range statuses {
				applied := "-"
				if !s.AppliedAt.IsZero() {
					applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
			}
			return tw.Flush()
		},
	})
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create default categories and, optionally, demo content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Seed(cmd.Context(), q); err != nil {
				return err
			}
			if demo {
				if err := store.SeedDemo(cmd.Context(), q); err != nil {
					return err
				}
			}
			a.printf("seed complete\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "also create demo articles, pages and an ebook")
	return cmd
}
