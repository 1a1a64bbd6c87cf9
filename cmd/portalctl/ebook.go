// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/service"
)

func newEbookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ebook",
		Short: "Manage the ebook catalog",
	}
	cmd.AddCommand(newEbookCreateCmd(a), newEbookListCmd(a))
	return cmd
}

func newEbookCreateCmd(a *app) *cobra.Command {
	var (
		in      service.EbookInput
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an ebook to the catalog",
		Example: `  portalctl ebook create --id guia --title "Guia" --price 29.90 \
    --pdf ebooks/guia.pdf --publish`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			ebooks := service.NewEbookService(q, a.cfg.DefaultCurrency, a.events(), nil, a.logger)

			ebook, err := ebooks.Create(cmd.Context(), cliActor, in)
			if err != nil {
				return err
			}
			if publish {
				if ebook, err = ebooks.TogglePublished(cmd.Context(), cliActor, ebook.ID); err != nil {
					return err
				}
			}
			a.printf("created ebook %s (%s %s, published: %t)\n",
				ebook.ID, ebook.Currency, model.FormatPrice(ebook.PriceCents), ebook.Published)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.ID, "id", "", "ebook id; generated when empty")
	f.StringVar(&in.Title, "title", "", "title (required)")
	f.StringVar(&in.Description, "description", "", "markdown description")
	f.StringVar(&in.Price, "price", "", "decimal price, for example 29.90")
	f.StringVar(&in.Currency, "currency", "", "ISO 4217 currency; defaults to PORTAL_DEFAULT_CURRENCY")
	f.StringVar(&in.PDFRef, "pdf", "", "asset reference of the deliverable file")
	f.StringVar(&in.CoverURL, "cover", "", "cover image URL")
	f.BoolVar(&in.Featured, "featured", false, "feature on the home page")
	f.BoolVar(&publish, "publish", false, "publish right away")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEbookListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every ebook, published or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			ebooks := service.NewEbookService(q, a.cfg.DefaultCurrency, a.events(), nil, a.logger)
			items, total, err := ebooks.List(cmd.Context(), cliActor, service.MaxListLimit, 0)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tPUBLISHED\tASSET")
			for _, e := range items {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s %s\t%t\t%t\n",
					e.ID, e.Title, e.Currency, model.FormatPrice(e.PriceCents), e.Published, e.HasAsset())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if total > int64(len(items)) {
				a.printf("showing %d of %d\n", len(items), total)
			}
			return nil
		},
	}
}
