// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/olegiv/portal-go/internal/asset"
	"github.com/olegiv/portal-go/internal/config"
	"github.com/olegiv/portal-go/internal/payment"
	"github.com/olegiv/portal-go/internal/service"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect checkout sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify <session-id>",
		Short: "Ask the payment processor whether a session was paid",
		Long: `Verify queries the configured payment processor, exactly like the
public verify endpoint, and prints the result as JSON. Paid sessions include
the delivery link.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.PaymentBackend != config.PaymentBackendHTTP {
				return errors.New("session verify needs the http payment backend")
			}
			if a.cfg.PaymentSecretKey == "" {
				return errors.New("PORTAL_PAYMENT_SECRET_KEY is not set")
			}

			q, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			assets, err := newAssetStore(cmd, a.cfg)
			if err != nil {
				return err
			}
			processor := payment.NewHTTPProcessor(payment.HTTPConfig{
				BaseURL:      a.cfg.PaymentBaseURL,
				SecretKey:    a.cfg.PaymentSecretKey,
				Timeout:      a.cfg.PaymentTimeout,
				BlockPrivate: !a.cfg.IsDevelopment(),
			})
			verifier := service.NewPaymentVerifier(q, processor, service.NewEntitlementIssuer(assets), nil,
				service.VerifierConfig{Timeout: a.cfg.PaymentTimeout}, a.logger)

			result, err := verifier.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	})
	return cmd
}

func newAssetStore(cmd *cobra.Command, cfg *config.Config) (asset.Store, error) {
	if cfg.AssetBackend != config.AssetBackendS3 {
		return asset.NewDirectStore(cfg.AssetBaseURL), nil
	}
	s, err := asset.NewS3Store(cmd.Context(), asset.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		UsePathStyle:    cfg.S3UsePathStyle,
		PresignTTL:      cfg.S3PresignTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing s3 asset store: %w", err)
	}
	return s, nil
}

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Maintain the event log",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete event log entries older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("older-than") {
				olderThan = a.cfg.EventRetention
			}
			if olderThan <= 0 {
				return errors.New("retention must be positive")
			}
			if _, err := a.openDB(cmd.Context()); err != nil {
				return err
			}
			n, err := a.events().DeleteOldEvents(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			a.printf("deleted %s events older than %s\n", humanize.Comma(n), olderThan)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "retention period; defaults to PORTAL_EVENT_RETENTION")

	var level string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the newest event log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.openDB(cmd.Context()); err != nil {
				return err
			}
			events, err := a.events().ListEvents(cmd.Context(), level, limit, 0)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TIME\tLEVEL\tCATEGORY\tACTOR\tMESSAGE")
			for _, e := range events {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.UTC().Format(time.DateTime), e.Level, e.Category, e.Actor, e.Message)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&level, "level", "", "only show this level (info, warning, error)")
	list.Flags().IntVar(&limit, "limit", 20, "number of entries")

	cmd.AddCommand(prune, list)
	return cmd
}
