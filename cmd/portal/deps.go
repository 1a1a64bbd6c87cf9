// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/portal-go/internal/asset"
	"github.com/olegiv/portal-go/internal/auth"
	"github.com/olegiv/portal-go/internal/config"
	"github.com/olegiv/portal-go/internal/model"
	"github.com/olegiv/portal-go/internal/payment"
	"github.com/olegiv/portal-go/internal/service"
	"github.com/olegiv/portal-go/internal/webhook"
)

// memoryCheckoutURL is the hosted page handed out by the in-memory processor.
const memoryCheckoutURL = "http://localhost:8080/dev/checkout"

// notifications owns the webhook dispatcher and its debouncer.
// The zero value sends nothing.
type notifications struct {
	dispatcher *webhook.Dispatcher
	debouncer  *webhook.Debouncer
	cancel     context.CancelFunc
}

func newNotifications(cfg *config.Config, logger *slog.Logger) (*notifications, error) {
	if len(cfg.WebhookURLs) == 0 {
		return &notifications{}, nil
	}

	endpoints := make([]model.Webhook, 0, len(cfg.WebhookURLs))
	for _, u := range cfg.WebhookURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		endpoints = append(endpoints, model.Webhook{
			URL:    u,
			Secret: cfg.WebhookSecret,
			Events: cfg.WebhookEvents,
		})
	}

	wcfg := webhook.DefaultConfig()
	wcfg.Workers = cfg.WebhookWorkers
	wcfg.AllowPrivate = cfg.IsDevelopment()
	dispatcher, err := webhook.NewDispatcher(endpoints, logger, wcfg)
	if err != nil {
		return nil, fmt.Errorf("initializing webhooks: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)

	dcfg := webhook.DefaultDebounceConfig()
	if cfg.WebhookDebounce > 0 {
		dcfg.Interval = cfg.WebhookDebounce
		if dcfg.MaxWait < dcfg.Interval {
			dcfg.MaxWait = 5 * dcfg.Interval
		}
	}

	slog.Info("webhook notifications enabled", "endpoints", len(endpoints), "debounce", dcfg.Interval)
	return &notifications{
		dispatcher: dispatcher,
		debouncer:  webhook.NewDebouncer(dispatcher, dcfg),
		cancel:     cancel,
	}, nil
}

// Notifier returns the debounced dispatcher, or nil when webhooks are off.
func (n *notifications) Notifier() service.Notifier {
	if n.debouncer == nil {
		return nil
	}
	return n.debouncer
}

// Stop flushes pending events and stops the workers.
func (n *notifications) Stop() {
	if n.debouncer == nil {
		return
	}
	n.debouncer.Stop()
	n.dispatcher.Stop()
	n.cancel()
}

func newProcessor(cfg *config.Config) (payment.Processor, error) {
	switch cfg.PaymentBackend {
	case config.PaymentBackendMemory:
		slog.Warn("using in-memory payment processor, sessions never settle on their own")
		return payment.NewMemoryProcessor(memoryCheckoutURL), nil
	case config.PaymentBackendHTTP:
		return payment.NewHTTPProcessor(payment.HTTPConfig{
			BaseURL:      cfg.PaymentBaseURL,
			SecretKey:    cfg.PaymentSecretKey,
			Timeout:      cfg.PaymentTimeout,
			BlockPrivate: !cfg.IsDevelopment(),
		}), nil
	}
	return nil, fmt.Errorf("unknown payment backend %q", cfg.PaymentBackend)
}

func newAssetStore(ctx context.Context, cfg *config.Config) (asset.Store, error) {
	switch cfg.AssetBackend {
	case config.AssetBackendS3:
		s, err := asset.NewS3Store(ctx, asset.S3Config{
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
		slog.Info("using s3 asset store", "bucket", cfg.S3Bucket, "presign_ttl", cfg.S3PresignTTL)
		return s, nil
	case config.AssetBackendDirect:
		return asset.NewDirectStore(cfg.AssetBaseURL), nil
	}
	return nil, fmt.Errorf("unknown asset backend %q", cfg.AssetBackend)
}

// newAuthVerifier prefers the JWKS endpoint over the shared secret. It
// returns nil when neither is configured.
func newAuthVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	opts := auth.Options{Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
	switch {
	case cfg.JWKSURL != "":
		v, err := auth.NewJWKSVerifier(ctx, cfg.JWKSURL, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing JWKS verifier: %w", err)
		}
		return v, nil
	case cfg.JWTSecret != "":
		v, err := auth.NewHMACVerifier([]byte(cfg.JWTSecret), opts, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing token verifier: %w", err)
		}
		return v, nil
	}
	return nil, nil
}
