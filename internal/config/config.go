// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the portal configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/portal-go/internal/util"
)

// Payment processor backends
const (
	PaymentBackendHTTP   = "http"
	PaymentBackendMemory = "memory"
)

// Asset store backends
const (
	AssetBackendDirect = "direct"
	AssetBackendS3     = "s3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver   string `env:"PORTAL_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"PORTAL_DB_DSN" envDefault:"./data/portal.db"`
	ServerHost string `env:"PORTAL_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"PORTAL_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"PORTAL_ENV" envDefault:"development"`
	LogLevel   string `env:"PORTAL_LOG_LEVEL" envDefault:"info"`

	RequestTimeout time.Duration `env:"PORTAL_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins    []string      `env:"PORTAL_CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Cache configuration
	RedisURL     string        `env:"PORTAL_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string        `env:"PORTAL_CACHE_PREFIX" envDefault:"portal:"` // Redis key prefix
	CacheTTL     time.Duration `env:"PORTAL_CACHE_TTL" envDefault:"5m"`
	CacheMaxSize int           `env:"PORTAL_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Authorization provider. Tokens are verified against the JWKS endpoint
	// when set, otherwise with the shared HS256 secret.
	JWKSURL     string `env:"PORTAL_JWKS_URL"`
	JWTSecret   string `env:"PORTAL_JWT_SECRET"`
	JWTIssuer   string `env:"PORTAL_JWT_ISSUER"`
	JWTAudience string `env:"PORTAL_JWT_AUDIENCE" envDefault:"authenticated"`

	// Payment processor
	PaymentBackend     string        `env:"PORTAL_PAYMENT_BACKEND" envDefault:"http"`
	PaymentBaseURL     string        `env:"PORTAL_PAYMENT_BASE_URL" envDefault:"https://api.stripe.com"`
	PaymentSecretKey   string        `env:"PORTAL_PAYMENT_SECRET_KEY"`
	PaymentTimeout     time.Duration `env:"PORTAL_PAYMENT_TIMEOUT" envDefault:"10s"`
	DefaultCurrency    string        `env:"PORTAL_DEFAULT_CURRENCY" envDefault:"BRL"`
	CheckoutSuccessURL string        `env:"PORTAL_CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:3000/ebooks/obrigado?session_id={CHECKOUT_SESSION_ID}"`
	CheckoutCancelURL  string        `env:"PORTAL_CHECKOUT_CANCEL_URL" envDefault:"http://localhost:3000/ebooks"`
	VerifyCacheTTL     time.Duration `env:"PORTAL_VERIFY_CACHE_TTL" envDefault:"1h"`

	// Asset store
	AssetBackend      string        `env:"PORTAL_ASSET_BACKEND" envDefault:"direct"`
	AssetBaseURL      string        `env:"PORTAL_ASSET_BASE_URL"`
	S3Bucket          string        `env:"PORTAL_S3_BUCKET"`
	S3Region          string        `env:"PORTAL_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string        `env:"PORTAL_S3_ENDPOINT"` // MinIO, R2 or other S3-compatible endpoint
	S3AccessKeyID     string        `env:"PORTAL_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `env:"PORTAL_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool          `env:"PORTAL_S3_USE_PATH_STYLE" envDefault:"false"`
	S3PresignTTL      time.Duration `env:"PORTAL_S3_PRESIGN_TTL" envDefault:"15m"`

	// Outbound notifications
	WebhookURLs     []string      `env:"PORTAL_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret   string        `env:"PORTAL_WEBHOOK_SECRET"`
	WebhookEvents   []string      `env:"PORTAL_WEBHOOK_EVENTS" envSeparator:","` // Empty means all events
	WebhookWorkers  int           `env:"PORTAL_WEBHOOK_WORKERS" envDefault:"3"`
	WebhookDebounce time.Duration `env:"PORTAL_WEBHOOK_DEBOUNCE" envDefault:"2s"`

	// Rate limits, requests per second per client IP
	APIRateLimit      float64 `env:"PORTAL_API_RATE_LIMIT" envDefault:"20"`
	APIRateBurst      int     `env:"PORTAL_API_RATE_BURST" envDefault:"40"`
	CheckoutRateLimit float64 `env:"PORTAL_CHECKOUT_RATE_LIMIT" envDefault:"0.5"`
	CheckoutRateBurst int     `env:"PORTAL_CHECKOUT_RATE_BURST" envDefault:"5"`

	ViewsSkipBots bool `env:"PORTAL_VIEWS_SKIP_BOTS" envDefault:"false"`

	// Public frontend origin used in the sitemap
	SiteURL          string   `env:"PORTAL_SITE_URL" envDefault:"http://localhost:3000"`
	CrawlDisallowAll bool     `env:"PORTAL_CRAWL_DISALLOW_ALL" envDefault:"false"` // Staging deployments
	CrawlBlockAgents []string `env:"PORTAL_CRAWL_BLOCK_AGENTS" envSeparator:","`

	// Event log retention
	EventRetention    time.Duration `env:"PORTAL_EVENT_RETENTION" envDefault:"2160h"` // 90 days; 0 keeps everything
	RetentionSchedule string        `env:"PORTAL_RETENTION_SCHEDULE" envDefault:"0 3 * * *"`

	// Seeding configuration
	DoSeed bool `env:"PORTAL_DO_SEED" envDefault:"false"` // Enable database seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// AuthEnabled reports whether admin tokens can be verified at all.
func (c Config) AuthEnabled() bool {
	return c.JWKSURL != "" || c.JWTSecret != ""
}

// MinJWTSecretLength is the minimum length for the shared HS256 secret.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads environment variables without validating the result.
// Tools that only touch the database use it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	return cfg, nil
}

// Validate checks settings that cannot be expressed with struct tags.
// All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	if c.PaymentTimeout <= 0 {
		errs = append(errs, errors.New("PORTAL_PAYMENT_TIMEOUT must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("PORTAL_REQUEST_TIMEOUT must be positive"))
	}
	if c.VerifyCacheTTL < 0 {
		errs = append(errs, errors.New("PORTAL_VERIFY_CACHE_TTL must not be negative"))
	}
	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, fmt.Errorf("PORTAL_DEFAULT_CURRENCY must be an ISO 4217 code, got %q", c.DefaultCurrency))
	}

	switch c.PaymentBackend {
	case PaymentBackendHTTP:
		if c.PaymentSecretKey == "" {
			errs = append(errs, errors.New("PORTAL_PAYMENT_SECRET_KEY is required for the http payment backend"))
		}
		policy := util.EndpointPolicy{AllowPrivate: c.IsDevelopment(), RequireHTTPS: !c.IsDevelopment()}
		if err := util.ValidateEndpointURL(c.PaymentBaseURL, policy); err != nil {
			errs = append(errs, fmt.Errorf("PORTAL_PAYMENT_BASE_URL: %w", err))
		}
	case PaymentBackendMemory:
		if !c.IsDevelopment() {
			errs = append(errs, errors.New("the memory payment backend is only allowed in development"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PORTAL_PAYMENT_BACKEND %q", c.PaymentBackend))
	}

	switch c.AssetBackend {
	case AssetBackendDirect:
	case AssetBackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("PORTAL_S3_BUCKET is required for the s3 asset backend"))
		}
		if c.S3PresignTTL <= 0 {
			errs = append(errs, errors.New("PORTAL_S3_PRESIGN_TTL must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PORTAL_ASSET_BACKEND %q", c.AssetBackend))
	}

	if c.JWKSURL == "" && c.JWTSecret != "" && len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("PORTAL_JWT_SECRET must be at least %d bytes long", MinJWTSecretLength))
	}
	if !c.IsDevelopment() && slices.Contains(c.CORSOrigins, "*") {
		errs = append(errs, errors.New("PORTAL_CORS_ORIGINS must list explicit origins outside development"))
	}
	if len(c.WebhookURLs) > 0 && c.WebhookSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("PORTAL_WEBHOOK_SECRET is required when webhooks are configured"))
	}
	if c.APIRateLimit <= 0 || c.CheckoutRateLimit <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}

	return errors.Join(errs...)
}
