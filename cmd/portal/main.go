// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/olegiv/portal-go/internal/cache"
	"github.com/olegiv/portal-go/internal/config"
	"github.com/olegiv/portal-go/internal/handler"
	"github.com/olegiv/portal-go/internal/handler/api"
	"github.com/olegiv/portal-go/internal/logging"
	"github.com/olegiv/portal-go/internal/middleware"
	"github.com/olegiv/portal-go/internal/scheduler"
	"github.com/olegiv/portal-go/internal/service"
	"github.com/olegiv/portal-go/internal/store"
	"github.com/olegiv/portal-go/internal/version"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "portal - news and institutional portal API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_DB_DRIVER            sqlite|postgres (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_DB_DSN               Database file or Postgres DSN (default: ./data/portal.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_SERVER_PORT          Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_ENV                  Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_REDIS_URL            Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_JWKS_URL             JWKS endpoint of the identity provider\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_JWT_SECRET           Shared HS256 secret when no JWKS endpoint is used\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_PAYMENT_BACKEND      http|memory (default: http)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_PAYMENT_SECRET_KEY   Payment processor secret key\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_ASSET_BACKEND        direct|s3 (default: direct)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_WEBHOOK_URLS         Comma-separated webhook endpoints (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_SITE_URL             Public frontend origin used in sitemap.xml\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_CRAWL_BLOCK_AGENTS   Comma-separated crawlers denied in robots.txt (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  PORTAL_DO_SEED              Seed demo content on start (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("portal %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	dialect, err := store.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}

	// Ensure data directory exists
	if dialect == store.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	ctx := context.Background()

	slog.Info("initializing database", "driver", dialect)
	db, err := store.Open(ctx, dialect, cfg.DBDSN, store.DefaultDBConfig())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db, dialect); err != nil {
		return err
	}
	slog.Info("database ready")

	queries := store.NewWithDialect(db, dialect)

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, queries))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	if err := store.Seed(ctx, queries); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	if cfg.DoSeed {
		if err := store.SeedDemo(ctx, queries); err != nil {
			return fmt.Errorf("seeding demo content: %w", err)
		}
	}

	cacheCfg := cache.Config{
		Backend:          cache.BackendMemory,
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		FallbackToMemory: true,
		DefaultTTL:       cfg.CacheTTL,
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
	}
	if cfg.UseRedisCache() {
		cacheCfg.Backend = cache.BackendRedis
	}
	cacheResult, err := cache.New(cacheCfg)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	appCache := cacheResult.Cache
	defer func() {
		if err := appCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	slog.Info("cache initialized", "backend", cacheResult.Backend, "fallback", cacheResult.IsFallback)

	// Outbound notifications
	notifications, err := newNotifications(cfg, logger)
	if err != nil {
		return err
	}
	defer notifications.Stop()

	processor, err := newProcessor(cfg)
	if err != nil {
		return err
	}
	assets, err := newAssetStore(ctx, cfg)
	if err != nil {
		return err
	}
	verifier, err := newAuthVerifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if verifier == nil {
		slog.Warn("no token verifier configured, admin endpoints are unreachable")
	}

	eventService := service.NewEventService(queries, logger)
	views := service.NewViewCounter(queries, logger, cfg.ViewsSkipBots)
	defer views.Wait()

	services := api.Services{
		Content:    service.NewContentService(queries, eventService, notifications.Notifier(), logger),
		Views:      views,
		Categories: service.NewCategoryRegistry(queries, appCache, cfg.CacheTTL, eventService, logger),
		Pages:      service.NewPageService(queries, appCache, cfg.CacheTTL, eventService, notifications.Notifier(), logger),
		Ebooks:     service.NewEbookService(queries, cfg.DefaultCurrency, eventService, notifications.Notifier(), logger),
		Commerce: service.NewCommerceService(queries, processor, service.CommerceConfig{
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
			Timeout:    cfg.PaymentTimeout,
		}, logger),
		Verifier: service.NewPaymentVerifier(queries, processor, service.NewEntitlementIssuer(assets), appCache,
			service.VerifierConfig{
				CacheTTL: cfg.VerifyCacheTTL,
				Timeout:  cfg.PaymentTimeout,
			}, logger),
		Events: eventService,
	}

	// Event log retention
	sched, err := scheduler.New(eventService, scheduler.Config{
		RetentionSchedule: cfg.RetentionSchedule,
		Retention:         cfg.EventRetention,
	}, logger)
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-Match"},
		ExposedHeaders: []string{"ETag", "Retry-After"},
		MaxAge:         300,
	}).Handler)

	// Health check endpoints (no rate limiting, details for admins only)
	healthHandler := handler.NewHealthHandler(db, appCache, string(cacheResult.Backend))
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier))
		r.Get("/health", healthHandler.Health)
		r.Get("/health/ready", healthHandler.Readiness)
	})
	r.Get("/health/live", healthHandler.Liveness)

	seoHandler := handler.NewSEOHandler(services.Content, services.Categories, services.Pages, services.Ebooks,
		appCache, handler.SEOConfig{
			SiteURL:     cfg.SiteURL,
			DisallowAll: cfg.CrawlDisallowAll,
			BlockAgents: cfg.CrawlBlockAgents,
			CacheTTL:    cfg.CacheTTL,
		}, logger)
	r.Get("/sitemap.xml", seoHandler.Sitemap)
	r.Get("/robots.txt", seoHandler.Robots)

	apiHandler := api.NewHandler(services, logger)
	r.Mount("/api/v1", apiHandler.Routes(api.RouteOptions{
		Verifier:        verifier,
		APILimiter:      middleware.NewRateLimiter("api", cfg.APIRateLimit, cfg.APIRateBurst),
		CheckoutLimiter: middleware.NewRateLimiter("checkout", cfg.CheckoutRateLimit, cfg.CheckoutRateBurst),
		PublicMaxAge:    api.DefaultPublicMaxAge,
	}))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Get().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
