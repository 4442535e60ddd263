package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jokeworks/joker-api/internal/authz"
	"github.com/jokeworks/joker-api/internal/catalog"
	"github.com/jokeworks/joker-api/internal/config"
	"github.com/jokeworks/joker-api/internal/database"
	"github.com/jokeworks/joker-api/internal/handlers"
	"github.com/jokeworks/joker-api/internal/logging"
	"github.com/jokeworks/joker-api/internal/middleware"
	"github.com/jokeworks/joker-api/internal/pipeline"
	"github.com/jokeworks/joker-api/internal/queue"
	"github.com/jokeworks/joker-api/internal/routes"
	"github.com/jokeworks/joker-api/internal/sources"
	"github.com/jokeworks/joker-api/internal/store"
)

func main() {
	// Structured logging (JSON to stdout, level from LOG_LEVEL)
	logLevel := logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Endpoint/source catalog
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded", "endpoints", len(cat.Endpoints), "sources", len(cat.Sources))

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, 30, cleanupDone)

	// Core components
	st := store.New(database.DB)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := cat.Seed(seedCtx, st); err != nil {
		seedCancel()
		slog.Error("catalog seed failed", "error", err)
		os.Exit(1)
	}
	seedCancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		slog.Warn("redis unavailable, source health tracking disabled")
	}
	health := sources.NewHealthTracker(rdb)

	gate := authz.NewGate(st)
	aggregator := sources.NewAggregator(st, sources.NewHTTPFetcher(), health, cfg.SourceTimeout)
	publisher := queue.NewPublisher(cfg.AMQPURL)
	pipe := pipeline.New(st, gate, aggregator, publisher, cfg.RequestTimeout)

	// Handlers
	jokeHandler := handlers.NewJokeHandler(pipe)
	userHandler := handlers.NewUserHandler(st)
	adminHandler := handlers.NewAdminHandler(st, health)
	healthHandler := handlers.NewHealthHandler(database.Ping)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})
	app.Use(middleware.OptionalJWT(cfg))

	// Routes (fixed admin surface + catalog-driven joke endpoints)
	endpoints, err := st.ListEndpoints(context.Background())
	if err != nil {
		slog.Error("failed to list endpoints", "error", err)
		os.Exit(1)
	}
	routes.Setup(app, st, endpoints, jokeHandler, userHandler, adminHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
