package main

import (
	"context"
	"errors"
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/database"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/dto"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/lock"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/logging"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/routes"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/services"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

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
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewMetrics(registry)

	// Resolution lock
	var locker lock.Locker = lock.NewKeyedMutex()
	var pingLock func(ctx context.Context) error
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := lock.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)
		pingLock = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		slog.Info("resolution lock backed by redis")
	} else {
		slog.Warn("REDIS_URL not set, resolution lock is process local")
	}

	// Marketplace platform
	platform, err := platformapi.NewClient(cfg.PlatformAPIURL, cfg.PlatformAPIToken, cfg.PlatformAPITimeout)
	if err != nil {
		slog.Error("platform client init failed", "error", err)
		os.Exit(1)
	}

	// Services
	store := services.NewGormReportStore(database.DB)
	resolver := services.NewEntityResolver(platform)
	actions := services.NewModerationActionService(platform, resolver, cfg.ActionTimeout, metrics)
	deliveries := services.NewGormDeliveryRecorder(database.DB)
	dispatcher := services.NewDispatcher(map[models.Channel]services.ChannelSender{
		models.ChannelInApp: services.NewInAppSender(database.DB),
		models.ChannelEmail: services.NewPlatformSender(platform, models.ChannelEmail),
	}, deliveries, cfg.NotifyParallelism, metrics)
	queue := services.NewNotificationQueue(dispatcher, cfg.NotifyWorkers, cfg.NotifyQueueSize, metrics)
	queue.Start()

	moderationService := services.NewModerationService(store, resolver, deliveries)
	resolutionService := services.NewResolutionService(store, locker, actions, resolver, queue, metrics, services.ResolutionOptions{
		RequireDismissalNotes: cfg.RequireDismissalNotes,
		LockWait:              cfg.LockWait,
	})

	// Handlers
	healthHandler := handlers.NewHealthHandler(database.Ping, pingLock)
	moderationHandler := handlers.NewModerationHandler(moderationService, resolutionService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
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

	routes.Setup(app, cfg, registry, healthHandler, moderationHandler)

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

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Pending notifications are delivered before the database goes away.
	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := queue.Stop(drainCtx); err != nil {
		slog.Error("notification queue drain incomplete", "error", err)
	}
	cancel()

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    errorCode(code),
		Message: message,
	})
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	}
	if status >= 500 {
		return "INTERNAL"
	}
	return "BAD_REQUEST"
}
