// cmd/server/main.go
// Root supervisor: loads configuration, connects storage, wires every
// pipeline component with explicit dependency injection, registers the
// scheduled jobs, and serves the query API until shutdown.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"riskmap/internal/config"
	"riskmap/internal/consolidator"
	"riskmap/internal/database"
	"riskmap/internal/enricher"
	"riskmap/internal/fetcher"
	"riskmap/internal/geocode"
	"riskmap/internal/handlers"
	"riskmap/internal/integrator"
	"riskmap/internal/middleware"
	"riskmap/internal/registry"
	"riskmap/internal/repository"
	"riskmap/internal/routes"
	"riskmap/internal/scheduler"
	"riskmap/internal/services"
	"riskmap/internal/translation"
	appLogger "riskmap/pkg/logger"
)

// Exit codes at the host process boundary
const (
	exitConfigError        = 1
	exitStorageUnavailable = 2
	exitSchemaMismatch     = 3
)

func main() {
	logger := appLogger.NewLogger()
	logger.Info("Starting riskmap pipeline", "version", "1.0.0")

	// Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err.Error())
		os.Exit(exitConfigError)
	}
	logger.Info("Configuration loaded",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"canonical_language", cfg.CanonicalLanguage,
		"fetcher_workers", cfg.FetcherWorkers,
		"enricher_workers", cfg.EnricherWorkers,
	)

	// Storage
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "error", err.Error())
		os.Exit(exitStorageUnavailable)
	}
	defer db.Close()

	rdb := database.ConnectRedis(cfg.RedisURL)
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("Redis unavailable, caches disabled", "error", err.Error())
		rdb = nil
	}

	logger.Info("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run database migrations", "error", err.Error())
		os.Exit(exitSchemaMismatch)
	}
	logger.Info("Database migrations completed")

	// Source registry
	registryManager, err := registry.NewManager()
	if err != nil {
		logger.Error("Failed to build source registry", "error", err.Error())
		os.Exit(exitConfigError)
	}

	// Repositories
	articleRepo := repository.NewArticleRepository(db)
	eventRepo := repository.NewEventRepository(db)
	zoneRepo := repository.NewZoneRepository(db)

	if err := articleRepo.UpsertSources(registryManager.Current().All()); err != nil {
		logger.Warn("Failed to mirror source catalog", "error", err.Error())
	}

	// Services
	metricsService := services.NewMetricsService()

	translationGateway, err := translation.NewGateway(cfg, rdb, metricsService, logger)
	if err != nil {
		logger.Error("Failed to build translation gateway", "error", err.Error())
		os.Exit(exitConfigError)
	}

	geocoder := geocode.NewHTTPGeocoder(cfg.GeocoderBaseURL, rdb, cfg.GeocoderCacheTTL)

	var textAnalyzer enricher.Analyzer
	var zoneAnalyzer consolidator.ZoneAnalyzer
	if cfg.PrimaryLLMAPIKey != "" {
		textAnalyzer = enricher.NewLLMAnalyzer(cfg.PrimaryLLMBaseURL, cfg.PrimaryLLMAPIKey, cfg.PrimaryLLMModel)
		zoneAnalyzer = consolidator.NewLLMZoneAnalyzer(cfg.PrimaryLLMBaseURL, cfg.PrimaryLLMAPIKey, cfg.PrimaryLLMModel)
	} else if cfg.SecondaryLLMAPIKey != "" {
		textAnalyzer = enricher.NewLLMAnalyzer(cfg.SecondaryLLMBaseURL, cfg.SecondaryLLMAPIKey, cfg.SecondaryLLMModel)
		zoneAnalyzer = consolidator.NewLLMZoneAnalyzer(cfg.SecondaryLLMBaseURL, cfg.SecondaryLLMAPIKey, cfg.SecondaryLLMModel)
	}

	// Pipeline components
	fetcherPool := fetcher.NewPool(cfg, articleRepo, metricsService, logger)
	enricherPool := enricher.NewPool(cfg, articleRepo, translationGateway, textAnalyzer, geocoder, metricsService, logger)
	eventsIntegrator := integrator.NewEventsIntegrator(cfg, eventRepo, metricsService, logger)
	toneIntegrator := integrator.NewToneIntegrator(cfg, eventRepo, metricsService, logger)
	riskIndexIntegrator := integrator.NewRiskIndexIntegrator(cfg, eventRepo, metricsService, logger)
	zoneConsolidator := consolidator.New(cfg, articleRepo, eventRepo, zoneRepo, zoneAnalyzer, metricsService, logger)

	// Scheduler
	sched := scheduler.New(logger)

	registerJob := func(name, spec string, run func(ctx context.Context) error) {
		if err := sched.Register(name, spec, run); err != nil {
			logger.Error("Failed to register job", "job", name, "error", err.Error())
			os.Exit(exitConfigError)
		}
	}

	registerJob("fetch", cfg.FetchSchedule, func(ctx context.Context) error {
		fetcherPool.Run(ctx, registryManager.Current().All())
		return nil
	})
	registerJob("enrich", cfg.EnrichSchedule, func(ctx context.Context) error {
		_, err := enricherPool.RunOnce(ctx)
		return err
	})
	registerJob("integrate_events", cfg.EventsSchedule, eventsIntegrator.Run)
	registerJob("integrate_tone", cfg.ToneSchedule, toneIntegrator.Run)
	registerJob("integrate_risk_index", cfg.RiskIndexSchedule, riskIndexIntegrator.Run)
	registerJob("consolidate", cfg.ConsolidateSchedule, zoneConsolidator.Run)

	sched.RegisterManual("reload_sources", func(ctx context.Context) error {
		if err := registryManager.Reload(); err != nil {
			return err
		}
		return articleRepo.UpsertSources(registryManager.Current().All())
	})

	sched.Start()

	// HTTP server
	jwtManager := middleware.NewJWTManager(cfg.JWTSecret, cfg.JWTExpirationHours)
	queryHandler := handlers.NewQueryHandler(articleRepo, zoneRepo, metricsService, logger)
	controlHandler := handlers.NewControlHandler(sched.Control(), registryManager, logger)

	app := fiber.New(fiber.Config{
		AppName:      "riskmap API v1.0.0",
		ServerHeader: "riskmap",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Error("Request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
			)
			return c.Status(code).JSON(fiber.Map{
				"error":   "request_failed",
				"message": err.Error(),
			})
		},
	})

	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.APIRateLimit,
		Expiration: cfg.APIRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.IsDevelopment(),
	}))

	routes.SetupRoutes(app, queryHandler, controlHandler, jwtManager)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-stop:
		case <-sched.ShutdownRequests():
		}
		logger.Info("Shutting down...")

		sched.Stop(30 * time.Second)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err.Error())
		}
		logger.Info("Shutdown complete")
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("riskmap server starting",
		"address", addr,
		"sources", len(registryManager.Current().All()),
		"schedules", map[string]string{
			"fetch":       cfg.FetchSchedule,
			"enrich":      cfg.EnrichSchedule,
			"events":      cfg.EventsSchedule,
			"tone":        cfg.ToneSchedule,
			"risk_index":  cfg.RiskIndexSchedule,
			"consolidate": cfg.ConsolidateSchedule,
		},
	)

	if err := app.Listen(addr); err != nil {
		logger.Error("Server failed to start", "error", err.Error())
		os.Exit(exitConfigError)
	}
}
