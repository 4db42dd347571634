package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/joho/godotenv"

	_ "github.com/marchelocal/server/docs"
	"github.com/marchelocal/server/internal/config"
	"github.com/marchelocal/server/internal/database"
	"github.com/marchelocal/server/internal/handlers"
	"github.com/marchelocal/server/internal/logger"
	"github.com/marchelocal/server/internal/middleware"
	"github.com/marchelocal/server/internal/models"
	"github.com/marchelocal/server/internal/search"
	"github.com/marchelocal/server/internal/services"
	"github.com/marchelocal/server/internal/telemetry"
	"github.com/marchelocal/server/pkg/auth"
	"github.com/marchelocal/server/pkg/geocode"
	"github.com/marchelocal/server/pkg/secretbox"
)

const serviceName = "marchelocal-api"

// @title marchelocal API
// @version 1.0.0
// @description Local markets, their vendors and what they sell
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg := config.Load()

	if err := logger.Init(logger.Options{JSON: !cfg.IsDevelopment(), Level: cfg.LogLevel}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.GetLogger("main")

	if envErr != nil {
		log.Info("No .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize OpenTelemetry Tracer
	ctx := context.Background()
	tracerShutdown, err := telemetry.InitTracer(ctx, serviceName, cfg.SigNozEndpoint)
	if err != nil {
		log.Warnw("Failed to initialize tracer", "error", err)
		tracerShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		if err := tracerShutdown(ctx); err != nil {
			log.Warnw("Error shutting down tracer", "error", err)
		}
	}()

	// Initialize OpenTelemetry Metrics
	meterShutdown, err := telemetry.InitMeter(ctx, serviceName, cfg.SigNozEndpoint)
	if err != nil {
		log.Warnw("Failed to initialize metrics", "error", err)
		meterShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		if err := meterShutdown(ctx); err != nil {
			log.Warnw("Error shutting down metrics", "error", err)
		}
	}()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolCtx, stopPool := context.WithCancel(ctx)
	defer stopPool()
	go database.StartConnectionPoolMetricsCollector(poolCtx, db.DB, 15*time.Second)

	box, err := secretbox.New(cfg.BankDetailsSecret)
	if err != nil {
		log.Fatalf("Failed to initialize bank details encryption: %v", err)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "marchelocal API",
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","status":${status},"latency":"${latency}","ip":"${ip}","method":"${method}","path":"${path}","error":"${error}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "Europe/Paris",
	}))
	app.Use(telemetry.New(telemetry.Config{
		ServiceName: serviceName,
	}))
	app.Use(middleware.PrometheusMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		AllowHeaders: "Accept, Authorization, Content-Type, Origin, X-API-Key, X-Request-ID",
		MaxAge:       86400,
	}))

	// Setup routes
	setupRoutes(app, db, cfg, box)

	// Start server
	port := cfg.ServerPort
	if port == "" {
		port = "3000"
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warnw("Error shutting down server", "error", err)
		}
	}()

	log.Infof("Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRoutes(app *fiber.App, db *database.DB, cfg *config.Config, box *secretbox.Box) {
	issuer := auth.NewIssuer(cfg.JWTSecretKey, cfg.JWTAccessTokenExpireMin, cfg.JWTRefreshTokenExpireDays)

	markets := services.NewMarketStore(db)
	catalog := services.NewCatalogService(db)
	vendors := services.NewVendorService(db)
	geocoder := services.NewGeocodeService(
		services.NewGormGeocodeCache(db),
		geocode.NewClient(
			geocode.WithBaseURL(cfg.GeocoderBaseURL),
			geocode.WithRateLimit(cfg.GeocoderRPS),
			geocode.WithLogger(logger.GetLogger("geocoder")),
		),
		cfg.GeocodeCacheTTL,
	)
	engine := search.NewEngine(markets, search.Config{MaxResults: cfg.SearchMaxResults})

	// Swagger UI
	app.Get("/v1/docs/*", swagger.HandlerDefault)

	// Prometheus scrape endpoint, private networks only
	app.Get("/metrics", middleware.InternalOnly(!cfg.IsDevelopment()), middleware.PrometheusHandler())

	// Health check endpoints for k8s probes
	app.Get("/healthz", handlers.HealthCheck)
	app.Get("/v1/healthz", handlers.HealthCheck)
	app.Get("/v1/liveness", handlers.LivenessCheck)
	if sqlDB, err := db.DB.DB(); err == nil {
		app.Get("/v1/readiness", handlers.ReadinessCheck(sqlDB))
	}

	// API v1 group
	v1 := app.Group("/v1")

	// Auth routes (no auth required)
	handlers.SetupAuthRoutes(v1.Group("/auth"), handlers.NewAuthHandler(services.NewAuthService(db, issuer)))

	// Markets routes (public)
	handlers.SetupMarketRoutes(v1.Group("/markets"),
		handlers.NewMarketHandler(engine, markets, catalog, geocoder, cfg.SearchDefaultRadiusKm))

	// Geocode and categories (public)
	handlers.SetupGeocodeRoutes(v1.Group("/geocode"), handlers.NewGeocodeHandler(geocoder))
	handlers.SetupCategoryRoutes(v1.Group("/categories"), handlers.NewCategoryHandler(services.NewCategoryService(db)))

	// Users routes (auth required)
	handlers.SetupUserRoutes(v1.Group("/users", middleware.AuthRequired(issuer)),
		handlers.NewUserHandler(services.NewUserService(db)))

	// Vendor routes (auth required; PUT /vendors/me is how a consumer becomes a vendor)
	handlers.SetupVendorRoutes(v1.Group("/vendors", middleware.AuthRequired(issuer)),
		handlers.NewVendorHandler(vendors, catalog, services.NewBankService(db, box)),
		middleware.RoleRequired(models.RoleVendor))

	// Internal routes (API key)
	handlers.SetupInternalRoutes(v1.Group("/internal", middleware.APIKeyRequired(cfg.InternalAPIKey)),
		handlers.NewInternalHandler(markets))
}
