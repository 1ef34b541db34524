package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appsync "github.com/batchly/backend/internal/application/sync"
	"github.com/batchly/backend/internal/domain/ledger"
	"github.com/batchly/backend/internal/infrastructure/cache"
	"github.com/batchly/backend/internal/infrastructure/config"
	"github.com/batchly/backend/internal/infrastructure/ledgerapi"
	"github.com/batchly/backend/internal/infrastructure/logger"
	"github.com/batchly/backend/internal/infrastructure/persistence"
	"github.com/batchly/backend/internal/infrastructure/scheduler"
	"github.com/batchly/backend/internal/infrastructure/telemetry"
	"github.com/batchly/backend/internal/interfaces/http/handler"
	"github.com/batchly/backend/internal/interfaces/http/middleware"
	"github.com/batchly/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Batchly Sync API
//	@version		1.0
//	@description	Bidirectional sync service between local accounting records and an external ledger system

//	@contact.name	API Support
//	@contact.url	https://github.com/batchly/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Batchly Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize OpenTelemetry providers. Both degrade to no-ops when the
	// collector is not configured, so wiring below is unconditional.
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	meter := meterProvider.Meter("batchly-backend")

	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Mirror application logs to the collector alongside stdout
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          zapcore.InfoLevel,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}

	// Continuous profiling; no-op when disabled
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilerEnabled,
		ServerAddress:     cfg.Telemetry.ProfilerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		// Link CPU profiles to trace spans in Pyroscope
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Attach database tracing and metrics plugins
	if cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to attach DB tracing plugin", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize DB metrics", zap.Error(err))
		} else if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to attach DB metrics plugin", zap.Error(err))
		}
	}

	// Initialize repositories
	operationRepo := persistence.NewGormSyncOperationRepository(db.DB)
	mappingRepo := persistence.NewGormEntityMappingRepository(db.DB)
	dependencyRepo := persistence.NewGormEntityDependencyRepository(db.DB)
	syncConfigRepo := persistence.NewGormEntitySyncConfigRepository(db.DB)
	fieldMappingRepo := persistence.NewGormFieldMappingRepository(db.DB)
	connectionRepo := persistence.NewGormLedgerConnectionRepository(db.DB)
	batchRepo := persistence.NewGormSyncBatchRepository(db.DB)
	errorRegistryRepo := persistence.NewGormErrorRegistryRepository(db.DB)
	localRecordRepo := persistence.NewGormLocalRecordRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)

	// Sync metrics with periodic queue depth collection
	syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
		Meter:         meter,
		Logger:        log,
		QueueProvider: telemetry.NewGormQueueDepthProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	syncMetrics.StartPeriodicCollection(collectorCtx,
		telemetry.NewGormOrganizationProvider(db.DB), time.Minute)

	// Redis-backed webhook dedup and rate-limit cool-down, with in-memory
	// fallback for single-instance deployments
	cacheFactory := cache.NewSyncCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Sync.AllowMemoryDedup),
	)
	webhookDedup, err := cacheFactory.CreateDeduplicator()
	if err != nil {
		log.Fatal("Failed to create webhook deduplicator", zap.Error(err))
	}
	coolDown, err := cacheFactory.CreateCoolDown()
	if err != nil {
		log.Fatal("Failed to create cool-down gate", zap.Error(err))
	}

	// Ledger API client and OAuth token source
	ledgerConfig := &ledgerapi.Config{
		APIBaseURL:     cfg.Ledger.APIBaseURL,
		TokenURL:       cfg.Ledger.TokenURL,
		ClientID:       cfg.Ledger.ClientID,
		ClientSecret:   cfg.Ledger.ClientSecret,
		TimeoutSeconds: cfg.Ledger.TimeoutSeconds,
	}
	ledgerClient, err := ledgerapi.NewHTTPLedgerClient(ledgerConfig)
	if err != nil {
		log.Fatal("Failed to create ledger client", zap.Error(err))
	}
	tokenSource, err := ledgerapi.NewOAuthTokenSource(ledgerConfig)
	if err != nil {
		log.Fatal("Failed to create token source", zap.Error(err))
	}

	backoff := ledger.BackoffPolicy{
		Base:           cfg.Sync.BackoffBase,
		Cap:            cfg.Sync.BackoffCap,
		JitterFraction: 0.2,
		MaxRetries:     cfg.Sync.MaxAttempts,
	}

	// Initialize application services
	queueService := appsync.NewQueueService(operationRepo, syncConfigRepo, log)
	configService := appsync.NewConfigService(dependencyRepo, syncConfigRepo, fieldMappingRepo, connectionRepo, log)
	reportService := appsync.NewReportService(batchRepo, errorRegistryRepo)
	webhookService := appsync.NewWebhookService(webhookEventRepo, webhookDedup, queueService,
		cfg.Webhook.SigningSecret, syncMetrics, log)

	executor := appsync.NewExecutor(
		operationRepo,
		mappingRepo,
		connectionRepo,
		fieldMappingRepo,
		ledgerClient,
		tokenSource,
		localRecordRepo,
		errorRegistryRepo,
		batchRepo,
		coolDown,
		backoff,
		syncMetrics,
		log,
	)
	coordinator := appsync.NewCoordinator(
		operationRepo,
		dependencyRepo,
		batchRepo,
		coolDown,
		executor,
		cfg.Sync.BatchSize,
		syncMetrics,
		log,
	)
	poller := appsync.NewPoller(syncConfigRepo, connectionRepo, ledgerClient, queueService, log)

	// Initialize and start the sync scheduler (if enabled)
	var batchTrigger handler.BatchTrigger
	if cfg.Scheduler.Enabled {
		syncScheduler, err := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
			Enabled:       cfg.Scheduler.Enabled,
			Workers:       cfg.Scheduler.Workers,
			BatchInterval: cfg.Scheduler.BatchInterval,
			PollInterval:  cfg.Scheduler.PollInterval,
			JobTimeout:    cfg.Scheduler.JobTimeout,
		}, coordinator, poller, connectionRepo, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(ctx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.Int("workers", cfg.Scheduler.Workers),
			zap.Duration("batch_interval", cfg.Scheduler.BatchInterval),
			zap.Duration("poll_interval", cfg.Scheduler.PollInterval),
		)
		batchTrigger = syncScheduler
	}

	// Initialize HTTP handlers
	operationHandler := handler.NewSyncOperationHandler(queueService)
	batchHandler := handler.NewSyncBatchHandler(reportService, batchTrigger)
	errorHandler := handler.NewSyncErrorHandler(reportService)
	configHandler := handler.NewSyncConfigHandler(configService)
	webhookHandler := handler.NewWebhookHandler(webhookService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing / Metrics - OpenTelemetry instrumentation
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetricsWithMeter(meter, cfg.Telemetry.Enabled))
	if cfg.Telemetry.ProfilerEnabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Public webhook receiver. The ledger system calls this directly and
	// authenticates with an HMAC signature, not an organization header.
	webhookHandler.RegisterRoutes(&engine.RouterGroup)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Register sync route groups
	r.Register(operationHandler).
		Register(batchHandler).
		Register(errorHandler).
		Register(configHandler)

	// Register system routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Operator-facing webhook replay lives under the versioned API
	webhookHandler.RegisterAdminRoutes(engine.Group("/api/v1"))

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
