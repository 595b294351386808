package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/schoolledger/backend/docs"
	eventapp "github.com/schoolledger/backend/internal/application/event"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/domain/shared/valueobject"
	"github.com/schoolledger/backend/internal/infrastructure/cache"
	"github.com/schoolledger/backend/internal/infrastructure/config"
	"github.com/schoolledger/backend/internal/infrastructure/event"
	"github.com/schoolledger/backend/internal/infrastructure/logger"
	"github.com/schoolledger/backend/internal/infrastructure/observability"
	"github.com/schoolledger/backend/internal/infrastructure/persistence"
	"github.com/schoolledger/backend/internal/infrastructure/scheduler"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"github.com/schoolledger/backend/internal/interfaces/http/handler"
	"github.com/schoolledger/backend/internal/interfaces/http/middleware"
	"github.com/schoolledger/backend/internal/interfaces/http/router"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = telemetry.DefaultServiceVersion

//	@title			School Ledger API
//	@version		1.0
//	@description	Multi-school student fee ledger: fee records, payments, concessions,
//	@description	previous-year balance carry-forward and student promotion.

//	@contact.name	Ledger Maintainers

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

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
		TimeFormat:  logger.DefaultTimeFormat,
		Service:     cfg.App.Name,
		Environment: cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// Log export: every later component logs through the bridged logger
	logsCfg := telemetryCfg
	logsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled
	logProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer shutdown(log, "logger provider", logProvider.Shutdown)
	minLevel, err := zapcore.ParseLevel(cfg.Telemetry.LogsMinLevel)
	if err != nil {
		minLevel = zapcore.InfoLevel
	}
	log = logProvider.Bridge(log, cfg.Telemetry.ServiceName, minLevel)

	log.Info("Starting School Ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	flushSentry, err := observability.InitSentry(observability.SentryOptions{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		Release:          version,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		FlushTimeout:     cfg.Sentry.FlushTimeout,
	})
	if err != nil {
		log.Error("Failed to initialize Sentry, error reporting disabled", zap.Error(err))
	}
	defer flushSentry()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	metricsCfg := telemetryCfg
	metricsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.MetricsExportEnabled
	meterProvider, err := telemetry.NewMeterProvider(ctx, metricsCfg, cfg.Telemetry.MetricsExportInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics export", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
		BasicAuthUser:   cfg.Telemetry.ProfilingAuthUser,
		BasicAuthPass:   cfg.Telemetry.ProfilingAuthPass,
		Memory:          cfg.Telemetry.ProfilingMemory,
		Goroutines:      cfg.Telemetry.ProfilingGoroutines,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Telemetry.SpanProfiles && profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithParams(cfg.Telemetry.DBLogFullSQL),
	)

	// Initialize database connection; the school scope guard is installed on open
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.MetricsExportEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Error("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Redis backs the fee structure L2 cache, the receipt number cache and event idempotency.
	// Without it each instance falls back to local state.
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, fee structure cache runs in-process only", zap.Error(err))
		redisClient = nil
	} else {
		defer func() {
			_ = redisClient.Close()
		}()
	}
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))

	// Repositories and the outbox
	repos := persistence.NewRepositories(db.DB)
	resolver := cache.NewCachedFeeStructureResolver(
		persistence.NewGormFeeStructureResolver(db.DB),
		redisClient,
		cache.WithStructureLogger(log),
	)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	eventSerializer := event.NewEventSerializer()
	event.RegisterLedgerEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer, event.WithMaxRetries(cfg.Event.MaxRetries))
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// Initialize application services
	clock := shared.SystemClock{}
	feeService := ledgerapp.NewFeeService(txScope, repos, resolver, clock, log)
	feeService.SetCurrency(valueobject.Currency(cfg.Ledger.Currency))
	paymentService := ledgerapp.NewPaymentService(txScope, repos, clock, log)
	concessionService := ledgerapp.NewConcessionService(txScope, repos, clock, log)
	carryForwardService := ledgerapp.NewCarryForwardService(txScope, repos, clock, log)
	carryForwardService.SetDefaultThreshold(cfg.Ledger.CarryForwardThreshold)
	promotionService := ledgerapp.NewPromotionService(txScope, repos, clock, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, clock, log)

	receiptStore, err := storeFactory.CreateStoreForMode(ctx, cfg.Ledger.ReceiptCache)
	if err != nil {
		log.Fatal("Failed to create receipt number cache", zap.Error(err))
	}
	if receiptStore != nil {
		paymentService.SetReceiptCache(receiptStore, cfg.Ledger.ReceiptCacheTTL)
	}

	// Event bus with the audit and metrics subscribers
	ledgerMetrics := telemetry.NewLedgerMetrics()
	eventBus := event.NewInMemoryEventBus(log, event.WithKnownEventTypes(event.LedgerEventTypes()...))

	eventStore, err := storeFactory.CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create event idempotency store", zap.Error(err))
	}
	subscribers := event.WrapHandlersWithIdempotency(
		[]shared.EventHandler{
			ledgerapp.NewAuditLogHandler(log),
			ledgerapp.NewMetricsEventHandler(ledgerMetrics),
		},
		eventStore,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Event.IdempotencyTTL,
			Enabled: true,
		}),
	)
	for _, subscriber := range subscribers {
		eventBus.Subscribe(subscriber)
	}
	log.Info("Event handlers registered",
		zap.Strings("subscribed", eventBus.SubscribedTypes()),
		zap.Strings("serializable", eventSerializer.RegisteredTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// The outbox processor relays committed events to the bus
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention

		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorCfg, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
	}

	// Nightly overdue refresh for every school with open fee records
	if cfg.Ledger.OverdueSweepEnabled {
		hour, minute, err := scheduler.ParseDailySchedule(cfg.Ledger.OverdueSweepSchedule)
		if err != nil {
			log.Fatal("Invalid overdue sweep schedule", zap.Error(err))
		}

		schedulerCfg := scheduler.DefaultSchedulerConfig()
		schedulerCfg.MaxConcurrentJobs = cfg.Ledger.OverdueSweepWorkers
		sweepScheduler := scheduler.NewScheduler(schedulerCfg, scheduler.NewOverdueExecutor(feeService, log), clock, log)
		if err := sweepScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start overdue sweep scheduler", zap.Error(err))
		}
		defer func() {
			if err := sweepScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping overdue sweep scheduler", zap.Error(err))
			}
		}()

		triggerCfg := scheduler.DefaultCronTriggerConfig()
		triggerCfg.DailyHour = hour
		triggerCfg.DailyMinute = minute
		sweepTrigger := scheduler.NewCronTrigger(triggerCfg, sweepScheduler, persistence.NewGormSchoolDirectory(db.DB), clock, log)
		if err := sweepTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start overdue sweep trigger", zap.Error(err))
		}
		defer func() {
			if err := sweepTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping overdue sweep trigger", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Fee:        handler.NewFeeHandler(feeService),
		Payment:    handler.NewPaymentHandler(paymentService),
		Concession: handler.NewConcessionHandler(concessionService),
		Balance:    handler.NewBalanceHandler(carryForwardService),
		Promotion:  handler.NewPromotionHandler(promotionService),
		System:     handler.NewSystemHandler(db, cfg.App.Name, version),
		Outbox:     handler.NewOutboxHandler(outboxService),
	}

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = cfg.Telemetry.Enabled

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log, logger.WithSkipPaths("/health", "/metrics")),
		middleware.TracingWithConfig(tracingCfg),
		middleware.SpanErrorMarker(),
		middleware.ErrorReporter(),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Recorder:      ledgerMetrics,
			Enabled:       cfg.Telemetry.MetricsEnabled,
		}),
		middleware.CORSWithConfig(corsCfg),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", handlers.System.Health)
	if cfg.Telemetry.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(ledgerMetrics.Handler()))
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	// Bulk endpoints share one token bucket per school
	var bulkGuard gin.HandlerFunc
	stopSweep := make(chan struct{})
	defer close(stopSweep)
	if cfg.HTTP.BulkRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.BulkRateLimitPerSec, cfg.HTTP.BulkRateLimitBurst)
		go limiter.Run(time.Minute, stopSweep)
		bulkGuard = middleware.RateLimit(limiter)
	}

	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = profiler.IsEnabled()

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(middleware.ProfilingWithConfig(profilingCfg)),
	)
	router.RegisterLedger(r, handlers, bulkGuard).Setup()

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// shutdown runs a provider's Shutdown on exit, logging instead of failing.
func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
