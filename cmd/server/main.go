package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/thirdhand/marketplace/docs"
	adminapp "github.com/thirdhand/marketplace/internal/application/admin"
	analyticsapp "github.com/thirdhand/marketplace/internal/application/analytics"
	catalogapp "github.com/thirdhand/marketplace/internal/application/catalog"
	identityapp "github.com/thirdhand/marketplace/internal/application/identity"
	"github.com/thirdhand/marketplace/internal/application/maintenance"
	messagingapp "github.com/thirdhand/marketplace/internal/application/messaging"
	"github.com/thirdhand/marketplace/internal/application/notification"
	paymentapp "github.com/thirdhand/marketplace/internal/application/payment"
	provenanceapp "github.com/thirdhand/marketplace/internal/application/provenance"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/auth"
	"github.com/thirdhand/marketplace/internal/infrastructure/billing"
	"github.com/thirdhand/marketplace/internal/infrastructure/cache"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"github.com/thirdhand/marketplace/internal/infrastructure/event"
	"github.com/thirdhand/marketplace/internal/infrastructure/logger"
	"github.com/thirdhand/marketplace/internal/infrastructure/mail"
	"github.com/thirdhand/marketplace/internal/infrastructure/migration"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence"
	"github.com/thirdhand/marketplace/internal/infrastructure/printing"
	"github.com/thirdhand/marketplace/internal/infrastructure/scheduler"
	"github.com/thirdhand/marketplace/internal/infrastructure/storage"
	"github.com/thirdhand/marketplace/internal/infrastructure/telemetry"
	"github.com/thirdhand/marketplace/internal/interfaces/http/handler"
	"github.com/thirdhand/marketplace/internal/interfaces/http/middleware"
	"github.com/thirdhand/marketplace/internal/interfaces/http/router"
	"github.com/thirdhand/marketplace/internal/interfaces/ws"
)

const version = "1.0.0"

//	@title			3rd Hand Art Marketplace API
//	@version		1.0
//	@description	Marketplace for second hand art: listings, checkout, provenance and messaging

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry first so the log bridge sees every startup line
	tel, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Env, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := tel.Logger(baseLog)
	defer func() {
		_ = logger.Sync(log)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log.Info("Starting 3rd Hand Art Marketplace",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.Database.AutoMigrate {
		if err := migration.UpOnStartup(cfg.Database.DSN(), log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := tel.InstrumentDB(db.DB); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis is optional outside production
	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	if err := cacheFactory.Connect(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}()
	idempotencyStore := cacheFactory.IdempotencyStore()

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if client := cacheFactory.Client(); client != nil {
		blacklist = auth.NewRedisTokenBlacklist(client)
	}

	var responseCache catalogapp.Cache
	if cfg.Cache.Enabled {
		responseCache = cacheFactory.ResponseCache()
	}
	artworkCache := catalogapp.NewArtworkCache(responseCache, log)

	imageStorage, err := newImageStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	gateway, err := billing.NewStripeGateway(billing.NewStripeConfig(cfg.Stripe), log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	mailer, err := mail.NewFromConfig(cfg.SMTP, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	artworkRepo := persistence.NewGormArtworkRepository(db.DB)
	provenanceRepo := persistence.NewGormProvenanceRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	listingPaymentRepo := persistence.NewGormListingPaymentRepository(db.DB)
	messageRepo := persistence.NewGormMessageRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// Websocket hub, also the realtime sink of the messaging service
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(txScope, userRepo, jwtService, blacklist, log)
	userService := identityapp.NewUserService(userRepo, log)
	hub := ws.NewHub(authService, userService, ws.Config{
		OriginPatterns: originPatterns(cfg.HTTP.CORSAllowOrigins),
	}, log)

	// Application services
	artworkService := catalogapp.NewArtworkService(txScope, artworkRepo, userRepo, artworkCache, log)
	imageService := catalogapp.NewImageService(imageStorage, log)
	paymentService := paymentapp.NewService(txScope, userRepo, artworkRepo, transactionRepo, listingPaymentRepo, gateway, tel.Metrics, log)
	webhookService := paymentapp.NewWebhookService(txScope, gateway, idempotencyStore, artworkCache, tel.Metrics, log)
	messageService := messagingapp.NewService(messageRepo, userRepo, hub, log)
	hub.SetConversationGuard(messageService)
	adminService := adminapp.NewService(txScope, artworkRepo, userRepo, transactionRepo, artworkService, artworkCache, log)
	analyticsService := analyticsapp.NewService(artworkRepo, userRepo, responseCache, log)
	outboxService := adminapp.NewOutboxService(outboxRepo, log)
	provenanceService := provenanceapp.NewService(provenanceRepo, artworkRepo, userRepo, newCertificateRenderer(cfg, log), log)
	maintenanceService := maintenance.NewService(txScope, transactionRepo, userRepo, outboxRepo,
		maintenance.Config{PresenceTimeout: cfg.Scheduler.PresenceTimeout}, log)

	// Background jobs are outbox events consumed by idempotent handlers
	eventBus := event.NewInMemoryEventBus(log)
	jobHandlers := []shared.EventHandler{
		notification.NewVerificationEmailHandler(mailer, log),
		notification.NewPasswordResetEmailHandler(mailer, cfg.Frontend.URL, log),
		notification.NewWelcomeEmailHandler(mailer, cfg.Frontend.URL, log),
		notification.NewPaymentConfirmationHandler(userRepo, artworkRepo, mailer, log),
		notification.NewSaleNotificationHandler(userRepo, artworkRepo, mailer, log),
		notification.NewPaymentFailedHandler(userRepo, artworkRepo, mailer, log),
		notification.NewRefundRequiredHandler(userRepo, artworkRepo, mailer, log),
		catalogapp.NewArtworkCleanupHandler(imageStorage, listingPaymentRepo, artworkCache, log),
	}
	for _, h := range event.WrapHandlersWithIdempotency(jobHandlers, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}),
	) {
		eventBus.Subscribe(h)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		processorConfig.BatchSize = cfg.Event.BatchSize
		processorConfig.PollInterval = cfg.Event.PollInterval
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		processorConfig.CleanupRetention = cfg.Event.CleanupRetention
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	if cfg.Scheduler.Enabled {
		jobs := scheduler.NewScheduler(scheduler.SchedulerConfig{JobTimeout: cfg.Scheduler.JobTimeout}, log)
		if err := scheduler.RegisterMaintenance(jobs, cfg.Scheduler, maintenanceService); err != nil {
			log.Fatal("Failed to register maintenance jobs", zap.Error(err))
		}
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobs.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
		log.Info("Maintenance scheduler started",
			zap.Duration("payment_expiry_interval", cfg.Scheduler.PaymentExpiryInterval),
			zap.Duration("presence_interval", cfg.Scheduler.PresenceInterval),
		)
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request id, recovery, request log, tracing, metrics,
	// security headers, CORS, body limit, rate limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if tel.TracingEnabled() {
		engine.Use(middleware.Tracing(), middleware.SpanErrorMarker())
	}
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.Meter,
		Enabled:       tel.Meter.IsEnabled(),
		Logger:        log,
	}))
	if tel.Profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.SecureWithConfig(middleware.SecurityConfig{
		HSTSEnabled: cfg.App.IsProduction(),
		HSTSMaxAge:  31536000,
	}))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	// Uploads and webhooks enforce their own limits
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, "/api/v1/upload", "/api/v1/payments/webhook"))
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(newLimiter(cacheFactory, "ratelimit:api:", cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow), log))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ws", hub.ServeWS)
	engine.NoRoute(systemHandler.NoRoute)

	jwtAuth := middleware.JWTAuth(authService, log)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}, jwtAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	guards := router.Guards{
		Auth:         jwtAuth,
		OptionalAuth: middleware.OptionalJWTAuth(authService, log),
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		guards.AuthRateLimit = middleware.AuthRateLimit(
			newLimiter(cacheFactory, "ratelimit:auth:", cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow), log)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	for _, group := range router.MarketplaceRoutes(router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService),
		Artwork:      handler.NewArtworkHandler(artworkService),
		Upload:       handler.NewUploadHandler(imageService),
		Traceability: handler.NewTraceabilityHandler(provenanceService),
		Payment:      handler.NewPaymentHandler(paymentService, webhookService),
		Message:      handler.NewMessageHandler(messageService),
		Admin:        handler.NewAdminHandler(adminService),
		Analytics:    handler.NewAnalyticsHandler(analyticsService),
		Outbox:       handler.NewOutboxHandler(outboxService),
		System:       systemHandler,
	}, guards) {
		r.Register(group)
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

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

// newImageStorage returns the configured artwork image store
func newImageStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalogapp.ImageStorage, error) {
	if cfg.Storage.Provider == "memory" {
		log.Warn("Using in-memory image storage, uploads are lost on restart")
		return storage.NewMemoryObjectStorage(cfg.Storage.PublicBaseURL), nil
	}
	s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3, nil
}

// newCertificateRenderer returns nil when printing is disabled or no browser
// is available. Certificate downloads then answer 503.
func newCertificateRenderer(cfg *config.Config, log *zap.Logger) provenanceapp.CertificateRenderer {
	if !cfg.Printing.Enabled {
		return nil
	}
	pdf, err := printing.NewChromedpRenderer(printing.NewChromedpConfig(cfg.Printing, log))
	if err != nil {
		log.Warn("Certificate rendering unavailable", zap.Error(err))
		return nil
	}
	return printing.NewCertificateRenderer(printing.NewTemplateEngine(), pdf, log)
}

// newLimiter shares counters through Redis when it is connected
func newLimiter(factory *cache.Factory, prefix string, limit int, window time.Duration) middleware.Limiter {
	if client := factory.Client(); client != nil {
		return cache.NewRedisRateLimiter(client, prefix, limit, window)
	}
	return middleware.NewRateLimiter(limit, window)
}

// originPatterns turns CORS origins into websocket origin patterns, which
// match on host only
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return []string{"*"}
		}
		host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
		patterns = append(patterns, host)
	}
	return patterns
}
