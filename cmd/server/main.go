package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	eventapp "github.com/oxfield/backend/internal/application/event"
	fieldopsapp "github.com/oxfield/backend/internal/application/fieldops"
	identityapp "github.com/oxfield/backend/internal/application/identity"
	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/infrastructure/auth"
	billinginfra "github.com/oxfield/backend/internal/infrastructure/billing"
	"github.com/oxfield/backend/internal/infrastructure/cache"
	"github.com/oxfield/backend/internal/infrastructure/config"
	"github.com/oxfield/backend/internal/infrastructure/event"
	"github.com/oxfield/backend/internal/infrastructure/logger"
	"github.com/oxfield/backend/internal/infrastructure/notification"
	"github.com/oxfield/backend/internal/infrastructure/persistence"
	"github.com/oxfield/backend/internal/infrastructure/persistence/tenant"
	"github.com/oxfield/backend/internal/infrastructure/scheduler"
	"github.com/oxfield/backend/internal/infrastructure/storage"
	"github.com/oxfield/backend/internal/interfaces/http/handler"
	"github.com/oxfield/backend/internal/interfaces/http/middleware"
	"github.com/oxfield/backend/internal/interfaces/http/router"
)

//	@title			Oxfield API
//	@version		1.0
//	@description	Multi-tenant field service management backend

//	@contact.name	API Support
//	@contact.url	https://github.com/oxfield/backend

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with the tenant gate. Every tenant-scoped model gets
	// filtered reads and stamped creates from here on.
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	tenant.EnableAutoTenantFilter(db.DB, true)

	// Event plumbing. Aggregates write events to the outbox in the same
	// transaction as their state; the processor relays them afterwards.
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	orderRepo := persistence.NewGormServiceOrderRepository(db.DB, publisher)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB, publisher)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB, publisher)
	creditRepo := persistence.NewGormCreditRepository(db.DB, publisher)

	// Infrastructure adapters
	notifier := notification.NewLogNotifier(log)

	gateway, err := billinginfra.NewPaymentGateway(&cfg.Stripe, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	var objectStorage fieldopsapp.ObjectStorageService
	if cfg.Storage.Provider == "s3" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		objectStorage = s3Storage
	} else {
		log.Warn("Using stub object storage, uploaded evidence is not persisted")
		objectStorage = storage.NewStubObjectStorage()
	}

	var blacklist auth.TokenBlacklist
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Host != "" {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis for token blacklist", zap.Error(err))
		}
		blacklist = redisBlacklist

		redisIdempotency, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis for idempotency store", zap.Error(err))
		}
		idempotencyStore = redisIdempotency
	} else {
		log.Warn("Redis not configured, using in-memory token blacklist and idempotency store")
		blacklist = auth.NewInMemoryTokenBlacklist()
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, tenantRepo, jwtService, blacklist, identityapp.DefaultAuthServiceConfig(), log)
	tenantService := identityapp.NewTenantService(tenantRepo, userRepo, log)

	billingConfig := billingapp.BillingConfig{
		InvoiceDueDays:            cfg.Billing.InvoiceDueDays,
		DelinquencyGraceDays:      cfg.Billing.DelinquencyGraceDays,
		CreditExpiryLookaheadDays: cfg.Billing.CreditExpiryLookaheadDays,
	}
	billingService := billingapp.NewBillingService(subscriptionRepo, invoiceRepo, tenantRepo, gateway, notifier, billingConfig, log)
	creditService := billingapp.NewCreditService(creditRepo, notifier, billingConfig, log)
	completionPolicy := fieldops.CompletionPolicy{
		RequireSignature:  cfg.Orders.RequireSignature,
		RequireAfterPhoto: cfg.Orders.RequireAfterPhoto,
	}
	orderService := fieldopsapp.NewOrderService(orderRepo, userRepo, tenantRepo, creditService, objectStorage, completionPolicy, log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	rootCtx := context.Background()

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)
	notificationHandler := fieldopsapp.NewOrderNotificationHandler(userRepo, notifier, log)
	idempotentNotifications := event.NewIdempotentHandler(notificationHandler, idempotencyStore, log)
	eventBus.Subscribe(idempotentNotifications, notificationHandler.EventTypes()...)

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Failed to stop event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			processorConfig.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			processorConfig.PollInterval = cfg.Event.PollInterval
		}
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			processorConfig.CleanupRetention = cfg.Event.CleanupRetention
		}

		processor := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorConfig, log)
		if err := processor.Start(rootCtx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := processor.Stop(stopCtx); err != nil {
				log.Error("Failed to stop outbox processor", zap.Error(err))
			}
		}()
	}

	// Billing scheduler. The scheduler is always constructed so the admin
	// endpoints can report on it; jobs only run when enabled.
	jobExecutor := billingapp.NewBillingJobExecutor(billingService, creditService, log)
	billingScheduler := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Enabled:           cfg.Scheduler.Enabled,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		QueueSize:         cfg.Scheduler.QueueSize,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		RetryAttempts:     cfg.Scheduler.RetryAttempts,
		RetryDelay:        cfg.Scheduler.RetryDelay,
	}, jobExecutor, log)

	if cfg.Scheduler.Enabled {
		if err := billingScheduler.Start(rootCtx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := billingScheduler.Stop(stopCtx); err != nil {
				log.Error("Failed to stop scheduler", zap.Error(err))
			}
		}()

		cronTrigger := scheduler.NewCronTrigger(cronConfigFromBilling(&cfg.Billing), billingScheduler, log)
		if err := cronTrigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := cronTrigger.Stop(stopCtx); err != nil {
				log.Error("Failed to stop cron trigger", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	orderHandler := handler.NewOrderHandler(orderService)
	billingHandler := handler.NewBillingHandler(billingService, creditService)
	schedulerHandler := handler.NewSchedulerHandler(billingScheduler)
	outboxHandler := handler.NewOutboxHandler(outboxService)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	corsConfig.ExposeHeaders = append(corsConfig.ExposeHeaders, "X-Request-ID")

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
	)

	engine.GET("/health", healthHandler(db, log))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/ping",
		},
	}))

	authGroup := router.NewDomainGroup("auth", "/auth")
	authGroup.POST("/login", authHandler.Login).
		POST("/refresh", authHandler.RefreshToken).
		POST("/logout", authHandler.Logout).
		GET("/me", authHandler.GetCurrentUser).
		PUT("/password", authHandler.ChangePassword)
	authGroup.POST("/force-logout", middleware.RequireRoles("ADMIN"), authHandler.ForceLogout)

	ordersGroup := router.NewDomainGroup("orders", "/orders")
	ordersGroup.POST("", orderHandler.Create).
		GET("", orderHandler.List).
		GET("/mine", orderHandler.ListMine).
		GET("/stats", orderHandler.GetStats).
		GET("/number/:osNumber", orderHandler.GetByNumber).
		GET("/:id", orderHandler.Get).
		POST("/:id/assign", orderHandler.AssignTechnician).
		POST("/:id/start-route", orderHandler.StartRoute).
		POST("/:id/arrive", orderHandler.Arrive).
		POST("/:id/complete", orderHandler.Complete).
		POST("/:id/cancel", orderHandler.Cancel).
		POST("/:id/checklist", orderHandler.AddChecklistItem).
		POST("/:id/checklist/:itemId/complete", orderHandler.CompleteChecklistItem).
		POST("/:id/photos/upload-url", orderHandler.RequestPhotoUpload).
		POST("/:id/photos", orderHandler.AttachPhoto).
		POST("/:id/signature", orderHandler.AttachSignature)

	billingGroup := router.NewDomainGroup("billing", "/billing")
	billingGroup.POST("/subscription", billingHandler.CreateSubscription).
		GET("/subscription", billingHandler.GetSubscription).
		DELETE("/subscription", billingHandler.CancelSubscription).
		GET("/invoices", billingHandler.ListInvoices).
		GET("/invoices/:id", billingHandler.GetInvoice).
		POST("/invoices/:id/pay", billingHandler.MarkInvoicePaid).
		GET("/overview", billingHandler.GetOverview)

	creditsGroup := router.NewDomainGroup("credits", "/credits")
	creditsGroup.GET("", billingHandler.GetCreditSummary).
		POST("/purchase", billingHandler.PurchaseCredits).
		POST("/consume", billingHandler.ConsumeCredits).
		GET("/usage", billingHandler.ListCreditUsage)

	tenantsGroup := router.NewDomainGroup("tenants", "/tenants")
	tenantsGroup.Use(middleware.RequireRoles("ADMIN"))
	tenantsGroup.POST("", tenantHandler.Provision).
		GET("", tenantHandler.List).
		GET("/stats", tenantHandler.GetStats).
		GET("/domain/:domain", tenantHandler.GetByDomain).
		GET("/:id", tenantHandler.GetByID).
		POST("/:id/activate", tenantHandler.Activate).
		POST("/:id/suspend", tenantHandler.Suspend).
		POST("/:id/reactivate", tenantHandler.Reactivate).
		PUT("/:id/plan", tenantHandler.ChangePlan).
		PUT("/:id/contact", tenantHandler.UpdateContact)

	adminGroup := router.NewDomainGroup("admin", "/admin")
	adminGroup.Use(middleware.RequireRoles("ADMIN"))
	adminGroup.GET("/scheduler/status", schedulerHandler.GetStatus).
		POST("/scheduler/jobs/:type/run", schedulerHandler.TriggerJob)

	systemGroup := router.NewDomainGroup("system", "/system")
	systemGroup.Use(middleware.RequireRoles("ADMIN"))
	systemGroup.GET("/outbox/dead", outboxHandler.GetDeadLetterEntries).
		GET("/outbox/stats", outboxHandler.GetStats).
		GET("/outbox/:id", outboxHandler.GetEntry).
		POST("/outbox/:id/retry", outboxHandler.RetryDeadEntry).
		POST("/outbox/dead/retry-all", outboxHandler.RetryAllDeadEntries)

	r.Register(authGroup).
		Register(ordersGroup).
		Register(billingGroup).
		Register(creditsGroup).
		Register(tenantsGroup).
		Register(adminGroup).
		Register(systemGroup).
		Setup()

	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}

// cronConfigFromBilling builds the billing calendar from configuration.
// The expiry notice fires Mondays, the report on the first of the month.
func cronConfigFromBilling(cfg *config.BillingConfig) scheduler.CronTriggerConfig {
	monday := time.Monday
	firstOfMonth := 1
	return scheduler.CronTriggerConfig{
		Schedules: []scheduler.JobSchedule{
			{JobType: scheduler.JobTypeMonthlyBilling, Hour: cfg.MonthlyRunHour, Minute: cfg.MonthlyRunMinute},
			{JobType: scheduler.JobTypeOverdueSweep, Hour: cfg.OverdueSweepHour},
			{JobType: scheduler.JobTypeDelinquencySweep, Hour: cfg.DelinquencySweepHour},
			{JobType: scheduler.JobTypeCreditExpiryNotice, Hour: cfg.CreditExpiryNoticeHour, Weekday: &monday},
			{JobType: scheduler.JobTypeMonthlyReport, Hour: cfg.MonthlyReportHour, DayOfMonth: &firstOfMonth},
		},
		CheckInterval: time.Minute,
	}
}

// healthHandler reports process and database health
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			log.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "down",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "up",
		})
	}
}
