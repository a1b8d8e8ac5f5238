package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lightning-gateway/internal/auth"
	"lightning-gateway/internal/config"
	"lightning-gateway/internal/domain/entities"
	"lightning-gateway/internal/eventbus"
	"lightning-gateway/internal/idempotency"
	datasourcepostgres "lightning-gateway/internal/infrastructure/datasources/postgres"
	"lightning-gateway/internal/infrastructure/jobs"
	"lightning-gateway/internal/infrastructure/repositories"
	"lightning-gateway/internal/interfaces/http/handlers"
	"lightning-gateway/internal/interfaces/http/middleware"
	"lightning-gateway/internal/lifecycle"
	"lightning-gateway/internal/notifier"
	"lightning-gateway/internal/provider"
	"lightning-gateway/internal/ratelimit"
	"lightning-gateway/internal/webhook"
	"lightning-gateway/pkg/jwt"
	"lightning-gateway/pkg/logger"
	"lightning-gateway/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openGormForMigration = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	openConn  = datasourcepostgres.NewConnection
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := migrateSchema(cfg.Database.URL()); err != nil {
		logger.Error(context.Background(), "Schema migration failed", zap.Error(err))
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	sqlDB, err := openConn(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlDB.Close()

	clients := repositories.NewClientRepository(sqlDB)
	payments := repositories.NewPaymentRequestRepository(sqlDB)
	events := repositories.NewPaymentEventRepository(sqlDB)
	idempotencyRecords := repositories.NewIdempotencyRepository(sqlDB)
	uow := repositories.NewUnitOfWork(sqlDB)

	tokens, err := jwt.NewTokenService(
		cfg.Auth.SigningKeyHex,
		cfg.Auth.ActiveKeyID,
		cfg.Auth.VerificationKeys(),
		cfg.Auth.TokenTTL,
		cfg.Auth.ClockSkew,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	authSvc := auth.NewService(clients, tokens, cfg.RateLimit.TokenPerMinutePerIP)

	providerClient := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.StoreID, cfg.Provider.Timeout)
	bus := eventbus.NewBus(logger.GetLogger())
	callbackNotifier := notifier.New(cfg.Webhook.Secret, logger.GetLogger())

	engine := lifecycle.NewEngine(
		uow, payments, events, idempotencyRecords,
		providerClient, bus, callbackNotifier,
		cfg.Monitoring.DefaultWindow, cfg.Provider.StoreID,
		logger.GetLogger(),
	)

	guard := idempotency.NewGuard()
	ingress := webhook.NewIngress(cfg.Webhook.Secret, cfg.Webhook.EventMap(), payments, engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := jobs.NewMonitoringWorker(
		payments, providerClient, engine,
		cfg.Monitoring.PollInterval, cfg.Monitoring.SweepInterval, cfg.Monitoring.MaxProviderErrs,
	)
	engine.SetTracker(ctx, monitor)
	go monitor.Start(ctx)

	authHandler := handlers.NewAuthHandler(authSvc)
	paymentHandler := handlers.NewPaymentHandler(engine, guard)
	webhookHandler := handlers.NewWebhookHandler(ingress)
	streamHandler := handlers.NewStreamHandler(events, bus)

	paymentLimiter := ratelimit.New(cfg.RateLimit.PaymentCreatePerMinute)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r, sqlDB)
	registerAPIV1Routes(r, routeDeps{
		authHandler:    authHandler,
		paymentHandler: paymentHandler,
		webhookHandler: webhookHandler,
		streamHandler:  streamHandler,
		bearerAuth:     middleware.BearerAuthMiddleware(authSvc),
		paymentLimiter: middleware.RateLimitByClientMiddleware(paymentLimiter),
	})

	log.Println("Registered routes:")
	for _, route := range r.Routes() {
		log.Printf("   %s %s", route.Method, route.Path)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		cancel()
	}()

	log.Printf("lightning-gateway starting on port %s", cfg.Server.Port)
	log.Printf("API: http://localhost:%s/api/v1", cfg.Server.Port)
	log.Printf("Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// migrateSchema opens a short-lived GORM connection purely to run
// AutoMigrate; all request-path reads and writes go through the
// database/sql connection instead.
func migrateSchema(dsn string) error {
	db, err := openGormForMigration(dsn)
	if err != nil {
		return err
	}
	stdDB, err := db.DB()
	if err != nil {
		return err
	}
	defer stdDB.Close()

	return db.AutoMigrate(
		&entities.Client{},
		&entities.PaymentRequest{},
		&entities.PaymentEvent{},
	)
}
