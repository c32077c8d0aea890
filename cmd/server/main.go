// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/handler"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/middleware"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/provider/mercadopago"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/repository"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/router"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/usecase"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/auth"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/cache"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/notifier"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/security"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting pix reconciliation service")

	// Load configuration
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("notify_mode", cfg.Notify.Mode))

	// Connect to database
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := dbPool.Ping(pingCtx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	cancelPing()

	logger.Info("connected to database")

	// Optional redis for rate limiting
	var rateCounter middleware.Counter
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisCache.Close()

		pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, rate limiter will fail open", zap.Error(err))
		}
		cancelPing()
		rateCounter = redisCache
	} else {
		logger.Info("REDIS_ADDR not set, rate limiting disabled")
	}

	// Initialize repositories
	operationRepo := repository.NewOperationRepository(dbPool)
	profileRepo := repository.NewProfileRepository(dbPool)

	// Initialize providers
	mpProvider := mercadopago.NewMercadoPagoProvider(cfg.MercadoPago, logger)

	// Notification channels
	var channels []notifier.Channel
	if cfg.Telegram.BotToken != "" {
		channels = append(channels, notifier.NewTelegramChannel(cfg.Telegram, logger))
	}
	channels = append(channels, notifier.NewWhatsAppChannels(cfg.WhatsApp)...)
	if kafkaWriter := notifier.NewKafkaWriter(cfg.Kafka, logger); kafkaWriter != nil {
		defer kafkaWriter.Close()
		channels = append(channels, notifier.NewKafkaChannel(kafkaWriter))
	}
	if len(channels) == 0 {
		logger.Warn("no notification targets configured, confirmations will not be announced")
	}

	renderer, err := notifier.NewRenderer()
	if err != nil {
		logger.Fatal("failed to build message templates", zap.Error(err))
	}
	dispatcher := notifier.NewDispatcher(channels, renderer, cfg.Notify, logger)

	// Initialize usecases
	ledgerUC := usecase.NewLedgerUsecase(operationRepo, logger)

	callbackUC := usecase.NewCallbackUsecase(
		operationRepo,
		profileRepo,
		mpProvider,
		security.NewSignatureVerifier(cfg.Webhook.Secret, logger),
		ledgerUC,
		dispatcher,
		cfg.Notify.Mode,
		logger,
	)

	manualUC := usecase.NewManualUsecase(
		operationRepo,
		profileRepo,
		mpProvider,
		ledgerUC,
		dispatcher,
		logger,
	)

	operationUC := usecase.NewOperationUsecase(
		operationRepo,
		profileRepo,
		mpProvider,
		dispatcher,
		logger,
	)

	// Initialize handlers
	handlers := router.Handlers{
		Webhook:   handler.NewWebhookHandler(callbackUC, logger),
		Operation: handler.NewOperationHandler(operationUC, logger),
		Admin:     handler.NewAdminHandler(manualUC, logger),
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)

	// Setup routes
	r := router.SetupRoutes(handlers, router.Options{
		Auth:           middleware.NewAuthMiddleware(verifier, cfg.Auth.AdminRole, logger),
		RateCounter:    rateCounter,
		RateLimit:      cfg.RateLimit.Limit,
		RateWindow:     cfg.RateLimit.Window,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("pix reconciliation service started successfully",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env),
		zap.Strings("notification_targets", dispatcher.Targets()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	drained := make(chan struct{})
	go func() {
		callbackUC.Wait()
		operationUC.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		logger.Warn("background notifications still running at shutdown")
	}

	logger.Info("server stopped")
}
