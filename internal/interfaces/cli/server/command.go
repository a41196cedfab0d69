package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"waveshop/internal/application/payment/gateway"
	"waveshop/internal/application/payment/ledger"
	paymentUsecases "waveshop/internal/application/payment/usecases"
	subscriptionUsecases "waveshop/internal/application/subscription/usecases"
	"waveshop/internal/infrastructure/config"
	"waveshop/internal/infrastructure/database"
	"waveshop/internal/infrastructure/migration"
	"waveshop/internal/infrastructure/persistence/models"
	"waveshop/internal/infrastructure/queue"
	"waveshop/internal/infrastructure/repository"
	"waveshop/internal/infrastructure/scheduler"
	"waveshop/internal/infrastructure/secrets"
	"waveshop/internal/infrastructure/telegram"
	"waveshop/internal/interfaces/http/handlers"
	"waveshop/internal/interfaces/http/routes"
	"waveshop/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(mapEnvToGinMode(env))
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		manager := migration.NewManager(env)
		if err := manager.Migrate(database.Get(), &models.TransactionModel{}, &models.SubscriptionModel{}); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
	}

	log := logger.NewLogger()

	txRepo := repository.NewTransactionRepository(database.Get())
	subRepo := repository.NewSubscriptionRepository(database.Get())

	botService := telegram.NewBotService(cfg.Telegram)

	deps := &gateway.FactoryDeps{
		Bot:       botService,
		ReturnURL: cfg.Server.BaseURL + "/payments/return",
		Logger:    log,
	}
	if cfg.Secrets.MasterKey != "" {
		store, err := secrets.NewStore(cfg.Secrets.MasterKey)
		if err != nil {
			return fmt.Errorf("failed to initialize secrets store: %w", err)
		}
		deps.Secrets = store
	}

	factory, err := gateway.NewFactory(cfg.Payment.Gateways, deps)
	if err != nil {
		return fmt.Errorf("failed to build gateway factory: %w", err)
	}

	extendUC := subscriptionUsecases.NewExtendSubscriptionUseCase(subRepo, log)
	txLedger := ledger.New(txRepo, extendUC, log)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		// Notifications are best-effort; payments work without the queue.
		logger.Warn("redis unavailable, completion notifications disabled", "error", err)
	} else {
		txLedger.SetTaskQueue(queue.NewRedisQueue(redisClient, ""))
	}
	pingCancel()
	defer redisClient.Close()

	createTimeout := time.Duration(cfg.Payment.CreateTimeoutSecs) * time.Second
	initiateUC := paymentUsecases.NewInitiatePaymentUseCase(txRepo, factory, createTimeout, log)
	webhookUC := paymentUsecases.NewHandleWebhookUseCase(factory, txLedger, log)
	approveUC := paymentUsecases.NewApprovePreCheckoutUseCase(txRepo, log)
	confirmUC := paymentUsecases.NewConfirmStarsPaymentUseCase(txLedger, log)

	pendingTTL := time.Duration(cfg.Payment.PendingTTLMinutes) * time.Minute
	sweepUC := paymentUsecases.NewSweepPendingTransactionsUseCase(txRepo, txLedger, pendingTTL, log)

	sweepInterval := time.Duration(cfg.Payment.SweepIntervalMins) * time.Minute
	sweeper := scheduler.NewSweepScheduler(sweepUC, sweepInterval, log)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	engine := gin.New()
	// Without this gin believes any peer's X-Forwarded-For, which would let
	// callers spoof an allowlisted webhook source address.
	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}
	engine.Use(gin.Recovery())
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.SetupPaymentRoutes(engine, &routes.PaymentRouteConfig{
		PaymentHandler:  handlers.NewPaymentHandler(initiateUC, webhookUC, log),
		TelegramHandler: handlers.NewTelegramHandler(approveUC, confirmUC, botService, cfg.Telegram.WebhookSecret, cfg.Telegram.AllowUnsigned, log),
	})

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "address", cfg.Server.GetAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

func mapEnvToGinMode(env string) string {
	switch env {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
