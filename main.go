package main

import (
	"log"

	"ledger-service/internal/cache"
	"ledger-service/internal/config"
	"ledger-service/internal/database"
	grpcServer "ledger-service/internal/grpc"
	"ledger-service/internal/handlers"
	"ledger-service/internal/ledger"
	"ledger-service/internal/logging"
	"ledger-service/internal/services"
	"ledger-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := database.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	// Committed entries fan out to the worker through asynq.
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisURL, Password: cfg.RedisPassword}
	queue := worker.NewClient(redisOpt, cfg.WorkerQueue)
	defer queue.Close()

	processor := ledger.NewProcessor(db, cfg.CommissionRates(), queue, logger)

	walletService := services.NewWalletService(db, processor, cfg.Currency, logger)
	withdrawalService := services.NewWithdrawalService(db, processor, services.WithdrawalSettings{
		MinimumWithdrawal: cfg.MinWithdrawal,
		MaximumWithdrawal: cfg.MaxWithdrawal,
	}, logger)

	redisClient := cache.NewClient(cfg.RedisURL, cfg.RedisPassword)
	defer redisClient.Close()
	claims := cache.NewClaimStore(redisClient, "webhook")
	webhookService := services.NewPaymentWebhookService(processor, claims, cfg.WebhookClaimTTL, cfg.WebhookSecret, logger)

	router := handlers.NewRouter(&handlers.Handler{
		Ledger:      processor,
		Wallets:     walletService,
		Withdrawals: withdrawalService,
		Webhooks:    webhookService,
		Queue:       queue,
		Logger:      logger,
	})

	go func() {
		err := grpcServer.StartGRPCServer(cfg.GRPCPort, &grpcServer.Server{
			Ledger:      processor,
			Wallets:     walletService,
			Withdrawals: withdrawalService,
			Logger:      logger,
		})
		if err != nil {
			logger.Fatal("gRPC server stopped", zap.Error(err))
		}
	}()

	reconciliation := services.NewReconciliationService(db, logger)
	scheduler, err := reconciliation.StartScheduler(cfg.ReconcileCron)
	if err != nil {
		logger.Fatal("reconciliation scheduler failed", zap.Error(err))
	}
	defer scheduler.Stop()

	logger.Info("HTTP server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
