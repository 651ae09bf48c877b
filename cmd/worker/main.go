package main

import (
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ledger-service/internal/config"
	"ledger-service/internal/consumers"
	"ledger-service/internal/database"
	"ledger-service/internal/ledger"
	"ledger-service/internal/logging"
	"ledger-service/internal/worker"
)

func main() {
	config.LoadEnv("../../.env", ".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisURL, Password: cfg.RedisPassword}

	// Mutations made by subscribers (commission payouts) publish their own
	// events back onto the same queue.
	publisher := worker.NewClient(redisOpt, cfg.WorkerQueue)
	defer publisher.Close()
	processor := ledger.NewProcessor(db, cfg.CommissionRates(), publisher, logger)

	entryProcessor := consumers.NewEntryProcessor(
		processor,
		consumers.NewCommissionConsumer(processor, cfg.HouseUserID, logger),
		consumers.NewLoyaltyConsumer(consumers.LogFeed{Logger: logger}),
		logger,
	)

	logger.Info("starting asynq worker", zap.String("queue", cfg.WorkerQueue), zap.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.StartWorker(redisOpt, cfg.WorkerQueue, cfg.WorkerConcurrency, entryProcessor, logger); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
