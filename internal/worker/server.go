package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ledger-service/internal/consumers"
	"ledger-service/internal/ledger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Worker struct {
	Processor *consumers.EntryProcessor
	Logger    *zap.Logger
}

func NewWorker(processor *consumers.EntryProcessor, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Processor: processor,
		Logger:    logger,
	}
}

func (w *Worker) HandleEntryCommitted(ctx context.Context, t *asynq.Task) error {
	var ev ledger.EntryCommitted
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.Processor.ProcessEntryCommitted(ctx, ev); err != nil {
		w.Logger.Warn("entry subscribers failed", zap.Int("entry_id", ev.EntryID), zap.Error(err))
		return err
	}
	return nil
}

func (w *Worker) HandleMutation(ctx context.Context, t *asynq.Task) error {
	var p consumers.MutationDTO
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.Processor.ProcessMutation(ctx, p); err != nil {
		w.Logger.Warn("queued mutation failed",
			zap.Int("user_id", p.UserId),
			zap.String("category", p.Category),
			zap.Error(err),
		)
		// Rejections are final; only persistence failures are worth a retry.
		if ledger.IsDomainError(err) && !errors.Is(err, ledger.ErrPersistence) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// NewMux registers every ledger task handler.
func NewMux(w *Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEntryCommitted, w.HandleEntryCommitted)
	mux.HandleFunc(TypeMutation, w.HandleMutation)
	return mux
}

func StartWorker(redisOpt asynq.RedisConnOpt, queue string, concurrency int, processor *consumers.EntryProcessor, logger *zap.Logger) error {
	if queue == "" {
		queue = DefaultQueue
	}
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue: 1,
			},
			Logger: logger.Sugar(),
		},
	)

	worker := NewWorker(processor, logger)
	if err := srv.Run(NewMux(worker)); err != nil {
		return fmt.Errorf("could not run worker: %w", err)
	}
	return nil
}
