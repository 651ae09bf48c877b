package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledger-service/internal/consumers"
	"ledger-service/internal/ledger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeEntryCommitted = "ledger:entry-committed"
	TypeMutation       = "ledger:mutation"
)

const DefaultQueue = "ledger"

// Task Creators

func NewEntryCommittedTask(ev ledger.EntryCommitted) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEntryCommitted, data, asynq.MaxRetry(10)), nil
}

func NewMutationTask(payload consumers.MutationDTO) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMutation, data, asynq.MaxRetry(5)), nil
}

func entryTaskID(ev ledger.EntryCommitted) string {
	return fmt.Sprintf("entry-committed:%d", ev.EntryID)
}

func mutationTaskID(dto consumers.MutationDTO) string {
	if dto.IdempotencyKey != "" {
		return "mutation:" + dto.IdempotencyKey
	}
	return "mutation:" + uuid.NewString()
}

// Client enqueues ledger tasks. It implements ledger.Publisher.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisOpt asynq.RedisConnOpt, queue string) *Client {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Client{client: asynq.NewClient(redisOpt), queue: queue}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// PublishEntryCommitted enqueues ev once; a repeated publish of the same entry
// is dropped by its task id.
func (c *Client) PublishEntryCommitted(ctx context.Context, ev ledger.EntryCommitted) error {
	task, err := NewEntryCommittedTask(ev)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(entryTaskID(ev)),
		asynq.Retention(24*time.Hour),
	)
	if err != nil && !isDuplicateTask(err) {
		return fmt.Errorf("enqueue %s: %w", TypeEntryCommitted, err)
	}
	return nil
}

// EnqueueMutation queues dto for the worker and returns the task id.
func (c *Client) EnqueueMutation(ctx context.Context, dto consumers.MutationDTO) (string, error) {
	if _, err := dto.ToRequest(); err != nil {
		return "", err
	}
	task, err := NewMutationTask(dto)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(mutationTaskID(dto)),
	)
	if err != nil {
		if isDuplicateTask(err) {
			return "", fmt.Errorf("%w: mutation %q already queued", ledger.ErrDuplicateRequest, dto.IdempotencyKey)
		}
		return "", fmt.Errorf("enqueue %s: %w", TypeMutation, err)
	}
	return info.ID, nil
}

func isDuplicateTask(err error) bool {
	return errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask)
}
