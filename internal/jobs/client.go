package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
)

// Enqueuer is the part of *asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits reconciliation runs to the queue. It also serves as the
// statement import hook when the ingest pass runs in the background.
type Client struct {
	enqueuer Enqueuer
}

func NewClient(enqueuer Enqueuer) *Client {
	return &Client{enqueuer: enqueuer}
}

// NewRedisClient connects a Client to the Redis instance backing asynq. The
// returned closer releases the connection.
func NewRedisClient(opts asynq.RedisClientOpt) (*Client, func() error) {
	c := asynq.NewClient(opts)
	return NewClient(c), c.Close
}

func (c *Client) EnqueueRun(ctx context.Context, payload RunPayload) (*asynq.TaskInfo, error) {
	task, err := NewRunTask(payload)
	if err != nil {
		return nil, err
	}

	info, err := c.enqueuer.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("enqueueing %s: %w", TaskReconciliationRun, err)
	}

	return info, nil
}

// RunIngestPass queues the post-import pass for one account.
func (c *Client) RunIngestPass(ctx context.Context, condominiumID, accountID uuid.UUID) error {
	_, err := c.EnqueueRun(ctx, RunPayload{
		CondominiumID: condominiumID,
		AccountID:     &accountID,
		Policy:        reconciliation.PolicyIngest,
	})

	return err
}
