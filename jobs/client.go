package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/medstock/medstock/internal/orders"
)

// Enqueuer is the subset of asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits jobs to the queue.
type Client struct {
	client Enqueuer
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return NewClientWith(asynq.NewClient(redisOpts)), nil
}

// NewClientWith wraps an existing enqueuer.
func NewClientWith(enqueuer Enqueuer) *Client {
	return &Client{client: enqueuer}
}

// EnqueueOrderStatusChanged enqueues the audit task for change on the orders queue.
func (c *Client) EnqueueOrderStatusChanged(ctx context.Context, change orders.StatusChange) (*asynq.TaskInfo, error) {
	task, err := NewOrderStatusChangedTask(change)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueOrders), asynq.MaxRetry(5))
}

// StatusChanged lets Client act as the workflow notifier.
func (c *Client) StatusChanged(ctx context.Context, change orders.StatusChange) error {
	_, err := c.EnqueueOrderStatusChanged(ctx, change)
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ orders.Notifier = (*Client)(nil)
