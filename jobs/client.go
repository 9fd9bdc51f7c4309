package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/comanda-pos/comanda/internal/delivery"
	"github.com/comanda-pos/comanda/internal/expenses"
)

// enqueuer is the subset of asynq.Client used to submit tasks.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits jobs to the queue. It satisfies expenses.AlertQueue and
// delivery.Notifier.
type Client struct {
	client enqueuer
}

var (
	_ expenses.AlertQueue = (*Client)(nil)
	_ delivery.Notifier   = (*Client)(nil)
)

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// BudgetAlert enqueues a budget alert task.
func (c *Client) BudgetAlert(ctx context.Context, alert expenses.BudgetAlert) error {
	task, opts, err := NewBudgetAlertTask(BudgetAlertFrom(alert))
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, opts)
}

// CustomerEnRoute enqueues the customer SMS for a delivery leaving the restaurant.
func (c *Client) CustomerEnRoute(ctx context.Context, n delivery.EnRouteNotice) error {
	task, opts, err := NewDeliveryNotifyTask(DeliveryNotifyFrom(n))
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, opts)
}

// enqueue submits task; a duplicate task ID means it is already queued.
func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option) error {
	_, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
