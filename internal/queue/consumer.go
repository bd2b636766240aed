package queue

import (
	"context"
	"log/slog"
	"time"
)

// Consumer polls one queue and hands each message to a handler. Delivery is
// at least once: redrive can replay an already-applied message, so handlers
// must be idempotent per resource identity. Outcomes the Benign predicate
// accepts (duplicate-delivery conflicts) complete the message instead of
// burning an attempt.
type Consumer struct {
	Store        *Store
	Queue        string
	Handler      func(ctx context.Context, msg Message) error
	Benign       func(err error) bool
	Logger       *slog.Logger
	PollInterval time.Duration
	MaxAttempts  int

	// DeadLettered is invoked when a message exhausts its attempts.
	DeadLettered func(queue string)
}

// Run polls until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	for {
		processed, err := c.processOne(ctx, maxAttempts)
		if err != nil {
			c.Logger.Error("consumer iteration failed", "queue", c.Queue, "error", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Consumer) processOne(ctx context.Context, maxAttempts int) (bool, error) {
	msg, err := c.Store.Receive(ctx, c.Queue)
	if err != nil || msg == nil {
		return false, err
	}

	handleErr := c.Handler(ctx, *msg)
	if handleErr == nil {
		return true, c.Store.Complete(ctx, msg.ID)
	}
	if c.Benign != nil && c.Benign(handleErr) {
		c.Logger.Info("benign conflict, completing message",
			"queue", c.Queue, "id", msg.ID, "resource", msg.ResourceID)
		return true, c.Store.Complete(ctx, msg.ID)
	}

	dead, err := c.Store.Fail(ctx, msg.ID, handleErr.Error(), maxAttempts)
	if err != nil {
		return true, err
	}
	if dead {
		c.Logger.Error("message dead-lettered",
			"queue", c.Queue, "id", msg.ID, "resource", msg.ResourceID, "error", handleErr)
		if c.DeadLettered != nil {
			c.DeadLettered(c.Queue)
		}
	} else {
		c.Logger.Warn("message processing failed, will retry",
			"queue", c.Queue, "id", msg.ID, "attempts", msg.Attempts+1, "error", handleErr)
	}
	return true, nil
}
