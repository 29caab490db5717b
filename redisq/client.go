package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues wake-up signals for the workers.
type Client struct {
	client *asynq.Client
	rdb    *redis.Client
}

func NewClient(cfg *Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		rdb: rdb,
	}, nil
}

// EnqueueProcessQueue signals a worker to run one processing pass.
func (c *Client) EnqueueProcessQueue(ctx context.Context, userID string, opts ...asynq.Option) error {
	task := asynq.NewTask(TypeProcessQueue, marshalPayload(userID))

	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// EnqueueSyncAll signals a worker to reconcile all of a user's
// integrations. Deduplicated per user for a short window so button
// mashing does not pile up identical jobs.
func (c *Client) EnqueueSyncAll(ctx context.Context, userID string, opts ...asynq.Option) error {
	task := asynq.NewTask(TypeSyncAll, marshalPayload(userID))

	opts = append([]asynq.Option{asynq.Unique(30 * time.Second)}, opts...)

	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// IsHealthy reports whether Redis answers a ping.
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		_ = c.rdb.Close()

		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return c.rdb.Close()
}
