// Package redisq distributes queue processing across workers. The
// durable queue itself lives in the database; Redis only carries the
// wake-up signals telling a worker to run a processing pass or a full
// reconciliation for a user.
package redisq

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// TypeProcessQueue asks a worker to claim and run a batch of
	// pending tasks. An empty user id processes across all users.
	TypeProcessQueue = "sync:process_queue"

	// TypeSyncAll asks a worker to reconcile every integration of one
	// user.
	TypeSyncAll = "sync:all"
)

// Config holds Redis connection and worker parameters.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Workers is the asynq handler concurrency.
	Workers int

	// ProcessInterval is how often the scheduler enqueues a
	// process-queue pass.
	ProcessInterval time.Duration
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) workers() int {
	if c.Workers <= 0 {
		return 5
	}

	return c.Workers
}

func (c *Config) processInterval() time.Duration {
	if c.ProcessInterval <= 0 {
		return time.Minute
	}

	return c.ProcessInterval
}

// payload is the body of both task types.
type payload struct {
	UserID string `json:"user_id,omitempty"`
}

func marshalPayload(userID string) []byte {
	b, _ := json.Marshal(payload{UserID: userID})

	return b
}
