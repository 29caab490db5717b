package models

import (
	"context"
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of a queued sync task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Operation names a provider action a task requests.
type Operation string

const (
	OpCreateEvent    Operation = "create_event"
	OpUpdateEvent    Operation = "update_event"
	OpDeleteEvent    Operation = "delete_event"
	OpSyncCalendar   Operation = "sync_calendar"
	OpSendMessage    Operation = "send_message"
	OpCreateReminder Operation = "create_reminder"
	OpSyncChannels   Operation = "sync_channels"
	OpCreatePage     Operation = "create_page"
	OpUpdatePage     Operation = "update_page"
	OpSyncDatabases  Operation = "sync_databases"
	OpPlaceOrder     Operation = "place_order"
	OpBookRide       Operation = "book_ride"
	OpCancelRide     Operation = "cancel_ride"
)

// DefaultTaskPriority is used when the caller does not specify one.
// Lower values are more urgent.
const DefaultTaskPriority = 5

// SyncTask is a row in the sync queue. Tasks are created by AddTask and
// mutated only by the queue processor. Rows are kept after completion
// for auditing.
type SyncTask struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	IntegrationType Provider        `json:"integration_type"`
	Operation       Operation       `json:"operation"`
	Payload         json.RawMessage `json:"payload"`
	Priority        int             `json:"priority"`
	Status          TaskStatus      `json:"status"`
	Attempts        int             `json:"attempts"`
	Error           string          `json:"error,omitempty"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TaskRepository is the storage contract for the sync queue.
type TaskRepository interface {
	Create(ctx context.Context, task *SyncTask) error
	GetTask(ctx context.Context, id string) (*SyncTask, error)
	// Claim atomically transitions up to limit eligible pending tasks
	// (scheduled_at <= now) to processing and returns them ordered by
	// priority ascending, created_at ascending. A task returned by one
	// Claim call is never returned by a concurrent one. userID may be
	// empty to claim across all users.
	Claim(ctx context.Context, userID string, limit int, now time.Time) ([]SyncTask, error)
	// MarkCompleted finalizes a successfully processed task.
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
	// MarkFailed records a permanent failure.
	MarkFailed(ctx context.Context, id string, attempts int, errMsg string) error
	// Reschedule returns a failed attempt to pending with a new
	// scheduled_at and the incremented attempt count.
	Reschedule(ctx context.Context, id string, attempts int, errMsg string, scheduledAt time.Time) error
	// RequeueStale returns processing tasks last touched before the
	// cutoff to pending. A task only stays in processing this long when
	// the worker that claimed it died mid-batch.
	RequeueStale(ctx context.Context, cutoff time.Time) (int, error)
}
