// Package queue accepts sync tasks into the durable queue and works
// them off with bounded retries. Tasks survive restarts; everything a
// task needs lives in its database row.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

// supportedOps is the closed set of operations each provider accepts.
// A task outside this set is rejected at enqueue time and, as a second
// line of defense, failed permanently by the processor.
var supportedOps = map[models.Provider]map[models.Operation]bool{
	models.ProviderGoogleCalendar: {
		models.OpCreateEvent:  true,
		models.OpUpdateEvent:  true,
		models.OpDeleteEvent:  true,
		models.OpSyncCalendar: true,
	},
	models.ProviderSlack: {
		models.OpSendMessage:    true,
		models.OpCreateReminder: true,
		models.OpSyncChannels:   true,
	},
	models.ProviderNotion: {
		models.OpCreatePage:    true,
		models.OpUpdatePage:    true,
		models.OpSyncDatabases: true,
	},
	models.ProviderFoodDelivery: {
		models.OpPlaceOrder: true,
	},
	models.ProviderRideBooking: {
		models.OpBookRide:   true,
		models.OpCancelRide: true,
	},
}

// Supported reports whether the provider accepts the operation.
func Supported(provider models.Provider, op models.Operation) bool {
	return supportedOps[provider][op]
}

// Service enqueues sync tasks.
type Service struct {
	tasks  models.TaskRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(tasks models.TaskRepository, logger *zap.Logger) *Service {
	return &Service{
		tasks:  tasks,
		logger: logger,
		now:    time.Now,
	}
}

// AddTaskRequest describes a task to enqueue.
type AddTaskRequest struct {
	UserID          string          `json:"user_id"`
	IntegrationType models.Provider `json:"integration_type"`
	// Operation must be one of the provider's supported operations.
	// Payload is always required; operations that take no parameters
	// enqueue an empty object.
	Operation models.Operation `json:"operation"`
	Payload   json.RawMessage  `json:"payload"`
	// Priority orders dispatch, lower first. An explicit 0 is the most
	// urgent tier; omitted means the default.
	Priority *int `json:"priority,omitempty"`
	// ScheduledAt defers the task. Zero means eligible immediately.
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

func (r *AddTaskRequest) validate() error {
	if r.UserID == "" {
		return &models.ValidationError{Field: "user_id", Message: "is required"}
	}

	if !r.IntegrationType.Valid() {
		return &models.ValidationError{Field: "integration_type", Message: "unknown provider " + string(r.IntegrationType)}
	}

	if !Supported(r.IntegrationType, r.Operation) {
		return &models.ValidationError{
			Field:   "operation",
			Message: string(r.Operation) + " is not supported by " + string(r.IntegrationType),
		}
	}

	if len(r.Payload) == 0 {
		return &models.ValidationError{Field: "payload", Message: "is required"}
	}

	if !json.Valid(r.Payload) {
		return &models.ValidationError{Field: "payload", Message: "must be valid JSON"}
	}

	if r.Priority != nil && *r.Priority < 0 {
		return &models.ValidationError{Field: "priority", Message: "must not be negative"}
	}

	return nil
}

// AddTask validates and persists a pending task. The task is picked up
// by the next processing run once its scheduled_at has passed.
func (s *Service) AddTask(ctx context.Context, req *AddTaskRequest) (*models.SyncTask, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	priority := models.DefaultTaskPriority
	if req.Priority != nil {
		priority = *req.Priority
	}

	scheduledAt := req.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = s.now()
	}

	task := &models.SyncTask{
		UserID:          req.UserID,
		IntegrationType: req.IntegrationType,
		Operation:       req.Operation,
		Payload:         req.Payload,
		Priority:        priority,
		Status:          models.TaskStatusPending,
		ScheduledAt:     scheduledAt,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("task enqueued",
		zap.String("task_id", task.ID),
		zap.String("user_id", task.UserID),
		zap.String("provider", string(task.IntegrationType)),
		zap.String("operation", string(task.Operation)),
		zap.Int("priority", task.Priority))

	return task, nil
}
