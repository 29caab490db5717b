package queue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
	"github.com/jarvisapp/jarvis-sync/sqlite"
)

func intPtr(n int) *int { return &n }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "queue_test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestAddTaskDefaults(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	task, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderSlack,
		Operation:       models.OpSendMessage,
		Payload:         json.RawMessage(`{"channel":"C1","text":"hi"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.DefaultTaskPriority, task.Priority)
	assert.Equal(t, 0, task.Attempts)
	assert.False(t, task.ScheduledAt.IsZero())

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, stored.Status)
}

func TestAddTaskExplicitZeroPriority(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	task, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderSlack,
		Operation:       models.OpSendMessage,
		Payload:         json.RawMessage(`{"channel":"C1","text":"page me"}`),
		Priority:        intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, task.Priority)

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Priority)
}

func TestAddTaskValidation(t *testing.T) {
	svc := NewService(newTestStore(t), zap.NewNop())

	cases := []struct {
		name  string
		req   *AddTaskRequest
		field string
	}{
		{
			name:  "missing user",
			req:   &AddTaskRequest{IntegrationType: models.ProviderSlack, Operation: models.OpSendMessage},
			field: "user_id",
		},
		{
			name:  "unknown provider",
			req:   &AddTaskRequest{UserID: "u", IntegrationType: "carrier_pigeon", Operation: models.OpSendMessage},
			field: "integration_type",
		},
		{
			name:  "unsupported operation",
			req:   &AddTaskRequest{UserID: "u", IntegrationType: models.ProviderSlack, Operation: models.OpCreateEvent},
			field: "operation",
		},
		{
			name: "missing payload",
			req: &AddTaskRequest{
				UserID:          "u",
				IntegrationType: models.ProviderSlack,
				Operation:       models.OpSendMessage,
			},
			field: "payload",
		},
		{
			name: "bad payload",
			req: &AddTaskRequest{
				UserID:          "u",
				IntegrationType: models.ProviderSlack,
				Operation:       models.OpSendMessage,
				Payload:         json.RawMessage(`{not json`),
			},
			field: "payload",
		},
		{
			name: "negative priority",
			req: &AddTaskRequest{
				UserID:          "u",
				IntegrationType: models.ProviderSlack,
				Operation:       models.OpSendMessage,
				Payload:         json.RawMessage(`{"channel":"C1","text":"hi"}`),
				Priority:        intPtr(-1),
			},
			field: "priority",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddTask(context.Background(), tc.req)

			var vErr *models.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func testRegistry(handler Handler) Registry {
	r := make(Registry)

	for provider, ops := range supportedOps {
		for op := range ops {
			r.Register(provider, op, handler)
		}
	}

	return r
}

func TestProcessPendingCompletesTask(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	task, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderGoogleCalendar,
		Operation:       models.OpSyncCalendar,
		Payload:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	called := 0
	registry := testRegistry(func(context.Context, *models.SyncTask) error {
		called++

		return nil
	})

	processor := NewProcessor(store, registry, zap.NewNop())

	result, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Claimed)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 1, called)

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestCompletedTaskNeverReprocessed(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	_, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderGoogleCalendar,
		Operation:       models.OpSyncCalendar,
		Payload:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	registry := testRegistry(func(context.Context, *models.SyncTask) error { return nil })
	processor := NewProcessor(store, registry, zap.NewNop())

	first, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Claimed)

	second, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Claimed)
}

func TestAbandonedProcessingTaskIsRequeued(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	task, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderGoogleCalendar,
		Operation:       models.OpSyncCalendar,
		Payload:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	// Claim the task and walk away, as a worker that died mid-batch
	// would.
	claimed, err := store.Claim(context.Background(), "user-1", 10, time.Now())
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	registry := testRegistry(func(context.Context, *models.SyncTask) error { return nil })

	// A prompt run leaves the fresh claim alone.
	fresh := NewProcessor(store, registry, zap.NewNop())
	result, err := fresh.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Claimed)

	// Past the stale threshold the task is reclaimed and finished.
	later := NewProcessor(store, registry, zap.NewNop(),
		WithClock(func() time.Time { return time.Now().Add(time.Hour) }))

	result, err = later.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Claimed)
	assert.Equal(t, 1, result.Completed)

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)
}

func TestFailedTaskRescheduledWithDelay(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	task, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderGoogleCalendar,
		Operation:       models.OpSyncCalendar,
		Payload:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	now := time.Now()
	registry := testRegistry(func(context.Context, *models.SyncTask) error {
		return errors.New("provider unavailable")
	})

	processor := NewProcessor(store, registry, zap.NewNop(),
		WithClock(func() time.Time { return now }))

	result, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rescheduled)

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "provider unavailable", stored.Error)
	assert.WithinDuration(t, now.Add(5*time.Minute), stored.ScheduledAt, time.Second)

	// Not eligible again until the backoff has elapsed.
	again, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Claimed)
}

func TestTaskFailsPermanentlyAfterMaxAttempts(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	task, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderGoogleCalendar,
		Operation:       models.OpSyncCalendar,
		Payload:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	now := time.Now()
	registry := testRegistry(func(context.Context, *models.SyncTask) error {
		return errors.New("still broken")
	})

	processor := NewProcessor(store, registry, zap.NewNop(),
		WithClock(func() time.Time { return now }))

	for i := 0; i < DefaultMaxAttempts; i++ {
		result, err := processor.ProcessPending(context.Background(), "user-1")
		require.NoError(t, err)
		require.Equal(t, 1, result.Claimed)

		// Jump past the retry delay.
		now = now.Add(10 * time.Minute)
	}

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, stored.Status)
	assert.Equal(t, DefaultMaxAttempts, stored.Attempts)
	assert.Equal(t, "still broken", stored.Error)

	// Terminal: never claimed again.
	result, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Claimed)
}

func TestUnsupportedOperationFailsImmediately(t *testing.T) {
	store := newTestStore(t)

	// Bypass AddTask validation to simulate a row written by an older
	// release.
	task := &models.SyncTask{
		UserID:          "user-1",
		IntegrationType: models.ProviderSlack,
		Operation:       "teleport",
		Priority:        models.DefaultTaskPriority,
		Status:          models.TaskStatusPending,
		ScheduledAt:     time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), task))

	registry := testRegistry(func(context.Context, *models.SyncTask) error { return nil })
	processor := NewProcessor(store, registry, zap.NewNop())

	result, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, stored.Status)
	assert.Equal(t, "unsupported operation", stored.Error)
}

func TestValidationErrorIsTerminal(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	task, err := svc.AddTask(context.Background(), &AddTaskRequest{
		UserID:          "user-1",
		IntegrationType: models.ProviderSlack,
		Operation:       models.OpSendMessage,
		Payload:         json.RawMessage(`{"text":"no channel"}`),
	})
	require.NoError(t, err)

	registry := testRegistry(func(context.Context, *models.SyncTask) error {
		return &models.ValidationError{Field: "channel", Message: "is required"}
	})

	processor := NewProcessor(store, registry, zap.NewNop())

	result, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Rescheduled)

	stored, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
}

func TestBatchRunsInPriorityOrder(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, zap.NewNop())

	for _, priority := range []int{9, 1, 5} {
		_, err := svc.AddTask(context.Background(), &AddTaskRequest{
			UserID:          "user-1",
			IntegrationType: models.ProviderGoogleCalendar,
			Operation:       models.OpSyncCalendar,
			Payload:         json.RawMessage(`{}`),
			Priority:        intPtr(priority),
		})
		require.NoError(t, err)
	}

	var order []int

	registry := testRegistry(func(_ context.Context, task *models.SyncTask) error {
		order = append(order, task.Priority)

		return nil
	})

	processor := NewProcessor(store, registry, zap.NewNop())

	result, err := processor.ProcessPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Claimed)
	assert.Equal(t, []int{1, 5, 9}, order)
}

func TestRetryPolicies(t *testing.T) {
	t.Run("fixed delay defaults", func(t *testing.T) {
		assert.Equal(t, 5*time.Minute, FixedDelay{}.NextDelay(1))
		assert.Equal(t, time.Minute, FixedDelay{Delay: time.Minute}.NextDelay(3))
	})

	t.Run("exponential growth and cap", func(t *testing.T) {
		policy := ExponentialBackoff{Base: time.Minute, Max: 10 * time.Minute}

		assert.Equal(t, time.Minute, policy.NextDelay(1))
		assert.Equal(t, 2*time.Minute, policy.NextDelay(2))
		assert.Equal(t, 4*time.Minute, policy.NextDelay(3))
		assert.Equal(t, 10*time.Minute, policy.NextDelay(6))
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		policy := ExponentialBackoff{Base: time.Minute, Max: time.Hour, Jitter: 0.5}

		for i := 0; i < 20; i++ {
			delay := policy.NextDelay(2)
			assert.GreaterOrEqual(t, delay, 2*time.Minute)
			assert.LessOrEqual(t, delay, 3*time.Minute)
		}
	})
}
