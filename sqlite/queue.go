package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jarvisapp/jarvis-sync/models"
)

const taskColumns = `id, user_id, integration_type, operation, payload, priority,
	status, attempts, error, scheduled_at, completed_at, created_at, updated_at`

func (s *Store) Create(ctx context.Context, task *models.SyncTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	const q = `
		INSERT INTO sync_queue
			(id, user_id, integration_type, operation, payload, priority,
			 status, attempts, error, scheduled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		task.ID,
		task.UserID,
		string(task.IntegrationType),
		string(task.Operation),
		string(task.Payload),
		task.Priority,
		string(task.Status),
		task.Attempts,
		task.Error,
		nanos(task.ScheduledAt),
		nanos(task.CreatedAt),
		nanos(task.UpdatedAt),
	)

	return err
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.SyncTask, error) {
	q := `SELECT ` + taskColumns + ` FROM sync_queue WHERE id = ?`

	task, err := rowToTask(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}

		return nil, err
	}

	return task, nil
}

// Claim selects eligible pending tasks and transitions each to
// processing with a conditional update, so a task can only ever be
// handed to one caller even when two processors overlap.
func (s *Store) Claim(ctx context.Context, userID string, limit int, now time.Time) ([]models.SyncTask, error) {
	q := `SELECT id FROM sync_queue WHERE status = ? AND scheduled_at <= ?`
	args := []any{string(models.TaskStatusPending), nanos(now)}

	if userID != "" {
		q += ` AND user_id = ?`
		args = append(args, userID)
	}

	q += ` ORDER BY priority ASC, created_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	var candidates []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()

			return nil, err
		}

		candidates = append(candidates, id)
	}

	if err := rows.Err(); err != nil {
		rows.Close()

		return nil, err
	}

	rows.Close()

	const claim = `
		UPDATE sync_queue SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	var claimed []models.SyncTask

	for _, id := range candidates {
		res, err := s.db.ExecContext(ctx, claim,
			string(models.TaskStatusProcessing), nanos(now), id, string(models.TaskStatusPending))
		if err != nil {
			return claimed, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return claimed, err
		}

		if n == 0 {
			continue // another processor got there first
		}

		task, err := s.GetTask(ctx, id)
		if err != nil {
			return claimed, err
		}

		claimed = append(claimed, *task)
	}

	return claimed, nil
}

func (s *Store) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	const q = `
		UPDATE sync_queue
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`

	_, err := s.db.ExecContext(ctx, q,
		string(models.TaskStatusCompleted), nanos(completedAt), nanos(time.Now()), id)

	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, attempts int, errMsg string) error {
	const q = `
		UPDATE sync_queue
		SET status = ?, attempts = ?, error = ?, updated_at = ?
		WHERE id = ?`

	_, err := s.db.ExecContext(ctx, q,
		string(models.TaskStatusFailed), attempts, errMsg, nanos(time.Now()), id)

	return err
}

func (s *Store) Reschedule(ctx context.Context, id string, attempts int, errMsg string, scheduledAt time.Time) error {
	const q = `
		UPDATE sync_queue
		SET status = ?, attempts = ?, error = ?, scheduled_at = ?, updated_at = ?
		WHERE id = ?`

	_, err := s.db.ExecContext(ctx, q,
		string(models.TaskStatusPending), attempts, errMsg, nanos(scheduledAt), nanos(time.Now()), id)

	return err
}

func (s *Store) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `
		UPDATE sync_queue
		SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at <= ?`

	res, err := s.db.ExecContext(ctx, q,
		string(models.TaskStatusPending), nanos(time.Now()),
		string(models.TaskStatusProcessing), nanos(cutoff))
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()

	return int(n), err
}

func rowToTask(row scannable) (*models.SyncTask, error) {
	var (
		t               models.SyncTask
		integrationType string
		operation       string
		payload         string
		status          string
		scheduledAt     int64
		completedAt     sql.NullInt64
		createdAt       int64
		updatedAt       int64
	)

	err := row.Scan(&t.ID, &t.UserID, &integrationType, &operation, &payload,
		&t.Priority, &status, &t.Attempts, &t.Error, &scheduledAt, &completedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.IntegrationType = models.Provider(integrationType)
	t.Operation = models.Operation(operation)
	t.Payload = []byte(payload)
	t.Status = models.TaskStatus(status)
	t.ScheduledAt = fromNanos(scheduledAt)
	t.CompletedAt = fromNullableNanos(completedAt)
	t.CreatedAt = fromNanos(createdAt)
	t.UpdatedAt = fromNanos(updatedAt)

	return &t, nil
}
