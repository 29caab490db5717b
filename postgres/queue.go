package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jarvisapp/jarvis-sync/models"
)

const taskColumns = `id, user_id, integration_type, operation, payload, priority,
	status, attempts, error, scheduled_at, completed_at, created_at, updated_at`

func (s *Store) Create(ctx context.Context, task *models.SyncTask) error {
	const q = `
		INSERT INTO sync_queue
			(user_id, integration_type, operation, payload, priority, status,
			 attempts, error, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowContext(ctx, q,
		task.UserID,
		string(task.IntegrationType),
		string(task.Operation),
		[]byte(task.Payload),
		task.Priority,
		string(task.Status),
		task.Attempts,
		task.Error,
		task.ScheduledAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (s *Store) GetTask(ctx context.Context, id string) (*models.SyncTask, error) {
	q := `SELECT ` + taskColumns + ` FROM sync_queue WHERE id = $1`

	task, err := rowToTask(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}

		return nil, err
	}

	return task, nil
}

// Claim marks eligible pending tasks as processing and returns them in
// one statement. FOR UPDATE SKIP LOCKED plus the status guard gives
// compare-and-swap semantics per task, so two overlapping processor
// runs never pick the same row.
func (s *Store) Claim(ctx context.Context, userID string, limit int, now time.Time) ([]models.SyncTask, error) {
	q := `
		UPDATE sync_queue SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM sync_queue
			WHERE status = $2 AND scheduled_at <= $3`

	args := []any{
		string(models.TaskStatusProcessing),
		string(models.TaskStatusPending),
		now,
	}

	if userID != "" {
		q += ` AND user_id = $4`
		args = append(args, userID)
	}

	q += fmt.Sprintf(`
			ORDER BY priority ASC, created_at ASC
			LIMIT $%d
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `, len(args)+1) + taskColumns

	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var claimed []models.SyncTask

	for rows.Next() {
		task, err := rowToTask(rows)
		if err != nil {
			return nil, err
		}

		claimed = append(claimed, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING does not preserve the subquery order.
	sort.SliceStable(claimed, func(i, j int) bool {
		if claimed[i].Priority != claimed[j].Priority {
			return claimed[i].Priority < claimed[j].Priority
		}

		return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
	})

	return claimed, nil
}

func (s *Store) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	const q = `
		UPDATE sync_queue
		SET status = $1, completed_at = $2, updated_at = NOW()
		WHERE id = $3`

	_, err := s.db.ExecContext(ctx, q, string(models.TaskStatusCompleted), completedAt, id)

	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, attempts int, errMsg string) error {
	const q = `
		UPDATE sync_queue
		SET status = $1, attempts = $2, error = $3, updated_at = NOW()
		WHERE id = $4`

	_, err := s.db.ExecContext(ctx, q, string(models.TaskStatusFailed), attempts, errMsg, id)

	return err
}

func (s *Store) Reschedule(ctx context.Context, id string, attempts int, errMsg string, scheduledAt time.Time) error {
	const q = `
		UPDATE sync_queue
		SET status = $1, attempts = $2, error = $3, scheduled_at = $4, updated_at = NOW()
		WHERE id = $5`

	_, err := s.db.ExecContext(ctx, q,
		string(models.TaskStatusPending), attempts, errMsg, scheduledAt, id)

	return err
}

func (s *Store) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `
		UPDATE sync_queue
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at <= $3`

	res, err := s.db.ExecContext(ctx, q,
		string(models.TaskStatusPending), string(models.TaskStatusProcessing), cutoff)
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
		payload         []byte
		status          string
		completedAt     sql.NullTime
	)

	err := row.Scan(&t.ID, &t.UserID, &integrationType, &operation, &payload,
		&t.Priority, &status, &t.Attempts, &t.Error, &t.ScheduledAt, &completedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.IntegrationType = models.Provider(integrationType)
	t.Operation = models.Operation(operation)
	t.Payload = payload
	t.Status = models.TaskStatus(status)

	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}

	return &t, nil
}
