package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jarvisapp/jarvis-sync/models"
)

func (s *Store) Get(ctx context.Context, userID string, provider models.Provider) (*models.UserIntegration, error) {
	const q = `
		SELECT id, user_id, provider, access_token, refresh_token, token_expires_at,
		       sync_token, last_synced_at, metadata, created_at, updated_at
		FROM user_integrations
		WHERE user_id = ? AND provider = ?`

	row := s.db.QueryRowContext(ctx, q, userID, string(provider))

	integration, err := rowToIntegration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrIntegrationMissing
		}

		return nil, err
	}

	return integration, nil
}

func (s *Store) List(ctx context.Context, userID string) ([]models.UserIntegration, error) {
	const q = `
		SELECT id, user_id, provider, access_token, refresh_token, token_expires_at,
		       sync_token, last_synced_at, metadata, created_at, updated_at
		FROM user_integrations
		WHERE user_id = ?
		ORDER BY provider`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.UserIntegration

	for rows.Next() {
		integration, err := rowToIntegration(rows)
		if err != nil {
			return nil, err
		}

		ans = append(ans, *integration)
	}

	return ans, rows.Err()
}

func (s *Store) Save(ctx context.Context, integration *models.UserIntegration) error {
	if integration.ID == "" {
		integration.ID = uuid.New().String()
	}

	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(integration.Metadata)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO user_integrations
			(id, user_id, provider, access_token, refresh_token, token_expires_at,
			 sync_token, last_synced_at, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, q,
		integration.ID,
		integration.UserID,
		string(integration.Provider),
		integration.AccessToken,
		integration.RefreshToken,
		nullableNanos(integration.TokenExpiresAt),
		integration.SyncToken,
		nullableNanos(integration.LastSyncedAt),
		string(metadata),
		nanos(integration.CreatedAt),
		nanos(time.Now()),
	)

	return err
}

func (s *Store) UpdateToken(ctx context.Context, userID string, provider models.Provider, accessToken []byte, expiresAt time.Time) error {
	const q = `
		UPDATE user_integrations
		SET access_token = ?, token_expires_at = ?, updated_at = ?
		WHERE user_id = ? AND provider = ?`

	res, err := s.db.ExecContext(ctx, q, accessToken, nanos(expiresAt), nanos(time.Now()), userID, string(provider))
	if err != nil {
		return err
	}

	return requireRow(res)
}

func (s *Store) UpdateSyncToken(ctx context.Context, userID string, provider models.Provider, syncToken string, syncedAt time.Time) error {
	const q = `
		UPDATE user_integrations
		SET sync_token = ?, last_synced_at = ?, updated_at = ?
		WHERE user_id = ? AND provider = ?`

	res, err := s.db.ExecContext(ctx, q, syncToken, nanos(syncedAt), nanos(time.Now()), userID, string(provider))
	if err != nil {
		return err
	}

	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, userID string, provider models.Provider) error {
	const q = `DELETE FROM user_integrations WHERE user_id = ? AND provider = ?`

	_, err := s.db.ExecContext(ctx, q, userID, string(provider))

	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return models.ErrIntegrationMissing
	}

	return nil
}

func rowToIntegration(row scannable) (*models.UserIntegration, error) {
	var (
		i            models.UserIntegration
		provider     string
		expiresAt    sql.NullInt64
		lastSyncedAt sql.NullInt64
		metadata     string
		createdAt    int64
		updatedAt    int64
	)

	err := row.Scan(&i.ID, &i.UserID, &provider, &i.AccessToken, &i.RefreshToken,
		&expiresAt, &i.SyncToken, &lastSyncedAt, &metadata, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	i.Provider = models.Provider(provider)
	i.TokenExpiresAt = fromNullableNanos(expiresAt)
	i.LastSyncedAt = fromNullableNanos(lastSyncedAt)
	i.CreatedAt = fromNanos(createdAt)
	i.UpdatedAt = fromNanos(updatedAt)

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &i.Metadata); err != nil {
			return nil, err
		}
	}

	return &i, nil
}
