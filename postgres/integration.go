package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jarvisapp/jarvis-sync/models"
)

func (s *Store) Get(ctx context.Context, userID string, provider models.Provider) (*models.UserIntegration, error) {
	const q = `
		SELECT id, user_id, provider, access_token, refresh_token, token_expires_at,
		       sync_token, last_synced_at, metadata, created_at, updated_at
		FROM user_integrations
		WHERE user_id = $1 AND provider = $2`

	integration, err := rowToIntegration(s.db.QueryRowContext(ctx, q, userID, string(provider)))
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
		WHERE user_id = $1
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
	metadata, err := json.Marshal(integration.Metadata)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO user_integrations
			(user_id, provider, access_token, refresh_token, token_expires_at,
			 sync_token, last_synced_at, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id`

	return s.db.QueryRowContext(ctx, q,
		integration.UserID,
		string(integration.Provider),
		integration.AccessToken,
		integration.RefreshToken,
		nullableTime(integration.TokenExpiresAt),
		integration.SyncToken,
		nullableTime(integration.LastSyncedAt),
		metadata,
	).Scan(&integration.ID)
}

func (s *Store) UpdateToken(ctx context.Context, userID string, provider models.Provider, accessToken []byte, expiresAt time.Time) error {
	const q = `
		UPDATE user_integrations
		SET access_token = $1, token_expires_at = $2, updated_at = NOW()
		WHERE user_id = $3 AND provider = $4`

	res, err := s.db.ExecContext(ctx, q, accessToken, expiresAt, userID, string(provider))
	if err != nil {
		return err
	}

	return requireRow(res)
}

func (s *Store) UpdateSyncToken(ctx context.Context, userID string, provider models.Provider, syncToken string, syncedAt time.Time) error {
	const q = `
		UPDATE user_integrations
		SET sync_token = $1, last_synced_at = $2, updated_at = NOW()
		WHERE user_id = $3 AND provider = $4`

	res, err := s.db.ExecContext(ctx, q, syncToken, syncedAt, userID, string(provider))
	if err != nil {
		return err
	}

	return requireRow(res)
}

func (s *Store) Delete(ctx context.Context, userID string, provider models.Provider) error {
	const q = `DELETE FROM user_integrations WHERE user_id = $1 AND provider = $2`

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

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

type scannable interface {
	Scan(dest ...any) error
}

func rowToIntegration(row scannable) (*models.UserIntegration, error) {
	var (
		i            models.UserIntegration
		provider     string
		expiresAt    sql.NullTime
		lastSyncedAt sql.NullTime
		metadata     []byte
	)

	err := row.Scan(&i.ID, &i.UserID, &provider, &i.AccessToken, &i.RefreshToken,
		&expiresAt, &i.SyncToken, &lastSyncedAt, &metadata, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}

	i.Provider = models.Provider(provider)

	if expiresAt.Valid {
		t := expiresAt.Time
		i.TokenExpiresAt = &t
	}

	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		i.LastSyncedAt = &t
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &i.Metadata); err != nil {
			return nil, err
		}
	}

	return &i, nil
}
