// Package token resolves a usable access token for a (user, provider)
// pair, transparently refreshing expired OAuth tokens and persisting
// the result.
package token

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/jarvisapp/jarvis-sync/models"
	"github.com/jarvisapp/jarvis-sync/pkg/encryption"
)

// Token is a decrypted, ready-to-use credential pair.
type Token struct {
	AccessToken  string
	RefreshToken string
}

// Store wraps the integration repository with decryption and refresh.
type Store struct {
	repo    models.IntegrationRepository
	codec   *encryption.Codec
	configs map[models.Provider]*oauth2.Config
	logger  *zap.Logger
	group   singleflight.Group
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Tests use this to simulate
// token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a token store. configs maps each provider that supports
// the refresh-token grant to its OAuth client configuration; providers
// without an entry never refresh and always return the stored token.
func New(repo models.IntegrationRepository, codec *encryption.Codec, configs map[models.Provider]*oauth2.Config, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		repo:    repo,
		codec:   codec,
		configs: configs,
		logger:  logger,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetValidToken returns a decrypted access token for the pair,
// refreshing it first when it has expired and a refresh token is
// available. Exactly one write to the integration row happens per
// refresh; callers never see a half-refreshed state. Returns
// models.ErrIntegrationMissing when the provider is not connected and
// *models.TokenRefreshError when the refresh handshake fails (the
// stored token is left untouched in that case).
func (s *Store) GetValidToken(ctx context.Context, userID string, provider models.Provider) (*Token, error) {
	integration, err := s.repo.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	tok, err := s.decrypt(integration)
	if err != nil {
		return nil, err
	}

	if !s.expired(integration) {
		return tok, nil
	}

	cfg, ok := s.configs[provider]
	if !ok || tok.RefreshToken == "" {
		// Nothing we can do; hand back the stored token and let the
		// provider call fail if it is truly dead.
		return tok, nil
	}

	// Concurrent callers for the same pair share one refresh.
	key := userID + "|" + string(provider)

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.refresh(ctx, userID, provider, cfg, tok)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Token), nil
}

func (s *Store) expired(integration *models.UserIntegration) bool {
	return integration.TokenExpiresAt != nil && s.now().After(*integration.TokenExpiresAt)
}

func (s *Store) refresh(ctx context.Context, userID string, provider models.Provider, cfg *oauth2.Config, stale *Token) (*Token, error) {
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: stale.RefreshToken})

	fresh, err := src.Token()
	if err != nil {
		return nil, &models.TokenRefreshError{Provider: provider, Err: err}
	}

	encrypted, err := s.codec.Encrypt(fresh.AccessToken)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateToken(ctx, userID, provider, []byte(encrypted), fresh.Expiry); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	s.logger.Info("refreshed access token",
		zap.String("user_id", userID),
		zap.String("provider", string(provider)),
		zap.Time("expires_at", fresh.Expiry))

	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		refreshToken = stale.RefreshToken
	}

	return &Token{AccessToken: fresh.AccessToken, RefreshToken: refreshToken}, nil
}

func (s *Store) decrypt(integration *models.UserIntegration) (*Token, error) {
	tok := &Token{}

	if len(integration.AccessToken) > 0 {
		accessToken, err := s.codec.Decrypt(string(integration.AccessToken))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}

		tok.AccessToken = accessToken
	}

	if len(integration.RefreshToken) > 0 {
		refreshToken, err := s.codec.Decrypt(string(integration.RefreshToken))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}

		tok.RefreshToken = refreshToken
	}

	return tok, nil
}
