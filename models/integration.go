package models

import (
	"context"
	"time"
)

// Provider identifies an external service a user can connect.
type Provider string

const (
	ProviderGoogleCalendar Provider = "google_calendar"
	ProviderSlack          Provider = "slack"
	ProviderNotion         Provider = "notion"
	ProviderFoodDelivery   Provider = "food_delivery"
	ProviderRideBooking    Provider = "ride_booking"
)

// Providers lists every known provider, in display order.
func Providers() []Provider {
	return []Provider{
		ProviderGoogleCalendar,
		ProviderSlack,
		ProviderNotion,
		ProviderFoodDelivery,
		ProviderRideBooking,
	}
}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogleCalendar, ProviderSlack, ProviderNotion,
		ProviderFoodDelivery, ProviderRideBooking:
		return true
	}

	return false
}

// UserIntegration represents an external service integration for a user.
// At most one row exists per (user_id, provider).
type UserIntegration struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Provider       Provider       `json:"provider"`
	AccessToken    []byte         `json:"-"` // Stored encrypted
	RefreshToken   []byte         `json:"-"` // Stored encrypted
	TokenExpiresAt *time.Time     `json:"token_expires_at,omitempty"`
	SyncToken      string         `json:"-"`
	LastSyncedAt   *time.Time     `json:"last_synced_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IntegrationRepository manages user integration rows.
type IntegrationRepository interface {
	Get(ctx context.Context, userID string, provider Provider) (*UserIntegration, error)
	List(ctx context.Context, userID string) ([]UserIntegration, error)
	Save(ctx context.Context, integration *UserIntegration) error
	// UpdateToken persists a refreshed access token and its expiry.
	UpdateToken(ctx context.Context, userID string, provider Provider, accessToken []byte, expiresAt time.Time) error
	// UpdateSyncToken persists the provider's incremental sync cursor.
	// An empty token clears the stored cursor.
	UpdateSyncToken(ctx context.Context, userID string, provider Provider, syncToken string, syncedAt time.Time) error
	Delete(ctx context.Context, userID string, provider Provider) error
}
