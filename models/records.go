package models

import (
	"context"
	"time"
)

// CalendarEvent mirrors a provider calendar event. The provider is the
// system of record; local rows are a cache keyed by
// (user_id, external_event_id).
type CalendarEvent struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ExternalEventID string    `json:"external_event_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Location        string    `json:"location,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SlackChannel mirrors a Slack conversation, keyed by
// (user_id, workspace_id, channel_id).
type SlackChannel struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	WorkspaceID string    `json:"workspace_id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	IsPrivate   bool      `json:"is_private"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NotionDatabase mirrors a Notion database, keyed by
// (user_id, database_id).
type NotionDatabase struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DatabaseID string    `json:"database_id"`
	Title      string    `json:"title"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FoodOrder is a placed food-delivery order, keyed by
// (user_id, external_id).
type FoodOrder struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ExternalID   string    `json:"external_id"`
	ProviderName string    `json:"provider_name"`
	RestaurantID string    `json:"restaurant_id"`
	Status       string    `json:"status"`
	TotalAmount  float64   `json:"total_amount"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RideBooking is a booked ride, keyed by (user_id, external_id).
type RideBooking struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ExternalID   string    `json:"external_id"`
	ProviderName string    `json:"provider_name"`
	Pickup       string    `json:"pickup"`
	Dropoff      string    `json:"dropoff"`
	Status       string    `json:"status"`
	Fare         float64   `json:"fare"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MirrorRepository is the write-through cache for provider records.
// Every upsert is idempotent on the record's unique key.
type MirrorRepository interface {
	UpsertCalendarEvent(ctx context.Context, event *CalendarEvent) error
	DeleteCalendarEvent(ctx context.Context, userID, externalEventID string) error
	ListCalendarEvents(ctx context.Context, userID string) ([]CalendarEvent, error)

	UpsertSlackChannel(ctx context.Context, channel *SlackChannel) error
	ListSlackChannels(ctx context.Context, userID string) ([]SlackChannel, error)

	UpsertNotionDatabase(ctx context.Context, db *NotionDatabase) error
	ListNotionDatabases(ctx context.Context, userID string) ([]NotionDatabase, error)

	UpsertFoodOrder(ctx context.Context, order *FoodOrder) error
	ListFoodOrders(ctx context.Context, userID string) ([]FoodOrder, error)

	UpsertRideBooking(ctx context.Context, booking *RideBooking) error
	ListRideBookings(ctx context.Context, userID string) ([]RideBooking, error)
}
