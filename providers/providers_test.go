package providers

import (
	"context"
	"sync"

	"github.com/jarvisapp/jarvis-sync/models"
)

// fakeMirror is an in-memory MirrorRepository for adapter tests.
type fakeMirror struct {
	mu       sync.Mutex
	events   map[string]*models.CalendarEvent
	channels map[string]*models.SlackChannel
	dbs      map[string]*models.NotionDatabase
	orders   map[string]*models.FoodOrder
	rides    map[string]*models.RideBooking
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{
		events:   make(map[string]*models.CalendarEvent),
		channels: make(map[string]*models.SlackChannel),
		dbs:      make(map[string]*models.NotionDatabase),
		orders:   make(map[string]*models.FoodOrder),
		rides:    make(map[string]*models.RideBooking),
	}
}

func (m *fakeMirror) UpsertCalendarEvent(_ context.Context, event *models.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *event
	m.events[event.UserID+"|"+event.ExternalEventID] = &clone

	return nil
}

func (m *fakeMirror) DeleteCalendarEvent(_ context.Context, userID, externalEventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.events, userID+"|"+externalEventID)

	return nil
}

func (m *fakeMirror) ListCalendarEvents(_ context.Context, userID string) ([]models.CalendarEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ans []models.CalendarEvent

	for _, event := range m.events {
		if event.UserID == userID {
			ans = append(ans, *event)
		}
	}

	return ans, nil
}

func (m *fakeMirror) UpsertSlackChannel(_ context.Context, channel *models.SlackChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *channel
	m.channels[channel.UserID+"|"+channel.WorkspaceID+"|"+channel.ChannelID] = &clone

	return nil
}

func (m *fakeMirror) ListSlackChannels(_ context.Context, userID string) ([]models.SlackChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ans []models.SlackChannel

	for _, channel := range m.channels {
		if channel.UserID == userID {
			ans = append(ans, *channel)
		}
	}

	return ans, nil
}

func (m *fakeMirror) UpsertNotionDatabase(_ context.Context, db *models.NotionDatabase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *db
	m.dbs[db.UserID+"|"+db.DatabaseID] = &clone

	return nil
}

func (m *fakeMirror) ListNotionDatabases(_ context.Context, userID string) ([]models.NotionDatabase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ans []models.NotionDatabase

	for _, db := range m.dbs {
		if db.UserID == userID {
			ans = append(ans, *db)
		}
	}

	return ans, nil
}

func (m *fakeMirror) UpsertFoodOrder(_ context.Context, order *models.FoodOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *order
	m.orders[order.UserID+"|"+order.ExternalID] = &clone

	return nil
}

func (m *fakeMirror) ListFoodOrders(_ context.Context, userID string) ([]models.FoodOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ans []models.FoodOrder

	for _, order := range m.orders {
		if order.UserID == userID {
			ans = append(ans, *order)
		}
	}

	return ans, nil
}

func (m *fakeMirror) UpsertRideBooking(_ context.Context, booking *models.RideBooking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *booking
	m.rides[booking.UserID+"|"+booking.ExternalID] = &clone

	return nil
}

func (m *fakeMirror) ListRideBookings(_ context.Context, userID string) ([]models.RideBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ans []models.RideBooking

	for _, booking := range m.rides {
		if booking.UserID == userID {
			ans = append(ans, *booking)
		}
	}

	return ans, nil
}
