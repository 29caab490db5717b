package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

func TestListEventsReconcilesMirror(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": "evt-1",
					"summary": "Standup",
					"status": "confirmed",
					"start": {"dateTime": "2026-09-01T09:00:00Z"},
					"end": {"dateTime": "2026-09-01T09:15:00Z"}
				},
				{
					"id": "evt-2",
					"status": "cancelled",
					"start": {"date": "2026-09-02"},
					"end": {"date": "2026-09-03"}
				}
			],
			"nextSyncToken": "sync-token-1"
		}`))
	}))
	defer srv.Close()

	mirror := newFakeMirror()

	// Seed the cancelled event so the deletion is observable.
	require.NoError(t, mirror.UpsertCalendarEvent(context.Background(), &models.CalendarEvent{
		UserID:          "user-1",
		ExternalEventID: "evt-2",
		Title:           "Old meeting",
	}))

	cal := NewCalendar(mirror, zap.NewNop())
	cal.SetBaseURL(srv.URL)

	page, err := cal.ListEvents(context.Background(), "user-1", "access-token", EventsQuery{})
	require.NoError(t, err)
	assert.Equal(t, "sync-token-1", page.NextSyncToken)
	assert.Len(t, page.Events, 2)

	events, err := mirror.ListCalendarEvents(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ExternalEventID)
	assert.Equal(t, "Standup", events[0].Title)
	assert.Equal(t, "confirmed", events[0].Status)
}

func TestListEventsSendsSyncToken(t *testing.T) {
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [], "nextSyncToken": "sync-token-2"}`))
	}))
	defer srv.Close()

	cal := NewCalendar(newFakeMirror(), zap.NewNop())
	cal.SetBaseURL(srv.URL)

	_, err := cal.ListEvents(context.Background(), "user-1", "access-token", EventsQuery{SyncToken: "sync-token-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"sync-token-1"}, gotQuery["syncToken"])
	assert.NotContains(t, gotQuery, "timeMin")
	assert.NotContains(t, gotQuery, "timeMax")
}

func TestListEventsExpiredSyncToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sync token expired", http.StatusGone)
	}))
	defer srv.Close()

	cal := NewCalendar(newFakeMirror(), zap.NewNop())
	cal.SetBaseURL(srv.URL)

	_, err := cal.ListEvents(context.Background(), "user-1", "access-token", EventsQuery{SyncToken: "stale"})
	require.Error(t, err)
	assert.True(t, models.IsSyncTokenExpired(err))

	var apiErr *models.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ProviderGoogleCalendar, apiErr.Provider)
	assert.Equal(t, http.StatusGone, apiErr.StatusCode)
}

func TestCreateEventWritesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "evt-9",
			"summary": "Lunch",
			"status": "confirmed",
			"start": {"dateTime": "2026-09-01T12:00:00Z"},
			"end": {"dateTime": "2026-09-01T13:00:00Z"}
		}`))
	}))
	defer srv.Close()

	mirror := newFakeMirror()
	cal := NewCalendar(mirror, zap.NewNop())
	cal.SetBaseURL(srv.URL)

	created, err := cal.CreateEvent(context.Background(), "user-1", "access-token", "", &Event{Summary: "Lunch"})
	require.NoError(t, err)
	assert.Equal(t, "evt-9", created.ID)

	events, err := mirror.ListCalendarEvents(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-9", events[0].ExternalEventID)
}

func TestDeleteEventRemovesMirrorRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	mirror := newFakeMirror()
	require.NoError(t, mirror.UpsertCalendarEvent(context.Background(), &models.CalendarEvent{
		UserID:          "user-1",
		ExternalEventID: "evt-1",
	}))

	cal := NewCalendar(mirror, zap.NewNop())
	cal.SetBaseURL(srv.URL)

	require.NoError(t, cal.DeleteEvent(context.Background(), "user-1", "access-token", "", "evt-1"))

	events, err := mirror.ListCalendarEvents(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, events)
}
