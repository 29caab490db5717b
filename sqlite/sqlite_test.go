package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvisapp/jarvis-sync/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "jarvis.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestIntegrationSaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.UserIntegration{
		UserID:      "user-1",
		Provider:    models.ProviderSlack,
		AccessToken: []byte("enc-token-a"),
	}
	require.NoError(t, store.Save(ctx, first))

	second := &models.UserIntegration{
		UserID:      "user-1",
		Provider:    models.ProviderSlack,
		AccessToken: []byte("enc-token-b"),
	}
	require.NoError(t, store.Save(ctx, second))

	all, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []byte("enc-token-b"), all[0].AccessToken)
}

func TestIntegrationGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nobody", models.ProviderNotion)
	assert.ErrorIs(t, err, models.ErrIntegrationMissing)
}

func TestUpdateTokenMissingIntegration(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateToken(context.Background(), "nobody", models.ProviderGoogleCalendar,
		[]byte("enc"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, models.ErrIntegrationMissing)
}

func TestUpdateSyncToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.UserIntegration{
		UserID:   "user-1",
		Provider: models.ProviderGoogleCalendar,
	}))

	syncedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateSyncToken(ctx, "user-1", models.ProviderGoogleCalendar, "cursor-1", syncedAt))

	got, err := store.Get(ctx, "user-1", models.ProviderGoogleCalendar)
	require.NoError(t, err)
	assert.Equal(t, "cursor-1", got.SyncToken)
	require.NotNil(t, got.LastSyncedAt)
	assert.Equal(t, syncedAt, got.LastSyncedAt.Truncate(time.Second))

	// clearing the cursor
	require.NoError(t, store.UpdateSyncToken(ctx, "user-1", models.ProviderGoogleCalendar, "", time.Now()))

	got, err = store.Get(ctx, "user-1", models.ProviderGoogleCalendar)
	require.NoError(t, err)
	assert.Empty(t, got.SyncToken)
}

func enqueue(t *testing.T, store *Store, userID string, priority int, scheduledAt time.Time) *models.SyncTask {
	t.Helper()

	task := &models.SyncTask{
		UserID:          userID,
		IntegrationType: models.ProviderSlack,
		Operation:       models.OpSendMessage,
		Payload:         []byte(`{"channel":"C1","text":"hi"}`),
		Priority:        priority,
		Status:          models.TaskStatusPending,
		ScheduledAt:     scheduledAt,
	}
	require.NoError(t, store.Create(context.Background(), task))

	return task
}

func TestClaimOrdering(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	// Priority strictly dominates; FIFO only breaks ties.
	early := enqueue(t, store, "user-1", 9, now.Add(-time.Minute))
	mid := enqueue(t, store, "user-1", 5, now.Add(-30*time.Second))
	late := enqueue(t, store, "user-1", 1, now.Add(-time.Second))

	claimed, err := store.Claim(context.Background(), "user-1", 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 3)

	assert.Equal(t, late.ID, claimed[0].ID)
	assert.Equal(t, mid.ID, claimed[1].ID)
	assert.Equal(t, early.ID, claimed[2].ID)

	for _, task := range claimed {
		assert.Equal(t, models.TaskStatusProcessing, task.Status)
	}
}

func TestClaimSkipsFutureTasks(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	enqueue(t, store, "user-1", 5, now.Add(5*time.Minute))

	claimed, err := store.Claim(context.Background(), "user-1", 10, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestClaimIsExclusive(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	task := enqueue(t, store, "user-1", 5, now.Add(-time.Second))

	first, err := store.Claim(context.Background(), "user-1", 10, now)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, task.ID, first[0].ID)

	second, err := store.Claim(context.Background(), "user-1", 10, now)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestCompletedTaskNotReclaimed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	task := enqueue(t, store, "user-1", 5, now.Add(-time.Second))

	claimed, err := store.Claim(ctx, "user-1", 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, store.MarkCompleted(ctx, task.ID, now))

	claimed, err = store.Claim(ctx, "user-1", 10, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, claimed)

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestRescheduleReturnsTaskToPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	task := enqueue(t, store, "user-1", 5, now.Add(-time.Second))

	_, err := store.Claim(ctx, "user-1", 10, now)
	require.NoError(t, err)

	retryAt := now.Add(5 * time.Minute)
	require.NoError(t, store.Reschedule(ctx, task.ID, 1, "slack API error: status 500", retryAt))

	// Not eligible before the backoff window elapses.
	claimed, err := store.Claim(ctx, "user-1", 10, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	claimed, err = store.Claim(ctx, "user-1", 10, retryAt.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 1, claimed[0].Attempts)
	assert.Equal(t, "slack API error: status 500", claimed[0].Error)
}

func TestCalendarEventUpsertIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	event := &models.CalendarEvent{
		UserID:          "user-1",
		ExternalEventID: "evt-123",
		Title:           "Standup",
		StartTime:       time.Now().UTC(),
		EndTime:         time.Now().UTC().Add(30 * time.Minute),
		Status:          "confirmed",
	}

	require.NoError(t, store.UpsertCalendarEvent(ctx, event))

	event.Title = "Standup (moved)"
	event.ID = ""
	require.NoError(t, store.UpsertCalendarEvent(ctx, event))

	events, err := store.ListCalendarEvents(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Standup (moved)", events[0].Title)
}

func TestDeleteCalendarEvent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertCalendarEvent(ctx, &models.CalendarEvent{
		UserID:          "user-1",
		ExternalEventID: "evt-del",
		Title:           "Cancelled meeting",
		StartTime:       time.Now().UTC(),
		EndTime:         time.Now().UTC().Add(time.Hour),
		Status:          "confirmed",
	}))

	require.NoError(t, store.DeleteCalendarEvent(ctx, "user-1", "evt-del"))

	events, err := store.ListCalendarEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSlackChannelUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	channel := &models.SlackChannel{
		UserID:      "user-1",
		WorkspaceID: "T123",
		ChannelID:   "C456",
		ChannelName: "general",
	}

	require.NoError(t, store.UpsertSlackChannel(ctx, channel))

	channel.ID = ""
	channel.ChannelName = "general-renamed"
	require.NoError(t, store.UpsertSlackChannel(ctx, channel))

	channels, err := store.ListSlackChannels(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "general-renamed", channels[0].ChannelName)
}
