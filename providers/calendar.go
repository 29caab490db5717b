package providers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

// Calendar adapts the Google Calendar v3 API. List operations write
// discovered events through to the local mirror.
type Calendar struct {
	client  *http.Client
	baseURL string
	mirror  models.MirrorRepository
	logger  *zap.Logger
}

func NewCalendar(mirror models.MirrorRepository, logger *zap.Logger) *Calendar {
	return &Calendar{
		client:  newHTTPClient(),
		baseURL: defaultCalendarBaseURL,
		mirror:  mirror,
		logger:  logger,
	}
}

// SetBaseURL points the adapter at a different API host. Tests use
// this with httptest servers.
func (c *Calendar) SetBaseURL(u string) { c.baseURL = u }

// CalendarListEntry is one calendar from the user's calendar list.
type CalendarListEntry struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
}

// Event is a provider-native calendar event.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// EventTime is Google's start/end shape: either a dateTime or an
// all-day date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Time resolves the concrete instant, handling all-day events.
func (t EventTime) Time() (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}

	return time.Parse("2006-01-02", t.Date)
}

// EventsQuery selects which events to list. When SyncToken is set the
// time bounds are ignored and the provider returns only changes since
// that cursor.
type EventsQuery struct {
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
	SyncToken  string
	PageToken  string
}

// EventsPage is one page of a list/sync response.
type EventsPage struct {
	Events        []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken"`
	NextSyncToken string  `json:"nextSyncToken"`
}

func (c *Calendar) ListCalendars(ctx context.Context, accessToken string) ([]CalendarListEntry, error) {
	var out struct {
		Items []CalendarListEntry `json:"items"`
	}

	u := c.baseURL + "/users/me/calendarList"
	if err := doJSON(ctx, c.client, models.ProviderGoogleCalendar, http.MethodGet, u, accessToken, nil, nil, &out); err != nil {
		return nil, err
	}

	return out.Items, nil
}

// ListEvents pulls one page of events and reconciles them into the
// mirror: cancelled events are deleted, everything else upserted by
// (user_id, external_event_id).
func (c *Calendar) ListEvents(ctx context.Context, userID, accessToken string, query EventsQuery) (*EventsPage, error) {
	calendarID := query.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	params := url.Values{}

	if query.SyncToken != "" {
		params.Set("syncToken", query.SyncToken)
	} else {
		params.Set("singleEvents", "true")
		params.Set("timeMin", query.TimeMin.Format(time.RFC3339))
		params.Set("timeMax", query.TimeMax.Format(time.RFC3339))
	}

	if query.PageToken != "" {
		params.Set("pageToken", query.PageToken)
	}

	u := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events?" + params.Encode()

	var page EventsPage

	if err := doJSON(ctx, c.client, models.ProviderGoogleCalendar, http.MethodGet, u, accessToken, nil, nil, &page); err != nil {
		return nil, err
	}

	for i := range page.Events {
		if err := c.reconcileEvent(ctx, userID, &page.Events[i]); err != nil {
			return nil, err
		}
	}

	return &page, nil
}

func (c *Calendar) reconcileEvent(ctx context.Context, userID string, event *Event) error {
	if event.Status == "cancelled" {
		return c.mirror.DeleteCalendarEvent(ctx, userID, event.ID)
	}

	record, err := eventToRecord(userID, event)
	if err != nil {
		c.logger.Warn("skipping event with unparseable time",
			zap.String("event_id", event.ID), zap.Error(err))

		return nil
	}

	return c.mirror.UpsertCalendarEvent(ctx, record)
}

func (c *Calendar) CreateEvent(ctx context.Context, userID, accessToken, calendarID string, event *Event) (*Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}

	u := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events"

	var created Event

	if err := doJSON(ctx, c.client, models.ProviderGoogleCalendar, http.MethodPost, u, accessToken, nil, event, &created); err != nil {
		return nil, err
	}

	if err := c.reconcileEvent(ctx, userID, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Calendar) UpdateEvent(ctx context.Context, userID, accessToken, calendarID, eventID string, event *Event) (*Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}

	u := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)

	var updated Event

	if err := doJSON(ctx, c.client, models.ProviderGoogleCalendar, http.MethodPatch, u, accessToken, nil, event, &updated); err != nil {
		return nil, err
	}

	if err := c.reconcileEvent(ctx, userID, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

func (c *Calendar) DeleteEvent(ctx context.Context, userID, accessToken, calendarID, eventID string) error {
	if calendarID == "" {
		calendarID = "primary"
	}

	u := c.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)

	if err := doJSON(ctx, c.client, models.ProviderGoogleCalendar, http.MethodDelete, u, accessToken, nil, nil, nil); err != nil {
		return err
	}

	return c.mirror.DeleteCalendarEvent(ctx, userID, eventID)
}

func eventToRecord(userID string, event *Event) (*models.CalendarEvent, error) {
	start, err := event.Start.Time()
	if err != nil {
		return nil, err
	}

	end, err := event.End.Time()
	if err != nil {
		return nil, err
	}

	title := event.Summary
	if title == "" {
		title = "No Title"
	}

	status := event.Status
	if status == "" {
		status = "confirmed"
	}

	return &models.CalendarEvent{
		UserID:          userID,
		ExternalEventID: event.ID,
		Title:           title,
		Description:     event.Description,
		Location:        event.Location,
		StartTime:       start,
		EndTime:         end,
		Status:          status,
	}, nil
}
