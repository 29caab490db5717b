package queue

import (
	"context"
	"encoding/json"

	"github.com/jarvisapp/jarvis-sync/models"
	"github.com/jarvisapp/jarvis-sync/providers"
	"github.com/jarvisapp/jarvis-sync/syncer"
	"github.com/jarvisapp/jarvis-sync/token"
)

// eventPayload carries calendar write operations.
type eventPayload struct {
	CalendarID string          `json:"calendar_id,omitempty"`
	EventID    string          `json:"event_id,omitempty"`
	Event      providers.Event `json:"event"`
}

// pagePayload carries Notion page updates.
type pagePayload struct {
	PageID     string         `json:"page_id"`
	Properties map[string]any `json:"properties"`
}

// cancelPayload carries ride cancellations.
type cancelPayload struct {
	RideID string `json:"ride_id"`
}

func decode(task *models.SyncTask, out any) error {
	if len(task.Payload) == 0 {
		return &models.ValidationError{Field: "payload", Message: "is required for " + string(task.Operation)}
	}

	if err := json.Unmarshal(task.Payload, out); err != nil {
		return &models.ValidationError{Field: "payload", Message: err.Error()}
	}

	return nil
}

// NewRegistry wires every supported (provider, operation) pair to its
// handler. Write operations resolve a fresh access token per task so a
// long queue never runs on a token that expired mid-batch.
func NewRegistry(
	tokens *token.Store,
	sync *syncer.Syncer,
	calendar *providers.Calendar,
	slack *providers.Slack,
	notion *providers.Notion,
	food *providers.FoodDelivery,
	rides *providers.RideBooking,
) Registry {
	r := make(Registry)

	r.Register(models.ProviderGoogleCalendar, models.OpCreateEvent, func(ctx context.Context, task *models.SyncTask) error {
		var payload eventPayload
		if err := decode(task, &payload); err != nil {
			return err
		}

		tok, err := tokens.GetValidToken(ctx, task.UserID, models.ProviderGoogleCalendar)
		if err != nil {
			return err
		}

		_, err = calendar.CreateEvent(ctx, task.UserID, tok.AccessToken, payload.CalendarID, &payload.Event)

		return err
	})

	r.Register(models.ProviderGoogleCalendar, models.OpUpdateEvent, func(ctx context.Context, task *models.SyncTask) error {
		var payload eventPayload
		if err := decode(task, &payload); err != nil {
			return err
		}

		if payload.EventID == "" {
			return &models.ValidationError{Field: "event_id", Message: "is required"}
		}

		tok, err := tokens.GetValidToken(ctx, task.UserID, models.ProviderGoogleCalendar)
		if err != nil {
			return err
		}

		_, err = calendar.UpdateEvent(ctx, task.UserID, tok.AccessToken, payload.CalendarID, payload.EventID, &payload.Event)

		return err
	})

	r.Register(models.ProviderGoogleCalendar, models.OpDeleteEvent, func(ctx context.Context, task *models.SyncTask) error {
		var payload eventPayload
		if err := decode(task, &payload); err != nil {
			return err
		}

		if payload.EventID == "" {
			return &models.ValidationError{Field: "event_id", Message: "is required"}
		}

		tok, err := tokens.GetValidToken(ctx, task.UserID, models.ProviderGoogleCalendar)
		if err != nil {
			return err
		}

		return calendar.DeleteEvent(ctx, task.UserID, tok.AccessToken, payload.CalendarID, payload.EventID)
	})

	r.Register(models.ProviderGoogleCalendar, models.OpSyncCalendar, func(ctx context.Context, task *models.SyncTask) error {
		_, err := sync.SyncCalendar(ctx, task.UserID)

		return err
	})

	r.Register(models.ProviderSlack, models.OpSendMessage, func(ctx context.Context, task *models.SyncTask) error {
		var msg providers.MessageRequest
		if err := decode(task, &msg); err != nil {
			return err
		}

		if msg.Channel == "" {
			return &models.ValidationError{Field: "channel", Message: "is required"}
		}

		tok, err := tokens.GetValidToken(ctx, task.UserID, models.ProviderSlack)
		if err != nil {
			return err
		}

		_, err = slack.PostMessage(ctx, tok.AccessToken, &msg)

		return err
	})

	r.Register(models.ProviderSlack, models.OpCreateReminder, func(ctx context.Context, task *models.SyncTask) error {
		var reminder providers.ReminderRequest
		if err := decode(task, &reminder); err != nil {
			return err
		}

		tok, err := tokens.GetValidToken(ctx, task.UserID, models.ProviderSlack)
		if err != nil {
			return err
		}

		_, err = slack.CreateReminder(ctx, tok.AccessToken, &reminder)

		return err
	})

	r.Register(models.ProviderSlack, models.OpSyncChannels, func(ctx context.Context, task *models.SyncTask) error {
		_, err := sync.SyncSlack(ctx, task.UserID)

		return err
	})

	r.Register(models.ProviderNotion, models.OpCreatePage, func(ctx context.Context, task *models.SyncTask) error {
		var page providers.PageRequest
		if err := decode(task, &page); err != nil {
			return err
		}

		tok, err := tokens.GetValidToken(ctx, task.UserID, models.ProviderNotion)
		if err != nil {
			return err
		}

		_, err = notion.CreatePage(ctx, tok.AccessToken, &page)

		return err
	})

	r.Register(models.ProviderNotion, models.OpUpdatePage, func(ctx context.Context, task *models.SyncTask) error {
		var payload pagePayload
		if err := decode(task, &payload); err != nil {
			return err
		}

		if payload.PageID == "" {
			return &models.ValidationError{Field: "page_id", Message: "is required"}
		}

		tok, err := tokens.GetValidToken(ctx, task.UserID, models.ProviderNotion)
		if err != nil {
			return err
		}

		_, err = notion.UpdatePage(ctx, tok.AccessToken, payload.PageID, payload.Properties)

		return err
	})

	r.Register(models.ProviderNotion, models.OpSyncDatabases, func(ctx context.Context, task *models.SyncTask) error {
		_, err := sync.SyncNotion(ctx, task.UserID)

		return err
	})

	r.Register(models.ProviderFoodDelivery, models.OpPlaceOrder, func(ctx context.Context, task *models.SyncTask) error {
		var order providers.OrderRequest
		if err := decode(task, &order); err != nil {
			return err
		}

		_, err := food.PlaceOrder(ctx, task.UserID, &order)

		return err
	})

	r.Register(models.ProviderRideBooking, models.OpBookRide, func(ctx context.Context, task *models.SyncTask) error {
		var ride providers.RideRequest
		if err := decode(task, &ride); err != nil {
			return err
		}

		_, err := rides.BookRide(ctx, task.UserID, &ride)

		return err
	})

	r.Register(models.ProviderRideBooking, models.OpCancelRide, func(ctx context.Context, task *models.SyncTask) error {
		var payload cancelPayload
		if err := decode(task, &payload); err != nil {
			return err
		}

		_, err := rides.CancelRide(ctx, task.UserID, payload.RideID)

		return err
	})

	return r
}
