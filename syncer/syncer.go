// Package syncer reconciles the local mirror with each connected
// provider. Calendar pulls are incremental when a sync cursor exists;
// everything else is a full refresh.
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
	"github.com/jarvisapp/jarvis-sync/providers"
	"github.com/jarvisapp/jarvis-sync/token"
)

const (
	// Full calendar pulls cover this window around now.
	fullSyncLookback  = 30 * 24 * time.Hour
	fullSyncLookahead = 90 * 24 * time.Hour

	maxEventPages = 20
)

// Result is the outcome of syncing one provider.
type Result struct {
	Provider models.Provider `json:"provider"`
	Synced   bool            `json:"synced"`
	Items    int             `json:"items"`
	// ResyncRequired means the provider invalidated our incremental
	// cursor. The cursor has been cleared; the next sync is a full pull.
	ResyncRequired bool   `json:"resync_required,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Syncer pulls provider state into the mirror tables.
type Syncer struct {
	tokens       *token.Store
	integrations models.IntegrationRepository
	calendar     *providers.Calendar
	slack        *providers.Slack
	notion       *providers.Notion
	food         *providers.FoodDelivery
	rides        *providers.RideBooking
	logger       *zap.Logger
	now          func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

func New(
	tokens *token.Store,
	integrations models.IntegrationRepository,
	calendar *providers.Calendar,
	slack *providers.Slack,
	notion *providers.Notion,
	food *providers.FoodDelivery,
	rides *providers.RideBooking,
	logger *zap.Logger,
	opts ...Option,
) *Syncer {
	s := &Syncer{
		tokens:       tokens,
		integrations: integrations,
		calendar:     calendar,
		slack:        slack,
		notion:       notion,
		food:         food,
		rides:        rides,
		logger:       logger,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SyncAll refreshes every integration the user has connected. One
// provider failing never blocks the others; each gets its own entry in
// the returned map.
func (s *Syncer) SyncAll(ctx context.Context, userID string) (map[models.Provider]*Result, error) {
	integrations, err := s.integrations.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make(map[models.Provider]*Result, len(integrations))

	for _, integration := range integrations {
		provider := integration.Provider

		result, err := s.SyncProvider(ctx, userID, provider)
		if err != nil {
			s.logger.Warn("provider sync failed",
				zap.String("user_id", userID),
				zap.String("provider", string(provider)),
				zap.Error(err))

			result = &Result{Provider: provider, Error: err.Error()}
		}

		results[provider] = result
	}

	return results, nil
}

// SyncProvider refreshes a single provider's mirror.
func (s *Syncer) SyncProvider(ctx context.Context, userID string, provider models.Provider) (*Result, error) {
	switch provider {
	case models.ProviderGoogleCalendar:
		return s.SyncCalendar(ctx, userID)
	case models.ProviderSlack:
		return s.SyncSlack(ctx, userID)
	case models.ProviderNotion:
		return s.SyncNotion(ctx, userID)
	case models.ProviderFoodDelivery:
		return s.syncLocal(ctx, userID, models.ProviderFoodDelivery)
	case models.ProviderRideBooking:
		return s.syncLocal(ctx, userID, models.ProviderRideBooking)
	default:
		return nil, &models.ValidationError{Field: "provider", Message: "unknown provider " + string(provider)}
	}
}

// SyncCalendar pulls calendar events. With a stored sync cursor it asks
// only for changes since the last pull; without one it fetches the full
// window. When the provider reports the cursor expired, the cursor is
// cleared and the caller is told to sync again.
func (s *Syncer) SyncCalendar(ctx context.Context, userID string) (*Result, error) {
	integration, err := s.integrations.Get(ctx, userID, models.ProviderGoogleCalendar)
	if err != nil {
		return nil, err
	}

	tok, err := s.tokens.GetValidToken(ctx, userID, models.ProviderGoogleCalendar)
	if err != nil {
		return nil, err
	}

	now := s.now()
	query := providers.EventsQuery{SyncToken: integration.SyncToken}

	if query.SyncToken == "" {
		query.TimeMin = now.Add(-fullSyncLookback)
		query.TimeMax = now.Add(fullSyncLookahead)
	}

	items := 0
	nextSyncToken := ""

	for page := 0; page < maxEventPages; page++ {
		eventsPage, err := s.calendar.ListEvents(ctx, userID, tok.AccessToken, query)
		if err != nil {
			if models.IsSyncTokenExpired(err) && query.SyncToken != "" {
				// The cursor is dead. Drop it so the next sync does a
				// full pull.
				if clearErr := s.integrations.UpdateSyncToken(ctx, userID, models.ProviderGoogleCalendar, "", now); clearErr != nil {
					return nil, clearErr
				}

				s.logger.Info("calendar sync cursor expired, full resync scheduled",
					zap.String("user_id", userID))

				return &Result{
					Provider:       models.ProviderGoogleCalendar,
					ResyncRequired: true,
				}, nil
			}

			return nil, err
		}

		items += len(eventsPage.Events)

		if eventsPage.NextSyncToken != "" {
			nextSyncToken = eventsPage.NextSyncToken
		}

		if eventsPage.NextPageToken == "" {
			break
		}

		query.PageToken = eventsPage.NextPageToken
	}

	if nextSyncToken == "" {
		// The page cap was hit before the provider handed out a new
		// cursor. Keep the stored one so the next sync stays
		// incremental instead of degrading to full pulls.
		nextSyncToken = integration.SyncToken
	}

	if err := s.integrations.UpdateSyncToken(ctx, userID, models.ProviderGoogleCalendar, nextSyncToken, now); err != nil {
		return nil, err
	}

	return &Result{Provider: models.ProviderGoogleCalendar, Synced: true, Items: items}, nil
}

// SyncSlack refreshes the channel mirror.
func (s *Syncer) SyncSlack(ctx context.Context, userID string) (*Result, error) {
	tok, err := s.tokens.GetValidToken(ctx, userID, models.ProviderSlack)
	if err != nil {
		return nil, err
	}

	channels, err := s.slack.ListChannels(ctx, userID, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	if err := s.touch(ctx, userID, models.ProviderSlack); err != nil {
		return nil, err
	}

	return &Result{Provider: models.ProviderSlack, Synced: true, Items: len(channels)}, nil
}

// SyncNotion refreshes the database mirror.
func (s *Syncer) SyncNotion(ctx context.Context, userID string) (*Result, error) {
	tok, err := s.tokens.GetValidToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return nil, err
	}

	dbs, err := s.notion.ListDatabases(ctx, userID, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	if err := s.touch(ctx, userID, models.ProviderNotion); err != nil {
		return nil, err
	}

	return &Result{Provider: models.ProviderNotion, Synced: true, Items: len(dbs)}, nil
}

// syncLocal covers the simulated providers, whose system of record is
// already the mirror. It only stamps last_synced_at.
func (s *Syncer) syncLocal(ctx context.Context, userID string, provider models.Provider) (*Result, error) {
	var (
		items int
		err   error
	)

	switch provider {
	case models.ProviderFoodDelivery:
		var orders []models.FoodOrder

		orders, err = s.food.ListOrders(ctx, userID)
		items = len(orders)
	default:
		var bookings []models.RideBooking

		bookings, err = s.rides.ListRides(ctx, userID)
		items = len(bookings)
	}

	if err != nil {
		return nil, err
	}

	if err := s.touch(ctx, userID, provider); err != nil {
		return nil, err
	}

	return &Result{Provider: provider, Synced: true, Items: items}, nil
}

func (s *Syncer) touch(ctx context.Context, userID string, provider models.Provider) error {
	integration, err := s.integrations.Get(ctx, userID, provider)
	if err != nil {
		return err
	}

	return s.integrations.UpdateSyncToken(ctx, userID, provider, integration.SyncToken, s.now())
}
