package postgres

import (
	"context"

	"github.com/jarvisapp/jarvis-sync/models"
)

func (s *Store) UpsertCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	const q = `
		INSERT INTO calendar_events
			(user_id, external_event_id, title, description, location,
			 start_time, end_time, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id, external_event_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id`

	return s.db.QueryRowContext(ctx, q,
		event.UserID, event.ExternalEventID, event.Title, event.Description,
		event.Location, event.StartTime, event.EndTime, event.Status,
	).Scan(&event.ID)
}

func (s *Store) DeleteCalendarEvent(ctx context.Context, userID, externalEventID string) error {
	const q = `DELETE FROM calendar_events WHERE user_id = $1 AND external_event_id = $2`

	_, err := s.db.ExecContext(ctx, q, userID, externalEventID)

	return err
}

func (s *Store) ListCalendarEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	const q = `
		SELECT id, user_id, external_event_id, title, description, location,
		       start_time, end_time, status, updated_at
		FROM calendar_events
		WHERE user_id = $1
		ORDER BY start_time ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.CalendarEvent

	for rows.Next() {
		var e models.CalendarEvent

		err := rows.Scan(&e.ID, &e.UserID, &e.ExternalEventID, &e.Title,
			&e.Description, &e.Location, &e.StartTime, &e.EndTime, &e.Status,
			&e.UpdatedAt)
		if err != nil {
			return nil, err
		}

		ans = append(ans, e)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertSlackChannel(ctx context.Context, channel *models.SlackChannel) error {
	const q = `
		INSERT INTO slack_channels
			(user_id, workspace_id, channel_id, channel_name, is_private, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, workspace_id, channel_id) DO UPDATE SET
			channel_name = EXCLUDED.channel_name,
			is_private = EXCLUDED.is_private,
			updated_at = NOW()
		RETURNING id`

	return s.db.QueryRowContext(ctx, q,
		channel.UserID, channel.WorkspaceID, channel.ChannelID,
		channel.ChannelName, channel.IsPrivate,
	).Scan(&channel.ID)
}

func (s *Store) ListSlackChannels(ctx context.Context, userID string) ([]models.SlackChannel, error) {
	const q = `
		SELECT id, user_id, workspace_id, channel_id, channel_name, is_private, updated_at
		FROM slack_channels
		WHERE user_id = $1
		ORDER BY channel_name ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.SlackChannel

	for rows.Next() {
		var c models.SlackChannel

		err := rows.Scan(&c.ID, &c.UserID, &c.WorkspaceID, &c.ChannelID,
			&c.ChannelName, &c.IsPrivate, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}

		ans = append(ans, c)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertNotionDatabase(ctx context.Context, db *models.NotionDatabase) error {
	const q = `
		INSERT INTO notion_databases (user_id, database_id, title, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, database_id) DO UPDATE SET
			title = EXCLUDED.title,
			updated_at = NOW()
		RETURNING id`

	return s.db.QueryRowContext(ctx, q, db.UserID, db.DatabaseID, db.Title).Scan(&db.ID)
}

func (s *Store) ListNotionDatabases(ctx context.Context, userID string) ([]models.NotionDatabase, error) {
	const q = `
		SELECT id, user_id, database_id, title, updated_at
		FROM notion_databases
		WHERE user_id = $1
		ORDER BY title ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.NotionDatabase

	for rows.Next() {
		var d models.NotionDatabase

		if err := rows.Scan(&d.ID, &d.UserID, &d.DatabaseID, &d.Title, &d.UpdatedAt); err != nil {
			return nil, err
		}

		ans = append(ans, d)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertFoodOrder(ctx context.Context, order *models.FoodOrder) error {
	const q = `
		INSERT INTO food_orders
			(user_id, external_id, provider_name, restaurant_id, status,
			 total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			updated_at = NOW()
		RETURNING id`

	return s.db.QueryRowContext(ctx, q,
		order.UserID, order.ExternalID, order.ProviderName,
		order.RestaurantID, order.Status, order.TotalAmount,
	).Scan(&order.ID)
}

func (s *Store) ListFoodOrders(ctx context.Context, userID string) ([]models.FoodOrder, error) {
	const q = `
		SELECT id, user_id, external_id, provider_name, restaurant_id, status,
		       total_amount, created_at, updated_at
		FROM food_orders
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.FoodOrder

	for rows.Next() {
		var o models.FoodOrder

		err := rows.Scan(&o.ID, &o.UserID, &o.ExternalID, &o.ProviderName,
			&o.RestaurantID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}

		ans = append(ans, o)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertRideBooking(ctx context.Context, booking *models.RideBooking) error {
	const q = `
		INSERT INTO ride_bookings
			(user_id, external_id, provider_name, pickup, dropoff, status,
			 fare, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			status = EXCLUDED.status,
			fare = EXCLUDED.fare,
			updated_at = NOW()
		RETURNING id`

	return s.db.QueryRowContext(ctx, q,
		booking.UserID, booking.ExternalID, booking.ProviderName,
		booking.Pickup, booking.Dropoff, booking.Status, booking.Fare,
	).Scan(&booking.ID)
}

func (s *Store) ListRideBookings(ctx context.Context, userID string) ([]models.RideBooking, error) {
	const q = `
		SELECT id, user_id, external_id, provider_name, pickup, dropoff, status,
		       fare, created_at, updated_at
		FROM ride_bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.RideBooking

	for rows.Next() {
		var b models.RideBooking

		err := rows.Scan(&b.ID, &b.UserID, &b.ExternalID, &b.ProviderName,
			&b.Pickup, &b.Dropoff, &b.Status, &b.Fare, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, err
		}

		ans = append(ans, b)
	}

	return ans, rows.Err()
}
