package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jarvisapp/jarvis-sync/models"
)

func (s *Store) UpsertCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	const q = `
		INSERT INTO calendar_events
			(id, user_id, external_event_id, title, description, location,
			 start_time, end_time, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, external_event_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		event.ID, event.UserID, event.ExternalEventID, event.Title,
		event.Description, event.Location, nanos(event.StartTime),
		nanos(event.EndTime), event.Status, nanos(time.Now()))

	return err
}

func (s *Store) DeleteCalendarEvent(ctx context.Context, userID, externalEventID string) error {
	const q = `DELETE FROM calendar_events WHERE user_id = ? AND external_event_id = ?`

	_, err := s.db.ExecContext(ctx, q, userID, externalEventID)

	return err
}

func (s *Store) ListCalendarEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	const q = `
		SELECT id, user_id, external_event_id, title, description, location,
		       start_time, end_time, status, updated_at
		FROM calendar_events
		WHERE user_id = ?
		ORDER BY start_time ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.CalendarEvent

	for rows.Next() {
		var (
			e         models.CalendarEvent
			start     int64
			end       int64
			updatedAt int64
		)

		err := rows.Scan(&e.ID, &e.UserID, &e.ExternalEventID, &e.Title,
			&e.Description, &e.Location, &start, &end, &e.Status, &updatedAt)
		if err != nil {
			return nil, err
		}

		e.StartTime = fromNanos(start)
		e.EndTime = fromNanos(end)
		e.UpdatedAt = fromNanos(updatedAt)

		ans = append(ans, e)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertSlackChannel(ctx context.Context, channel *models.SlackChannel) error {
	if channel.ID == "" {
		channel.ID = uuid.New().String()
	}

	const q = `
		INSERT INTO slack_channels
			(id, user_id, workspace_id, channel_id, channel_name, is_private, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, workspace_id, channel_id) DO UPDATE SET
			channel_name = excluded.channel_name,
			is_private = excluded.is_private,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		channel.ID, channel.UserID, channel.WorkspaceID, channel.ChannelID,
		channel.ChannelName, channel.IsPrivate, nanos(time.Now()))

	return err
}

func (s *Store) ListSlackChannels(ctx context.Context, userID string) ([]models.SlackChannel, error) {
	const q = `
		SELECT id, user_id, workspace_id, channel_id, channel_name, is_private, updated_at
		FROM slack_channels
		WHERE user_id = ?
		ORDER BY channel_name ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.SlackChannel

	for rows.Next() {
		var (
			c         models.SlackChannel
			updatedAt int64
		)

		err := rows.Scan(&c.ID, &c.UserID, &c.WorkspaceID, &c.ChannelID,
			&c.ChannelName, &c.IsPrivate, &updatedAt)
		if err != nil {
			return nil, err
		}

		c.UpdatedAt = fromNanos(updatedAt)

		ans = append(ans, c)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertNotionDatabase(ctx context.Context, db *models.NotionDatabase) error {
	if db.ID == "" {
		db.ID = uuid.New().String()
	}

	const q = `
		INSERT INTO notion_databases (id, user_id, database_id, title, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, database_id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		db.ID, db.UserID, db.DatabaseID, db.Title, nanos(time.Now()))

	return err
}

func (s *Store) ListNotionDatabases(ctx context.Context, userID string) ([]models.NotionDatabase, error) {
	const q = `
		SELECT id, user_id, database_id, title, updated_at
		FROM notion_databases
		WHERE user_id = ?
		ORDER BY title ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.NotionDatabase

	for rows.Next() {
		var (
			d         models.NotionDatabase
			updatedAt int64
		)

		if err := rows.Scan(&d.ID, &d.UserID, &d.DatabaseID, &d.Title, &updatedAt); err != nil {
			return nil, err
		}

		d.UpdatedAt = fromNanos(updatedAt)

		ans = append(ans, d)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertFoodOrder(ctx context.Context, order *models.FoodOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO food_orders
			(id, user_id, external_id, provider_name, restaurant_id, status,
			 total_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			status = excluded.status,
			total_amount = excluded.total_amount,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		order.ID, order.UserID, order.ExternalID, order.ProviderName,
		order.RestaurantID, order.Status, order.TotalAmount,
		nanos(order.CreatedAt), nanos(time.Now()))

	return err
}

func (s *Store) ListFoodOrders(ctx context.Context, userID string) ([]models.FoodOrder, error) {
	const q = `
		SELECT id, user_id, external_id, provider_name, restaurant_id, status,
		       total_amount, created_at, updated_at
		FROM food_orders
		WHERE user_id = ?
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.FoodOrder

	for rows.Next() {
		var (
			o         models.FoodOrder
			createdAt int64
			updatedAt int64
		)

		err := rows.Scan(&o.ID, &o.UserID, &o.ExternalID, &o.ProviderName,
			&o.RestaurantID, &o.Status, &o.TotalAmount, &createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}

		o.CreatedAt = fromNanos(createdAt)
		o.UpdatedAt = fromNanos(updatedAt)

		ans = append(ans, o)
	}

	return ans, rows.Err()
}

func (s *Store) UpsertRideBooking(ctx context.Context, booking *models.RideBooking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO ride_bookings
			(id, user_id, external_id, provider_name, pickup, dropoff, status,
			 fare, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, external_id) DO UPDATE SET
			status = excluded.status,
			fare = excluded.fare,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		booking.ID, booking.UserID, booking.ExternalID, booking.ProviderName,
		booking.Pickup, booking.Dropoff, booking.Status, booking.Fare,
		nanos(booking.CreatedAt), nanos(time.Now()))

	return err
}

func (s *Store) ListRideBookings(ctx context.Context, userID string) ([]models.RideBooking, error) {
	const q = `
		SELECT id, user_id, external_id, provider_name, pickup, dropoff, status,
		       fare, created_at, updated_at
		FROM ride_bookings
		WHERE user_id = ?
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ans []models.RideBooking

	for rows.Next() {
		var (
			b         models.RideBooking
			createdAt int64
			updatedAt int64
		)

		err := rows.Scan(&b.ID, &b.UserID, &b.ExternalID, &b.ProviderName,
			&b.Pickup, &b.Dropoff, &b.Status, &b.Fare, &createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}

		b.CreatedAt = fromNanos(createdAt)
		b.UpdatedAt = fromNanos(updatedAt)

		ans = append(ans, b)
	}

	return ans, rows.Err()
}
