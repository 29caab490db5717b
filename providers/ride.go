package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

const (
	rideBaseFare   = 3.50
	ridePerMinute  = 0.45
	defaultRideMin = 15
)

// RideBooking is a simulated ride-hailing provider. Bookings are
// accepted locally and recorded in the mirror.
type RideBooking struct {
	mirror models.MirrorRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewRideBooking(mirror models.MirrorRepository, logger *zap.Logger) *RideBooking {
	return &RideBooking{
		mirror: mirror,
		logger: logger,
		now:    time.Now,
	}
}

// RideRequest is the payload for BookRide.
type RideRequest struct {
	ProviderName     string `json:"provider_name"`
	Pickup           string `json:"pickup"`
	Dropoff          string `json:"dropoff"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

func (r *RideRequest) validate() error {
	if r.Pickup == "" {
		return &models.ValidationError{Field: "pickup", Message: "is required"}
	}

	if r.Dropoff == "" {
		return &models.ValidationError{Field: "dropoff", Message: "is required"}
	}

	return nil
}

func (r *RideRequest) fare() float64 {
	minutes := r.EstimatedMinutes
	if minutes <= 0 {
		minutes = defaultRideMin
	}

	return rideBaseFare + ridePerMinute*float64(minutes)
}

// RideEstimate is a fare quote. No booking is created.
type RideEstimate struct {
	Pickup           string  `json:"pickup"`
	Dropoff          string  `json:"dropoff"`
	Fare             float64 `json:"fare"`
	Currency         string  `json:"currency"`
	EstimatedMinutes int     `json:"estimated_minutes"`
}

// Estimate quotes a fare for the requested trip.
func (b *RideBooking) Estimate(req *RideRequest) (*RideEstimate, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	minutes := req.EstimatedMinutes
	if minutes <= 0 {
		minutes = defaultRideMin
	}

	return &RideEstimate{
		Pickup:           req.Pickup,
		Dropoff:          req.Dropoff,
		Fare:             req.fare(),
		Currency:         "USD",
		EstimatedMinutes: minutes,
	}, nil
}

// BookRide accepts a booking, assigns it an external id and records it
// as booked.
func (b *RideBooking) BookRide(ctx context.Context, userID string, req *RideRequest) (*models.RideBooking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	providerName := req.ProviderName
	if providerName == "" {
		providerName = "jarvis-rides"
	}

	booking := &models.RideBooking{
		UserID:       userID,
		ExternalID:   fmt.Sprintf("ride-%s", uuid.New().String()),
		ProviderName: providerName,
		Pickup:       req.Pickup,
		Dropoff:      req.Dropoff,
		Status:       "booked",
		Fare:         req.fare(),
		CreatedAt:    b.now().UTC(),
	}

	if err := b.mirror.UpsertRideBooking(ctx, booking); err != nil {
		return nil, err
	}

	b.logger.Info("ride booked",
		zap.String("user_id", userID),
		zap.String("ride_id", booking.ExternalID),
		zap.Float64("fare", booking.Fare))

	return booking, nil
}

// RideStatus returns a booking, advancing its status by how long ago it
// was booked. Booked rides move through driver_assigned, driver_arrived
// and in_progress to completed.
func (b *RideBooking) RideStatus(ctx context.Context, userID, rideID string) (*models.RideBooking, error) {
	if rideID == "" {
		return nil, &models.ValidationError{Field: "ride_id", Message: "is required"}
	}

	booking, err := b.find(ctx, userID, rideID)
	if err != nil {
		return nil, err
	}

	status := rideProgress(b.now().Sub(booking.CreatedAt), booking.Status)
	if status != booking.Status {
		booking.Status = status
		if err := b.mirror.UpsertRideBooking(ctx, booking); err != nil {
			return nil, err
		}
	}

	return booking, nil
}

func rideProgress(age time.Duration, current string) string {
	if current == "cancelled" {
		return current
	}

	switch {
	case age > 30*time.Minute:
		return "completed"
	case age > 15*time.Minute:
		return "in_progress"
	case age > 5*time.Minute:
		return "driver_arrived"
	case age > 2*time.Minute:
		return "driver_assigned"
	default:
		return current
	}
}

// CancelRide cancels a booking that has not completed.
func (b *RideBooking) CancelRide(ctx context.Context, userID, rideID string) (*models.RideBooking, error) {
	if rideID == "" {
		return nil, &models.ValidationError{Field: "ride_id", Message: "is required"}
	}

	booking, err := b.find(ctx, userID, rideID)
	if err != nil {
		return nil, err
	}

	status := rideProgress(b.now().Sub(booking.CreatedAt), booking.Status)
	if status == "completed" || status == "cancelled" {
		return nil, &models.ValidationError{Field: "ride_id", Message: "ride is already " + status}
	}

	booking.Status = "cancelled"
	if err := b.mirror.UpsertRideBooking(ctx, booking); err != nil {
		return nil, err
	}

	b.logger.Info("ride cancelled",
		zap.String("user_id", userID),
		zap.String("ride_id", rideID))

	return booking, nil
}

func (b *RideBooking) find(ctx context.Context, userID, rideID string) (*models.RideBooking, error) {
	bookings, err := b.mirror.ListRideBookings(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		if bookings[i].ExternalID == rideID {
			return &bookings[i], nil
		}
	}

	return nil, models.ErrNotFound
}

// ListRides returns the user's recorded bookings.
func (b *RideBooking) ListRides(ctx context.Context, userID string) ([]models.RideBooking, error) {
	return b.mirror.ListRideBookings(ctx, userID)
}
