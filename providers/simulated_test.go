package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

func TestSearchRestaurants(t *testing.T) {
	food := NewFoodDelivery(newFakeMirror(), zap.NewNop())

	all := food.SearchRestaurants("")
	assert.Len(t, all, 5)

	byCuisine := food.SearchRestaurants("italian")
	require.Len(t, byCuisine, 1)
	assert.Equal(t, "Pizza Paradise", byCuisine[0].Name)

	byName := food.SearchRestaurants("sushi")
	require.Len(t, byName, 1)
	assert.Equal(t, "rest-003", byName[0].ID)

	assert.Empty(t, food.SearchRestaurants("tapas"))
}

func TestGetMenu(t *testing.T) {
	food := NewFoodDelivery(newFakeMirror(), zap.NewNop())

	menu, err := food.GetMenu("rest-001")
	require.NoError(t, err)
	assert.NotEmpty(t, menu)

	_, err = food.GetMenu("")

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "restaurant_id", vErr.Field)
}

func TestPlaceOrder(t *testing.T) {
	mirror := newFakeMirror()
	food := NewFoodDelivery(mirror, zap.NewNop())

	order, err := food.PlaceOrder(context.Background(), "user-1", &OrderRequest{
		RestaurantID: "rest-42",
		Items: []OrderItem{
			{Name: "Pad Thai", Quantity: 2, Price: 11.50},
			{Name: "Spring Rolls", Price: 5.00},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", order.Status)
	assert.Equal(t, "jarvis-eats", order.ProviderName)
	assert.InDelta(t, 28.00, order.TotalAmount, 0.001)
	assert.NotEmpty(t, order.ExternalID)

	orders, err := mirror.ListFoodOrders(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ExternalID, orders[0].ExternalID)
}

func TestPlaceOrderValidation(t *testing.T) {
	food := NewFoodDelivery(newFakeMirror(), zap.NewNop())

	_, err := food.PlaceOrder(context.Background(), "user-1", &OrderRequest{})

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "restaurant_id", vErr.Field)

	_, err = food.PlaceOrder(context.Background(), "user-1", &OrderRequest{RestaurantID: "rest-42"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
}

func TestOrderStatusAdvances(t *testing.T) {
	mirror := newFakeMirror()
	food := NewFoodDelivery(mirror, zap.NewNop())

	placed := time.Now().UTC()
	food.now = func() time.Time { return placed }

	order, err := food.PlaceOrder(context.Background(), "user-1", &OrderRequest{
		RestaurantID: "rest-001",
		Items:        []OrderItem{{Name: "Naan", Quantity: 3, Price: 2.40}},
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", order.Status)

	food.now = func() time.Time { return placed.Add(20 * time.Minute) }

	got, err := food.OrderStatus(context.Background(), "user-1", order.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "preparing", got.Status)

	food.now = func() time.Time { return placed.Add(time.Hour) }

	got, err = food.OrderStatus(context.Background(), "user-1", order.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", got.Status)
}

func TestOrderStatusUnknownOrder(t *testing.T) {
	food := NewFoodDelivery(newFakeMirror(), zap.NewNop())

	_, err := food.OrderStatus(context.Background(), "user-1", "order-missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBookRide(t *testing.T) {
	mirror := newFakeMirror()
	rides := NewRideBooking(mirror, zap.NewNop())

	booking, err := rides.BookRide(context.Background(), "user-1", &RideRequest{
		Pickup:           "Home",
		Dropoff:          "Airport",
		EstimatedMinutes: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, "booked", booking.Status)
	assert.InDelta(t, rideBaseFare+ridePerMinute*40, booking.Fare, 0.001)

	bookings, err := mirror.ListRideBookings(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
}

func TestBookRideValidation(t *testing.T) {
	rides := NewRideBooking(newFakeMirror(), zap.NewNop())

	_, err := rides.BookRide(context.Background(), "user-1", &RideRequest{Dropoff: "Airport"})

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "pickup", vErr.Field)
}

func TestRideEstimateDoesNotBook(t *testing.T) {
	mirror := newFakeMirror()
	rides := NewRideBooking(mirror, zap.NewNop())

	est, err := rides.Estimate(&RideRequest{Pickup: "Home", Dropoff: "Office"})
	require.NoError(t, err)
	assert.Equal(t, defaultRideMin, est.EstimatedMinutes)
	assert.InDelta(t, rideBaseFare+ridePerMinute*defaultRideMin, est.Fare, 0.001)

	bookings, err := mirror.ListRideBookings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestRideStatusAdvances(t *testing.T) {
	mirror := newFakeMirror()
	rides := NewRideBooking(mirror, zap.NewNop())

	booked := time.Now().UTC()
	rides.now = func() time.Time { return booked }

	booking, err := rides.BookRide(context.Background(), "user-1", &RideRequest{Pickup: "Home", Dropoff: "Airport"})
	require.NoError(t, err)

	rides.now = func() time.Time { return booked.Add(10 * time.Minute) }

	got, err := rides.RideStatus(context.Background(), "user-1", booking.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "driver_arrived", got.Status)

	rides.now = func() time.Time { return booked.Add(time.Hour) }

	got, err = rides.RideStatus(context.Background(), "user-1", booking.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
}

func TestCancelRide(t *testing.T) {
	mirror := newFakeMirror()
	rides := NewRideBooking(mirror, zap.NewNop())

	booked := time.Now().UTC()
	rides.now = func() time.Time { return booked }

	booking, err := rides.BookRide(context.Background(), "user-1", &RideRequest{Pickup: "Home", Dropoff: "Airport"})
	require.NoError(t, err)

	cancelled, err := rides.CancelRide(context.Background(), "user-1", booking.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	// A cancelled ride stays cancelled and cannot be cancelled again.
	rides.now = func() time.Time { return booked.Add(time.Hour) }

	got, err := rides.RideStatus(context.Background(), "user-1", booking.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)

	_, err = rides.CancelRide(context.Background(), "user-1", booking.ExternalID)

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCancelCompletedRide(t *testing.T) {
	mirror := newFakeMirror()
	rides := NewRideBooking(mirror, zap.NewNop())

	booked := time.Now().UTC()
	rides.now = func() time.Time { return booked }

	booking, err := rides.BookRide(context.Background(), "user-1", &RideRequest{Pickup: "Home", Dropoff: "Airport"})
	require.NoError(t, err)

	rides.now = func() time.Time { return booked.Add(time.Hour) }

	_, err = rides.CancelRide(context.Background(), "user-1", booking.ExternalID)

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "completed")
}
