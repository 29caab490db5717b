package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jarvisapp/jarvis-sync/models"
)

// FoodDelivery is a simulated food-delivery provider. There is no real
// API behind it; orders are accepted locally and recorded in the
// mirror, which lets the rest of the pipeline treat it exactly like a
// networked provider.
type FoodDelivery struct {
	mirror models.MirrorRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewFoodDelivery(mirror models.MirrorRepository, logger *zap.Logger) *FoodDelivery {
	return &FoodDelivery{
		mirror: mirror,
		logger: logger,
		now:    time.Now,
	}
}

// Restaurant is one entry of the simulated catalog.
type Restaurant struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Cuisine      string  `json:"cuisine"`
	Rating       float64 `json:"rating"`
	DeliveryTime string  `json:"delivery_time"`
}

// MenuItem is one dish on a restaurant menu.
type MenuItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Veg      bool    `json:"veg"`
}

var restaurantCatalog = []Restaurant{
	{ID: "rest-001", Name: "Tasty Bites", Cuisine: "Indian", Rating: 4.5, DeliveryTime: "30-40 min"},
	{ID: "rest-002", Name: "Pizza Paradise", Cuisine: "Italian", Rating: 4.2, DeliveryTime: "25-35 min"},
	{ID: "rest-003", Name: "Sushi Express", Cuisine: "Japanese", Rating: 4.7, DeliveryTime: "40-50 min"},
	{ID: "rest-004", Name: "Burger Barn", Cuisine: "American", Rating: 4.0, DeliveryTime: "20-30 min"},
	{ID: "rest-005", Name: "Chinese Dragon", Cuisine: "Chinese", Rating: 3.9, DeliveryTime: "35-45 min"},
}

var sampleMenu = []MenuItem{
	{ID: "item-001", Name: "Butter Chicken", Category: "Main Course", Price: 12.80, Veg: false},
	{ID: "item-002", Name: "Paneer Tikka", Category: "Starters", Price: 9.20, Veg: true},
	{ID: "item-003", Name: "Naan", Category: "Bread", Price: 2.40, Veg: true},
	{ID: "item-004", Name: "Dal Makhani", Category: "Main Course", Price: 8.10, Veg: true},
	{ID: "item-005", Name: "Gulab Jamun", Category: "Dessert", Price: 4.00, Veg: true},
}

// SearchRestaurants filters the catalog by name or cuisine. An empty
// query returns the whole catalog.
func (f *FoodDelivery) SearchRestaurants(query string) []Restaurant {
	if query == "" {
		return restaurantCatalog
	}

	q := strings.ToLower(query)

	var matched []Restaurant

	for _, r := range restaurantCatalog {
		if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Cuisine), q) {
			matched = append(matched, r)
		}
	}

	return matched
}

// GetMenu returns the menu for a restaurant.
func (f *FoodDelivery) GetMenu(restaurantID string) ([]MenuItem, error) {
	if restaurantID == "" {
		return nil, &models.ValidationError{Field: "restaurant_id", Message: "is required"}
	}

	return sampleMenu, nil
}

// OrderItem is one line of a food order.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderRequest is the payload for PlaceOrder.
type OrderRequest struct {
	ProviderName string      `json:"provider_name"`
	RestaurantID string      `json:"restaurant_id"`
	Items        []OrderItem `json:"items"`
}

func (r *OrderRequest) validate() error {
	if r.RestaurantID == "" {
		return &models.ValidationError{Field: "restaurant_id", Message: "is required"}
	}

	if len(r.Items) == 0 {
		return &models.ValidationError{Field: "items", Message: "at least one item is required"}
	}

	return nil
}

func (r *OrderRequest) total() float64 {
	var sum float64

	for _, item := range r.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}

		sum += item.Price * float64(qty)
	}

	return sum
}

// PlaceOrder accepts an order, assigns it an external id and records it
// as confirmed.
func (f *FoodDelivery) PlaceOrder(ctx context.Context, userID string, req *OrderRequest) (*models.FoodOrder, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	providerName := req.ProviderName
	if providerName == "" {
		providerName = "jarvis-eats"
	}

	order := &models.FoodOrder{
		UserID:       userID,
		ExternalID:   fmt.Sprintf("order-%s", uuid.New().String()),
		ProviderName: providerName,
		RestaurantID: req.RestaurantID,
		Status:       "confirmed",
		TotalAmount:  req.total(),
		CreatedAt:    f.now().UTC(),
	}

	if err := f.mirror.UpsertFoodOrder(ctx, order); err != nil {
		return nil, err
	}

	f.logger.Info("order placed",
		zap.String("user_id", userID),
		zap.String("order_id", order.ExternalID),
		zap.Float64("total", order.TotalAmount))

	return order, nil
}

// OrderStatus returns an order, advancing its status by how long ago it
// was placed. Confirmed orders move through preparing and
// out_for_delivery to delivered.
func (f *FoodDelivery) OrderStatus(ctx context.Context, userID, orderID string) (*models.FoodOrder, error) {
	if orderID == "" {
		return nil, &models.ValidationError{Field: "order_id", Message: "is required"}
	}

	orders, err := f.mirror.ListFoodOrders(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		order := &orders[i]
		if order.ExternalID != orderID {
			continue
		}

		status := orderProgress(f.now().Sub(order.CreatedAt), order.Status)
		if status != order.Status {
			order.Status = status
			if err := f.mirror.UpsertFoodOrder(ctx, order); err != nil {
				return nil, err
			}
		}

		return order, nil
	}

	return nil, models.ErrNotFound
}

func orderProgress(age time.Duration, current string) string {
	if current == "cancelled" {
		return current
	}

	switch {
	case age > 45*time.Minute:
		return "delivered"
	case age > 30*time.Minute:
		return "out_for_delivery"
	case age > 15*time.Minute:
		return "preparing"
	default:
		return current
	}
}

// ListOrders returns the user's recorded orders.
func (f *FoodDelivery) ListOrders(ctx context.Context, userID string) ([]models.FoodOrder, error) {
	return f.mirror.ListFoodOrders(ctx, userID)
}
