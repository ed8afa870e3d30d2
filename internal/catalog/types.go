package catalog

import "time"

// Restaurant is a tenant row. Every downstream query is scoped by its ID.
type Restaurant struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	InstanceKey string     `json:"instance_key,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Product is a menu item belonging to a restaurant.
type Product struct {
	ID           string  `json:"id"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	Active       bool    `json:"active"`
}

// DeliveryZone is a neighborhood a restaurant delivers to, with its fee
// and time window in minutes.
type DeliveryZone struct {
	ID              string  `json:"id"`
	RestaurantID    string  `json:"restaurant_id"`
	Neighborhood    string  `json:"neighborhood"`
	DeliveryFee     float64 `json:"delivery_fee"`
	DeliveryTimeMin int     `json:"delivery_time_min"`
	DeliveryTimeMax int     `json:"delivery_time_max"`
	Active          bool    `json:"active"`
}

// Promotion is a time-bounded discount a restaurant runs.
type Promotion struct {
	ID           string     `json:"id"`
	RestaurantID string     `json:"restaurant_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Discount     float64    `json:"discount_percentage,omitempty"`
	Active       bool       `json:"active"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// Snapshot bundles everything the prompt builder needs about one tenant.
// Products, zones and promotions may be empty; Restaurant is always set.
type Snapshot struct {
	Restaurant Restaurant
	Products   []Product
	Zones      []DeliveryZone
	Promotions []Promotion
}
