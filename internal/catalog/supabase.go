package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/deliveryflow/agent/internal/domain"
)

// Loader resolves tenants and loads their menu context. The interface exists
// so the agent pipeline can be tested without a live PostgREST endpoint.
type Loader interface {
	// GetTenant fetches a restaurant by ID. Returns
	// domain.ErrTenantNotFound when no row matches.
	GetTenant(ctx context.Context, restaurantID string) (*Restaurant, error)

	// ResolveInstance maps an Evolution instance key to its restaurant.
	// Falls back to the first restaurant when no mapping exists.
	ResolveInstance(ctx context.Context, instanceKey string) (*Restaurant, error)

	// LoadSnapshot loads the full prompt context for a tenant. Catalog
	// sub-queries degrade to empty slices on failure; only a missing
	// tenant is fatal.
	LoadSnapshot(ctx context.Context, restaurantID string) (*Snapshot, error)
}

// Store is the Supabase-backed Loader.
type Store struct {
	client *supabase.Client
	logger *slog.Logger
}

func NewStore(url, serviceRoleKey string, logger *slog.Logger) (*Store, error) {
	client, err := supabase.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Store{client: client, logger: logger}, nil
}

func (s *Store) GetTenant(ctx context.Context, restaurantID string) (*Restaurant, error) {
	var restaurant Restaurant
	_, err := s.client.From("restaurants").
		Select("*", "", false).
		Eq("id", restaurantID).
		Single().
		ExecuteTo(&restaurant)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, restaurantID)
	}
	return &restaurant, nil
}

func (s *Store) ResolveInstance(ctx context.Context, instanceKey string) (*Restaurant, error) {
	if instanceKey != "" {
		var restaurants []Restaurant
		_, err := s.client.From("restaurants").
			Select("*", "", false).
			Eq("instance_key", instanceKey).
			ExecuteTo(&restaurants)
		if err == nil && len(restaurants) > 0 {
			return &restaurants[0], nil
		}
	}

	// No mapping for this instance: route to the first tenant so a
	// fresh deployment with a single restaurant still answers.
	var restaurants []Restaurant
	_, err := s.client.From("restaurants").
		Select("*", "", false).
		Limit(1, "").
		ExecuteTo(&restaurants)
	if err != nil || len(restaurants) == 0 {
		return nil, fmt.Errorf("%w: no restaurant for instance %q", domain.ErrTenantNotFound, instanceKey)
	}
	return &restaurants[0], nil
}

func (s *Store) LoadSnapshot(ctx context.Context, restaurantID string) (*Snapshot, error) {
	restaurant, err := s.GetTenant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Restaurant: *restaurant}
	snap.Products = s.activeProducts(restaurantID)
	snap.Zones = s.activeZones(restaurantID)
	snap.Promotions = s.activePromotions(restaurantID)
	return snap, nil
}

func (s *Store) activeProducts(restaurantID string) []Product {
	var products []Product
	_, err := s.client.From("products").
		Select("*", "", false).
		Eq("restaurant_id", restaurantID).
		Eq("active", "true").
		ExecuteTo(&products)
	if err != nil {
		s.logger.Warn("failed to load products, continuing with empty menu",
			slog.String("restaurant_id", restaurantID),
			slog.String("error", err.Error()))
		return nil
	}
	return products
}

func (s *Store) activeZones(restaurantID string) []DeliveryZone {
	var zones []DeliveryZone
	_, err := s.client.From("delivery_zones").
		Select("*", "", false).
		Eq("restaurant_id", restaurantID).
		Eq("active", "true").
		ExecuteTo(&zones)
	if err != nil {
		s.logger.Warn("failed to load delivery zones",
			slog.String("restaurant_id", restaurantID),
			slog.String("error", err.Error()))
		return nil
	}
	return zones
}

// activePromotions returns promotions that are switched on and whose
// end date has not passed. Expired promotions must never reach the
// prompt.
func (s *Store) activePromotions(restaurantID string) []Promotion {
	var promotions []Promotion
	_, err := s.client.From("promotions").
		Select("*", "", false).
		Eq("restaurant_id", restaurantID).
		Eq("active", "true").
		Gte("end_date", time.Now().UTC().Format(time.RFC3339)).
		ExecuteTo(&promotions)
	if err != nil {
		s.logger.Warn("failed to load promotions",
			slog.String("restaurant_id", restaurantID),
			slog.String("error", err.Error()))
		return nil
	}
	return promotions
}
