package analytics

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// ConfigStore resolves each tenant's pixel configuration.
type ConfigStore interface {
	// PixelConfig returns the tenant's config, or nil when the tenant
	// has no conversion tracking set up.
	PixelConfig(ctx context.Context, restaurantID string) (*PixelConfig, error)
}

// SupabaseConfigStore reads the pixel_configs table.
type SupabaseConfigStore struct {
	client *supabase.Client
}

func NewSupabaseConfigStore(url, serviceRoleKey string) (*SupabaseConfigStore, error) {
	client, err := supabase.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseConfigStore{client: client}, nil
}

func (s *SupabaseConfigStore) PixelConfig(ctx context.Context, restaurantID string) (*PixelConfig, error) {
	var configs []PixelConfig
	_, err := s.client.From("pixel_configs").
		Select("*", "", false).
		Eq("restaurant_id", restaurantID).
		Eq("is_active", "true").
		ExecuteTo(&configs)
	if err != nil {
		return nil, fmt.Errorf("failed to load pixel config: %w", err)
	}
	if len(configs) == 0 {
		return nil, nil
	}
	return &configs[0], nil
}

// StaticConfigStore serves one fixed config for every tenant. Used in
// tests and single-tenant deployments.
type StaticConfigStore struct {
	Config *PixelConfig
}

func (s *StaticConfigStore) PixelConfig(ctx context.Context, restaurantID string) (*PixelConfig, error) {
	return s.Config, nil
}
