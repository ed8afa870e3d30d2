package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supabase-community/supabase-go"

	"github.com/deliveryflow/agent/internal/domain"
)

// Row is the orders table shape.
type Row struct {
	ID              string             `json:"id,omitempty"`
	RestaurantID    string             `json:"restaurant_id"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerAddress string             `json:"customer_address"`
	Items           []domain.OrderItem `json:"items"`
	TotalAmount     float64            `json:"total_amount"`
	Status          string             `json:"status"`
	CreatedAt       string             `json:"created_at,omitempty"`
}

// Store persists validated orders.
type Store interface {
	// Create writes one order row from a draft. Returns
	// domain.ErrOrderIncomplete without touching the table when the
	// draft does not validate.
	Create(ctx context.Context, draft *domain.OrderDraft) error
}

// SupabaseStore writes to the orders table.
type SupabaseStore struct {
	client *supabase.Client
	logger *slog.Logger
}

func NewSupabaseStore(url, serviceRoleKey string, logger *slog.Logger) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, logger: logger}, nil
}

func (s *SupabaseStore) Create(ctx context.Context, draft *domain.OrderDraft) error {
	if err := draft.Validate(); err != nil {
		return err
	}

	row := &Row{
		RestaurantID:    draft.RestaurantID,
		CustomerName:    draft.CustomerName,
		CustomerPhone:   draft.CustomerPhone,
		CustomerAddress: draft.CustomerAddress,
		Items:           draft.Items,
		TotalAmount:     draft.Total,
		Status:          "pending",
	}

	_, _, err := s.client.From("orders").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("order created",
		slog.String("restaurant_id", draft.RestaurantID),
		slog.String("customer_phone", draft.CustomerPhone),
		slog.Float64("total", draft.Total))
	return nil
}
