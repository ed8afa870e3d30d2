package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/supabase-community/supabase-go"
)

// WebhookLog mirrors a row in the webhook_logs table. Every incoming
// billing event is logged before processing so failed webhooks can be
// replayed by hand.
type WebhookLog struct {
	ID                   int64           `json:"id,omitempty"`
	EventType            string          `json:"event_type"`
	HotmartTransactionID string          `json:"hotmart_transaction_id"`
	Payload              json.RawMessage `json:"payload"`
	Processed            bool            `json:"processed"`
	ErrorMessage         string          `json:"error_message,omitempty"`
}

// SubscriptionRow mirrors a row in the subscriptions table.
type SubscriptionRow struct {
	UserID               string         `json:"user_id"`
	HotmartTransactionID string         `json:"hotmart_transaction_id"`
	Status               string         `json:"status"`
	PlanName             string         `json:"plan_name"`
	PlanType             string         `json:"plan_type"`
	Amount               float64        `json:"amount"`
	Currency             string         `json:"currency"`
	MonthlyAILimit       int            `json:"monthly_ai_limit"`
	MonthlyMessagesLimit int            `json:"monthly_messages_limit"`
	MonthlyImagesLimit   int            `json:"monthly_images_limit"`
	Features             map[string]any `json:"features"`
	StartDate            time.Time      `json:"start_date"`
}

// Store persists billing webhook logs and subscription rows.
type Store interface {
	LogWebhook(ctx context.Context, log *WebhookLog) error
	MarkProcessed(ctx context.Context, transactionID string) error
	RecordError(ctx context.Context, transactionID, message string) error
	CreateSubscription(ctx context.Context, row *SubscriptionRow) error
	UpdateSubscriptionStatus(ctx context.Context, transactionID, status string) error
}

// SupabaseStore is the production Store backed by Supabase Postgres.
type SupabaseStore struct {
	client *supabase.Client
	logger *slog.Logger
}

func NewSupabaseStore(client *supabase.Client, logger *slog.Logger) *SupabaseStore {
	return &SupabaseStore{client: client, logger: logger}
}

func (s *SupabaseStore) LogWebhook(ctx context.Context, log *WebhookLog) error {
	_, _, err := s.client.From("webhook_logs").
		Insert(log, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("logging webhook: %w", err)
	}
	return nil
}

func (s *SupabaseStore) MarkProcessed(ctx context.Context, transactionID string) error {
	_, _, err := s.client.From("webhook_logs").
		Update(map[string]any{"processed": true}, "", "").
		Eq("hotmart_transaction_id", transactionID).
		Execute()
	if err != nil {
		return fmt.Errorf("marking webhook processed: %w", err)
	}
	return nil
}

// RecordError closes out a failed webhook: the row is marked processed
// with the error attached, so operators replay by transaction ID rather
// than by an unprocessed flag.
func (s *SupabaseStore) RecordError(ctx context.Context, transactionID, message string) error {
	_, _, err := s.client.From("webhook_logs").
		Update(map[string]any{
			"processed":     true,
			"error_message": message,
		}, "", "").
		Eq("hotmart_transaction_id", transactionID).
		Execute()
	if err != nil {
		return fmt.Errorf("recording webhook error: %w", err)
	}
	return nil
}

func (s *SupabaseStore) CreateSubscription(ctx context.Context, row *SubscriptionRow) error {
	_, _, err := s.client.From("subscriptions").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}
	s.logger.Info("subscription created",
		"transaction_id", row.HotmartTransactionID,
		"plan_type", row.PlanType)
	return nil
}

func (s *SupabaseStore) UpdateSubscriptionStatus(ctx context.Context, transactionID, status string) error {
	_, _, err := s.client.From("subscriptions").
		Update(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}, "", "").
		Eq("hotmart_transaction_id", transactionID).
		Execute()
	if err != nil {
		return fmt.Errorf("updating subscription status: %w", err)
	}
	s.logger.Info("subscription status updated",
		"transaction_id", transactionID,
		"status", status)
	return nil
}
