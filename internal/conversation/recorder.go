package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/deliveryflow/agent/internal/domain"
)

// Row is one persisted message/response exchange.
type Row struct {
	ID             string `json:"id,omitempty"`
	RestaurantID   string `json:"restaurant_id"`
	ConversationID string `json:"conversation_id"`
	CustomerPhone  string `json:"customer_phone"`
	CustomerName   string `json:"customer_name,omitempty"`
	Platform       string `json:"platform"`
	Message        string `json:"customer_message"`
	Response       string `json:"ai_response"`
	MessageType    string `json:"message_type"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Recorder persists and reads conversation transcripts.
type Recorder interface {
	// Append stores one exchange. Failures are the caller's to swallow;
	// the reply has usually already been computed by the time this runs.
	Append(ctx context.Context, row *Row) error

	// History returns the most recent exchanges for a conversation,
	// oldest first, at most limit rows.
	History(ctx context.Context, conversationID string, limit int) ([]Row, error)
}

// SupabaseRecorder stores transcripts in the conversations table.
type SupabaseRecorder struct {
	client *supabase.Client
	logger *slog.Logger
}

func NewSupabaseRecorder(url, serviceRoleKey string, logger *slog.Logger) (*SupabaseRecorder, error) {
	client, err := supabase.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseRecorder{client: client, logger: logger}, nil
}

func (r *SupabaseRecorder) Append(ctx context.Context, row *Row) error {
	_, _, err := r.client.From("conversations").
		Insert(row, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to store conversation row: %w", err)
	}
	return nil
}

func (r *SupabaseRecorder) History(ctx context.Context, conversationID string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 10
	}

	// Fetch newest-first so the limit keeps the most recent exchanges,
	// then reverse into chronological order for the prompt.
	var rows []Row
	_, err := r.client.From("conversations").
		Select("*", "", false).
		Eq("conversation_id", conversationID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// DefaultConversationID builds the fallback conversation key when the caller
// did not supply one.
func DefaultConversationID(platform domain.Platform, phone string) string {
	return fmt.Sprintf("%s_%s_%d", platform, phone, time.Now().UnixMilli())
}
