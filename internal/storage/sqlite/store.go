// Package sqlite keeps a local audit trail of every pipeline run: what
// came in, what the model said, how the turn was classified, and how long
// it took. The primary record lives in Supabase; this store exists so an
// operator can inspect a single deployment without touching production
// tables.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Interaction is one audited pipeline run.
type Interaction struct {
	ID                string
	RestaurantID      string
	ConversationID    string
	Platform          string
	MessageType       string
	CustomerPhone     string
	CustomerMessage   string
	AssistantResponse string
	NextAction        string
	Stage             string
	ShouldPrintOrder  bool
	Model             string
	PromptTokens      int
	CompletionTokens  int
	DurationNS        int64
	ErrorMessage      string
	CreatedAt         time.Time
}

// ListOptions filters interaction listings.
type ListOptions struct {
	RestaurantID string
	Limit        int
	Offset       int
}

// Store is the SQLite audit store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the audit database at dbPath, creating the
// parent directory if needed.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			restaurant_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			message_type TEXT NOT NULL,
			customer_phone TEXT NOT NULL,
			customer_message TEXT,
			assistant_response TEXT,
			next_action TEXT,
			stage TEXT,
			should_print_order INTEGER NOT NULL DEFAULT 0,
			model TEXT,
			prompt_tokens INTEGER,
			completion_tokens INTEGER,
			duration_ns INTEGER,
			error_message TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_restaurant ON interactions(restaurant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_conversation ON interactions(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Record inserts one interaction.
func (s *Store) Record(ctx context.Context, in *Interaction) error {
	in.CreatedAt = time.Now()

	query := `INSERT INTO interactions (id, restaurant_id, conversation_id, platform, message_type,
	          customer_phone, customer_message, assistant_response, next_action, stage,
	          should_print_order, model, prompt_tokens, completion_tokens, duration_ns,
	          error_message, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		in.ID, in.RestaurantID, in.ConversationID, in.Platform, in.MessageType,
		in.CustomerPhone, in.CustomerMessage, in.AssistantResponse, in.NextAction, in.Stage,
		boolToInt(in.ShouldPrintOrder), in.Model, in.PromptTokens, in.CompletionTokens, in.DurationNS,
		in.ErrorMessage, in.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}

	return nil
}

// Get retrieves one interaction by ID.
func (s *Store) Get(ctx context.Context, id string) (*Interaction, error) {
	query := `SELECT id, restaurant_id, conversation_id, platform, message_type,
	          customer_phone, customer_message, assistant_response, next_action, stage,
	          should_print_order, model, prompt_tokens, completion_tokens, duration_ns,
	          error_message, created_at
	          FROM interactions WHERE id = ?`

	var in Interaction
	var shouldPrint int

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&in.ID, &in.RestaurantID, &in.ConversationID, &in.Platform, &in.MessageType,
		&in.CustomerPhone, &in.CustomerMessage, &in.AssistantResponse, &in.NextAction, &in.Stage,
		&shouldPrint, &in.Model, &in.PromptTokens, &in.CompletionTokens, &in.DurationNS,
		&in.ErrorMessage, &in.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("interaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}

	in.ShouldPrintOrder = shouldPrint != 0
	return &in, nil
}

// List returns interactions for a restaurant, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Interaction, error) {
	query := `SELECT id, restaurant_id, conversation_id, platform, message_type,
	          customer_phone, customer_message, assistant_response, next_action, stage,
	          should_print_order, model, prompt_tokens, completion_tokens, duration_ns,
	          error_message, created_at
	          FROM interactions WHERE restaurant_id = ?
	          ORDER BY created_at DESC
	          LIMIT ? OFFSET ?`

	limit := opts.Limit
	if limit == 0 {
		limit = 100 // default limit
	}

	rows, err := s.db.QueryContext(ctx, query, opts.RestaurantID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*Interaction
	for rows.Next() {
		var in Interaction
		var shouldPrint int

		if err := rows.Scan(
			&in.ID, &in.RestaurantID, &in.ConversationID, &in.Platform, &in.MessageType,
			&in.CustomerPhone, &in.CustomerMessage, &in.AssistantResponse, &in.NextAction, &in.Stage,
			&shouldPrint, &in.Model, &in.PromptTokens, &in.CompletionTokens, &in.DurationNS,
			&in.ErrorMessage, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}

		in.ShouldPrintOrder = shouldPrint != 0
		interactions = append(interactions, &in)
	}

	return interactions, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
