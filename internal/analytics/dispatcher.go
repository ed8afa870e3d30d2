// Package analytics forwards conversion events to each tenant's own ad
// pixel. Configuration is per restaurant; a tenant without a pixel simply
// gets the no-op dispatcher.
package analytics

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultGraphURL = "https://graph.facebook.com/v18.0"

// PixelConfig is one tenant's conversion tracking setup.
type PixelConfig struct {
	RestaurantID string `json:"restaurant_id"`
	PixelID      string `json:"pixel_id"`
	AccessToken  string `json:"access_token"`
	IsActive     bool   `json:"is_active"`
}

// Event is a conversion moment worth reporting.
type Event struct {
	Name         string
	RestaurantID string
	// CustomerPhone is hashed before leaving the process.
	CustomerPhone string
	Value         float64
	Currency      string
}

// Dispatcher delivers conversion events. Implementations must not block
// the message pipeline on delivery problems.
type Dispatcher interface {
	Dispatch(ctx context.Context, cfg *PixelConfig, event *Event) error
}

// MetaDispatcher posts events to the Meta Conversions API.
type MetaDispatcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures the dispatcher.
type ClientOption func(*MetaDispatcher)

// WithBaseURL sets a custom Graph API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(d *MetaDispatcher) {
		d.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(d *MetaDispatcher) {
		d.httpClient = httpClient
	}
}

func NewMetaDispatcher(logger *slog.Logger, opts ...ClientOption) *MetaDispatcher {
	d := &MetaDispatcher{
		baseURL:    defaultGraphURL,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type metaEvent struct {
	EventName  string         `json:"event_name"`
	EventTime  int64          `json:"event_time"`
	UserData   map[string]any `json:"user_data"`
	CustomData map[string]any `json:"custom_data,omitempty"`
}

type metaPayload struct {
	Data []metaEvent `json:"data"`
}

func (d *MetaDispatcher) Dispatch(ctx context.Context, cfg *PixelConfig, event *Event) error {
	if cfg == nil || !cfg.IsActive || cfg.PixelID == "" || cfg.AccessToken == "" {
		return nil
	}

	me := metaEvent{
		EventName: event.Name,
		EventTime: time.Now().Unix(),
		UserData: map[string]any{
			"ph": []string{hashPhone(event.CustomerPhone)},
		},
	}
	if event.Value > 0 {
		currency := event.Currency
		if currency == "" {
			currency = "BRL"
		}
		me.CustomData = map[string]any{
			"value":    event.Value,
			"currency": currency,
		}
	}

	body, err := json.Marshal(&metaPayload{Data: []metaEvent{me}})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	url := fmt.Sprintf("%s/%s/events?access_token=%s", d.baseURL, cfg.PixelID, cfg.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("conversions API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	d.logger.Info("conversion event dispatched",
		slog.String("event", event.Name),
		slog.String("restaurant_id", event.RestaurantID),
		slog.String("pixel_id", cfg.PixelID))
	return nil
}

// NoopDispatcher is used for tenants without a pixel and in tests.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(ctx context.Context, cfg *PixelConfig, event *Event) error {
	return nil
}

func hashPhone(phone string) string {
	normalized := strings.TrimSpace(strings.ToLower(phone))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
