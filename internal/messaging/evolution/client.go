// Package evolution is the outbound client for the Evolution API, the
// gateway that delivers WhatsApp messages back to customers.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client sends messages through an Evolution API deployment.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Sender is the outbound delivery surface the pipeline depends on.
type Sender interface {
	SendText(ctx context.Context, number, text string) error
	SendAudio(ctx context.Context, number, audioURL string) error
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendAudioRequest struct {
	Number   string `json:"number"`
	AudioURL string `json:"audioUrl"`
}

// SendText delivers a plain text message to a phone number.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	return c.post(ctx, "/message/sendText", &sendTextRequest{Number: number, Text: text})
}

// SendAudio delivers an audio message by URL.
func (c *Client) SendAudio(ctx context.Context, number, audioURL string) error {
	return c.post(ctx, "/message/sendAudio", &sendAudioRequest{Number: number, AudioURL: audioURL})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("evolution API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
