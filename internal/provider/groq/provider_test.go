package groq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deliveryflow/agent/internal/provider"
	"github.com/deliveryflow/agent/internal/testutil"
)

func TestProviderChat_Replayed(t *testing.T) {
	r := testutil.Recorder(t, "chat_completion")

	p := NewProvider("test-key", "mixtral-8x7b-32768",
		WithHTTPClient(testutil.Client(r)))

	resp, err := p.Chat(context.Background(), &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: "Você é um atendente virtual da Pizzaria Bella Napoli."},
			{Role: "user", Content: "Oi"},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if !strings.Contains(resp.Content, "Bella Napoli") {
		t.Errorf("Unexpected content: %s", resp.Content)
	}
	if resp.Model != "mixtral-8x7b-32768" {
		t.Errorf("Expected model mixtral-8x7b-32768, got %s", resp.Model)
	}
	if resp.PromptTokens != 42 || resp.CompletionTokens != 28 {
		t.Errorf("Unexpected usage: prompt=%d completion=%d", resp.PromptTokens, resp.CompletionTokens)
	}
}

func TestProviderChat_APIError(t *testing.T) {
	r := testutil.Recorder(t, "chat_completion_error")

	p := NewProvider("test-key", "mixtral-8x7b-32768",
		WithHTTPClient(testutil.Client(r)))

	_, err := p.Chat(context.Background(), &provider.ChatRequest{
		Messages:    []provider.Message{{Role: "user", Content: "Oi"}},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err == nil {
		t.Fatal("Expected error from rate-limited response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Code != "rate_limit_exceeded" {
		t.Errorf("Expected rate_limit_exceeded, got %s", apiErr.Code)
	}
}

func TestClient_BaseURLTrimsTrailingSlash(t *testing.T) {
	c := NewClient("key", WithBaseURL("https://example.com/v1/"))
	if c.baseURL != "https://example.com/v1" {
		t.Errorf("Expected trimmed base URL, got %s", c.baseURL)
	}
}
