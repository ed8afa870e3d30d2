// Package provider abstracts the chat model behind a small interface so
// the pipeline can be tested with stubs and re-pointed at other
// OpenAI-compatible backends.
package provider

import "context"

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries the assembled prompt.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Chat generates one assistant reply for an assembled prompt.
type Chat interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
