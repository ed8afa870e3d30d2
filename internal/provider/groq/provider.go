// Package groq implements the chat provider on Groq's OpenAI-compatible
// API.
package groq

import (
	"context"
	"fmt"

	"github.com/deliveryflow/agent/internal/provider"
)

// Provider adapts the Groq client to the provider.Chat interface.
type Provider struct {
	client *Client
	model  string
}

// NewProvider creates a Groq chat provider for the given model.
func NewProvider(apiKey, model string, opts ...ClientOption) *Provider {
	return &Provider{
		client: NewClient(apiKey, opts...),
		model:  model,
	}
}

func (p *Provider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	apiReq := &ChatCompletionRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, Message(msg))
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("groq returned no choices")
	}

	out := &provider.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}
	if resp.Usage != nil {
		out.PromptTokens = resp.Usage.PromptTokens
		out.CompletionTokens = resp.Usage.CompletionTokens
	}
	return out, nil
}
