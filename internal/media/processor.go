// Package media normalizes audio and image messages into text before the
// prompt is assembled. Failures never abort the pipeline; they degrade to
// pt-BR fallback phrases the model can respond to.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	defaultWhisperURL = "https://api.openai.com/v1"
	whisperModel      = "whisper-1"

	audioUnintelligible = "Não consegui entender o áudio"
	audioFallback       = "Desculpe, não consegui processar seu áudio. Pode repetir por texto?"
	imageReceived       = "Recebi sua imagem! Por favor, me diga o que gostaria de pedir do nosso cardápio."
)

// Processor turns media messages into prompt text.
type Processor interface {
	ProcessAudio(ctx context.Context, mediaURL string) string
	ProcessImage(ctx context.Context, mediaURL string) string
}

// ClientOption configures the Whisper processor.
type ClientOption func(*WhisperProcessor)

// WithBaseURL sets a custom transcription API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(p *WhisperProcessor) {
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(p *WhisperProcessor) {
		p.httpClient = httpClient
	}
}

// WhisperProcessor transcribes voice notes through the OpenAI
// transcription endpoint.
type WhisperProcessor struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewWhisperProcessor(apiKey string, logger *slog.Logger, opts ...ClientOption) *WhisperProcessor {
	p := &WhisperProcessor{
		apiKey:     apiKey,
		baseURL:    defaultWhisperURL,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessAudio downloads the voice note and transcribes it. Any failure
// returns the pt-BR fallback so the conversation keeps moving.
func (p *WhisperProcessor) ProcessAudio(ctx context.Context, mediaURL string) string {
	text, err := p.transcribe(ctx, mediaURL)
	if err != nil {
		p.logger.Warn("audio transcription failed",
			slog.String("media_url", mediaURL),
			slog.String("error", err.Error()))
		return audioFallback
	}
	if text == "" {
		return audioUnintelligible
	}
	return text
}

// ProcessImage returns the canned menu nudge. Image recognition is a
// TODO once the catalog has per-product photos to match against.
func (p *WhisperProcessor) ProcessImage(ctx context.Context, mediaURL string) string {
	return imageReceived
}

func (p *WhisperProcessor) transcribe(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio download returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.ogg")
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio to form: %w", err)
	}
	if err := writer.WriteField("model", whisperModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}
	apiReq.Header.Set("Content-Type", writer.FormDataContentType())
	apiReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	apiResp, err := p.httpClient.Do(apiReq)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer apiResp.Body.Close()

	respBody, err := io.ReadAll(apiResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}
	if apiResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API error (status %d): %s", apiResp.StatusCode, string(respBody))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal transcription: %w", err)
	}
	return result.Text, nil
}
