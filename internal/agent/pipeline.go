// Package agent runs the message pipeline: normalize media, load the
// tenant's catalog, assemble the prompt, call the model, classify the
// reply, and fan out persistence, delivery, ordering and analytics.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deliveryflow/agent/internal/analytics"
	"github.com/deliveryflow/agent/internal/catalog"
	"github.com/deliveryflow/agent/internal/conversation"
	"github.com/deliveryflow/agent/internal/domain"
	"github.com/deliveryflow/agent/internal/media"
	"github.com/deliveryflow/agent/internal/messaging/evolution"
	"github.com/deliveryflow/agent/internal/orders"
	"github.com/deliveryflow/agent/internal/provider"
	"github.com/deliveryflow/agent/internal/storage/sqlite"
	"github.com/deliveryflow/agent/internal/tokens"
)

const (
	apologyMessage  = "Desculpe, estou com dificuldades técnicas. Pode tentar novamente?"
	fallbackMessage = "Desculpe, não entendi. Pode repetir?"
)

// Options tune the prompt assembly.
type Options struct {
	Temperature  float64
	MaxTokens    int
	HistoryLimit int
	TokenBudget  int
}

// Pipeline wires the stages together. Every collaborator is an interface
// so tests can run the whole flow with stubs.
type Pipeline struct {
	catalog   catalog.Loader
	recorder  conversation.Recorder
	stages    conversation.StageStore
	chat      provider.Chat
	sender    evolution.Sender
	media     media.Processor
	orders    orders.Store
	pixels    analytics.ConfigStore
	analytics analytics.Dispatcher
	audit     *sqlite.Store
	counter   *tokens.Counter
	opts      Options
	logger    *slog.Logger
}

// PipelineDeps carries the collaborators for NewPipeline. Audit, orders,
// pixels and analytics may be nil; those stages are skipped.
type PipelineDeps struct {
	Catalog   catalog.Loader
	Recorder  conversation.Recorder
	Stages    conversation.StageStore
	Chat      provider.Chat
	Sender    evolution.Sender
	Media     media.Processor
	Orders    orders.Store
	Pixels    analytics.ConfigStore
	Analytics analytics.Dispatcher
	Audit     *sqlite.Store
	Counter   *tokens.Counter
}

func NewPipeline(deps PipelineDeps, opts Options, logger *slog.Logger) *Pipeline {
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 1000
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = 10
	}

	return &Pipeline{
		catalog:   deps.Catalog,
		recorder:  deps.Recorder,
		stages:    deps.Stages,
		chat:      deps.Chat,
		sender:    deps.Sender,
		media:     deps.Media,
		orders:    deps.Orders,
		pixels:    deps.Pixels,
		analytics: deps.Analytics,
		audit:     deps.Audit,
		counter:   deps.Counter,
		opts:      opts,
		logger:    logger,
	}
}

// Process runs one inbound message through the pipeline and returns the
// reply. It fails only when the request is unusable (unknown tenant);
// downstream trouble degrades to an apology reply that is still
// persisted and delivered.
func (p *Pipeline) Process(ctx context.Context, req *domain.AgentRequest) (*domain.AgentResponse, error) {
	start := time.Now()

	content := req.Content
	switch req.MessageType {
	case domain.MessageAudio:
		content = p.media.ProcessAudio(ctx, req.MediaURL)
	case domain.MessageImage:
		content = p.media.ProcessImage(ctx, req.MediaURL)
	}

	snap, err := p.catalog.LoadSnapshot(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant context: %w", err)
	}

	convID := req.ConversationID
	if convID == "" {
		convID = conversation.DefaultConversationID(req.Platform, req.CustomerPhone)
	}

	history, err := p.recorder.History(ctx, convID, p.opts.HistoryLimit)
	if err != nil {
		p.logger.Warn("failed to load conversation history",
			slog.String("conversation_id", convID),
			slog.String("error", err.Error()))
		history = nil
	}
	history = trimToBudget(p.counter, history, content, p.opts.TokenBudget)

	stage, err := p.stages.Stage(ctx, convID)
	if err != nil {
		p.logger.Warn("failed to load conversation stage",
			slog.String("conversation_id", convID),
			slog.String("error", err.Error()))
		stage = domain.StageGreeting
	}

	resp, chatResp, chatErr := p.generate(ctx, snap, history, content, req.Platform)
	if chatErr != nil {
		p.logger.Error("model call failed",
			slog.String("conversation_id", convID),
			slog.String("error", chatErr.Error()))
	}

	newStage := stage
	if resp.NextAction != "" {
		var damped domain.NextAction
		newStage, damped = conversation.Advance(stage, resp.NextAction)
		resp.NextAction = damped
		if err := p.stages.SetStage(ctx, convID, newStage); err != nil {
			p.logger.Warn("failed to persist conversation stage",
				slog.String("conversation_id", convID),
				slog.String("error", err.Error()))
		}
	}

	// The transcript row is written before delivery: a send failure must
	// not lose the exchange.
	row := &conversation.Row{
		RestaurantID:   req.RestaurantID,
		ConversationID: convID,
		CustomerPhone:  req.CustomerPhone,
		CustomerName:   req.CustomerName,
		Platform:       string(req.Platform),
		Message:        content,
		Response:       resp.Content,
		MessageType:    string(req.MessageType),
	}
	if err := p.recorder.Append(ctx, row); err != nil {
		p.logger.Error("failed to save conversation",
			slog.String("conversation_id", convID),
			slog.String("error", err.Error()))
	}

	if err := p.sender.SendText(ctx, req.CustomerPhone, resp.Content); err != nil {
		p.logger.Error("failed to send response",
			slog.String("customer_phone", req.CustomerPhone),
			slog.String("error", err.Error()))
	}

	if resp.ShouldPrintOrder {
		p.finalizeOrder(ctx, snap, history, req, content, resp)
	}

	p.recordAudit(ctx, req, convID, content, resp, chatResp, newStage, chatErr, time.Since(start))

	return resp, nil
}

// generate assembles the prompt and calls the model. Failures degrade to
// the apology reply rather than propagating.
func (p *Pipeline) generate(ctx context.Context, snap *catalog.Snapshot, history []conversation.Row, content string, platform domain.Platform) (*domain.AgentResponse, *provider.ChatResponse, error) {
	chatReq := &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: buildSystemPrompt(snap, platform)},
			{Role: "user", Content: buildConversationContext(history, content)},
		},
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	}

	chatResp, err := p.chat.Chat(ctx, chatReq)
	if err != nil {
		return &domain.AgentResponse{
			ResponseType: "text",
			Content:      apologyMessage,
		}, nil, err
	}

	aiMessage := chatResp.Content
	if aiMessage == "" {
		aiMessage = fallbackMessage
	}

	analysis := classify(aiMessage)
	return &domain.AgentResponse{
		ResponseType:     "text",
		Content:          aiMessage,
		ShouldPrintOrder: analysis.ShouldPrintOrder,
		NextAction:       analysis.NextAction,
	}, chatResp, nil
}

// finalizeOrder extracts a draft from the transcript and writes an order
// row when it validates. An incomplete draft is logged and skipped; no
// placeholder rows.
func (p *Pipeline) finalizeOrder(ctx context.Context, snap *catalog.Snapshot, history []conversation.Row, req *domain.AgentRequest, content string, resp *domain.AgentResponse) {
	if p.orders == nil {
		return
	}

	draft := orders.Extract(snap, history, req, content)
	if err := draft.Validate(); err != nil {
		p.logger.Warn("order confirmed but draft incomplete, skipping order row",
			slog.String("restaurant_id", req.RestaurantID),
			slog.String("customer_phone", req.CustomerPhone))
		return
	}
	resp.OrderData = draft

	if err := p.orders.Create(ctx, draft); err != nil {
		p.logger.Error("failed to create order",
			slog.String("restaurant_id", req.RestaurantID),
			slog.String("error", err.Error()))
		return
	}

	p.dispatchConversion(ctx, req, draft)
}

func (p *Pipeline) dispatchConversion(ctx context.Context, req *domain.AgentRequest, draft *domain.OrderDraft) {
	if p.pixels == nil || p.analytics == nil {
		return
	}

	cfg, err := p.pixels.PixelConfig(ctx, req.RestaurantID)
	if err != nil {
		p.logger.Warn("failed to load pixel config",
			slog.String("restaurant_id", req.RestaurantID),
			slog.String("error", err.Error()))
		return
	}

	event := &analytics.Event{
		Name:          "Purchase",
		RestaurantID:  req.RestaurantID,
		CustomerPhone: req.CustomerPhone,
		Value:         draft.Total,
		Currency:      "BRL",
	}
	if err := p.analytics.Dispatch(ctx, cfg, event); err != nil {
		p.logger.Warn("failed to dispatch conversion event",
			slog.String("restaurant_id", req.RestaurantID),
			slog.String("error", err.Error()))
	}
}

func (p *Pipeline) recordAudit(ctx context.Context, req *domain.AgentRequest, convID, content string, resp *domain.AgentResponse, chatResp *provider.ChatResponse, stage domain.Stage, chatErr error, elapsed time.Duration) {
	if p.audit == nil {
		return
	}

	in := &sqlite.Interaction{
		ID:                uuid.New().String(),
		RestaurantID:      req.RestaurantID,
		ConversationID:    convID,
		Platform:          string(req.Platform),
		MessageType:       string(req.MessageType),
		CustomerPhone:     req.CustomerPhone,
		CustomerMessage:   content,
		AssistantResponse: resp.Content,
		NextAction:        string(resp.NextAction),
		Stage:             string(stage),
		ShouldPrintOrder:  resp.ShouldPrintOrder,
		DurationNS:        elapsed.Nanoseconds(),
	}
	if chatResp != nil {
		in.Model = chatResp.Model
		in.PromptTokens = chatResp.PromptTokens
		in.CompletionTokens = chatResp.CompletionTokens
	}
	if chatErr != nil {
		in.ErrorMessage = chatErr.Error()
	}

	if err := p.audit.Record(ctx, in); err != nil {
		p.logger.Warn("failed to record interaction audit",
			slog.String("conversation_id", convID),
			slog.String("error", err.Error()))
	}
}
