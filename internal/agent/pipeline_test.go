package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/deliveryflow/agent/internal/analytics"
	"github.com/deliveryflow/agent/internal/catalog"
	"github.com/deliveryflow/agent/internal/conversation"
	"github.com/deliveryflow/agent/internal/domain"
	"github.com/deliveryflow/agent/internal/provider"
	"github.com/deliveryflow/agent/internal/tokens"
)

// stubCatalog serves a fixed snapshot.
type stubCatalog struct {
	snap *catalog.Snapshot
}

func (s *stubCatalog) GetTenant(ctx context.Context, restaurantID string) (*catalog.Restaurant, error) {
	if s.snap == nil {
		return nil, domain.ErrTenantNotFound
	}
	return &s.snap.Restaurant, nil
}

func (s *stubCatalog) ResolveInstance(ctx context.Context, instanceKey string) (*catalog.Restaurant, error) {
	return s.GetTenant(ctx, "")
}

func (s *stubCatalog) LoadSnapshot(ctx context.Context, restaurantID string) (*catalog.Snapshot, error) {
	if s.snap == nil {
		return nil, domain.ErrTenantNotFound
	}
	return s.snap, nil
}

// stubRecorder keeps transcripts in memory.
type stubRecorder struct {
	rows       []conversation.Row
	appendErr  error
	historyErr error
	lastLimit  int
}

func (s *stubRecorder) Append(ctx context.Context, row *conversation.Row) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.rows = append(s.rows, *row)
	return nil
}

func (s *stubRecorder) History(ctx context.Context, conversationID string, limit int) ([]conversation.Row, error) {
	s.lastLimit = limit
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	var out []conversation.Row
	for _, row := range s.rows {
		if row.ConversationID == conversationID {
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// stubChat replays scripted replies.
type stubChat struct {
	replies  []string
	err      error
	requests []*provider.ChatRequest
}

func (s *stubChat) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	reply := "Olá! Como posso ajudar?"
	if len(s.replies) > 0 {
		reply = s.replies[0]
		if len(s.replies) > 1 {
			s.replies = s.replies[1:]
		}
	}
	return &provider.ChatResponse{Content: reply, Model: "mixtral-8x7b-32768", PromptTokens: 10, CompletionTokens: 5}, nil
}

// stubSender records outbound messages.
type stubSender struct {
	texts []string
	err   error
}

func (s *stubSender) SendText(ctx context.Context, number, text string) error {
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubSender) SendAudio(ctx context.Context, number, audioURL string) error {
	return nil
}

// stubMedia returns canned normalizations.
type stubMedia struct{}

func (stubMedia) ProcessAudio(ctx context.Context, mediaURL string) string {
	return "quero uma pizza"
}

func (stubMedia) ProcessImage(ctx context.Context, mediaURL string) string {
	return "Recebi sua imagem! Por favor, me diga o que gostaria de pedir do nosso cardápio."
}

// stubOrders records created orders.
type stubOrders struct {
	created []*domain.OrderDraft
}

func (s *stubOrders) Create(ctx context.Context, draft *domain.OrderDraft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	s.created = append(s.created, draft)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pizzeriaSnapshot() *catalog.Snapshot {
	return &catalog.Snapshot{
		Restaurant: catalog.Restaurant{ID: "rest-1", Name: "Pizzaria Bella Napoli"},
		Products: []catalog.Product{
			{ID: "p1", RestaurantID: "rest-1", Name: "Pizza", Category: "Pizzas", Price: 30.0, Active: true},
		},
		Zones: []catalog.DeliveryZone{
			{ID: "z1", RestaurantID: "rest-1", Neighborhood: "Centro", DeliveryFee: 5.0, DeliveryTimeMin: 30, DeliveryTimeMax: 45, Active: true},
		},
	}
}

type testEnv struct {
	pipeline *Pipeline
	recorder *stubRecorder
	chat     *stubChat
	sender   *stubSender
	orders   *stubOrders
	stages   *conversation.MemoryStageStore
}

func newTestEnv(snap *catalog.Snapshot, chat *stubChat) *testEnv {
	recorder := &stubRecorder{}
	sender := &stubSender{}
	orderStore := &stubOrders{}
	stages := conversation.NewMemoryStageStore()

	p := NewPipeline(PipelineDeps{
		Catalog:   &stubCatalog{snap: snap},
		Recorder:  recorder,
		Stages:    stages,
		Chat:      chat,
		Sender:    sender,
		Media:     stubMedia{},
		Orders:    orderStore,
		Pixels:    &analytics.StaticConfigStore{},
		Analytics: analytics.NoopDispatcher{},
		Counter:   tokens.NewCounter(),
	}, Options{HistoryLimit: 10, TokenBudget: 3000}, testLogger())

	return &testEnv{pipeline: p, recorder: recorder, chat: chat, sender: sender, orders: orderStore, stages: stages}
}

func textRequest(content string) *domain.AgentRequest {
	return &domain.AgentRequest{
		Platform:       domain.PlatformWhatsApp,
		MessageType:    domain.MessageText,
		Content:        content,
		CustomerPhone:  "5511999999999",
		CustomerName:   "Ana",
		RestaurantID:   "rest-1",
		ConversationID: "whatsapp_5511999999999",
	}
}

func TestProcess_EmptyCatalogStillRenders(t *testing.T) {
	snap := &catalog.Snapshot{Restaurant: catalog.Restaurant{ID: "rest-1", Name: "Nova Casa"}}
	env := newTestEnv(snap, &stubChat{})

	resp, err := env.pipeline.Process(context.Background(), textRequest("Oi"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.Content == "" {
		t.Error("Expected a reply even with an empty catalog")
	}

	system := env.chat.requests[0].Messages[0].Content
	if !strings.Contains(system, "CARDÁPIO DISPONÍVEL:") {
		t.Error("Expected menu section header even when empty")
	}
	if !strings.Contains(system, "Nova Casa") {
		t.Error("Expected restaurant name in system prompt")
	}
}

func TestProcess_GreetingEndToEnd(t *testing.T) {
	chat := &stubChat{replies: []string{"Olá Ana! Nossa Pizza sai por R$ 30.00. Vamos montar seu pedido?"}}
	env := newTestEnv(pizzeriaSnapshot(), chat)

	resp, err := env.pipeline.Process(context.Background(), textRequest("Oi"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	system := chat.requests[0].Messages[0].Content
	if !strings.Contains(system, "Pizza") || !strings.Contains(system, "R$ 30") {
		t.Errorf("Expected menu in system prompt, got: %s", system)
	}

	if len(env.sender.texts) != 1 {
		t.Fatalf("Expected 1 outbound message, got %d", len(env.sender.texts))
	}
	if !strings.Contains(env.sender.texts[0], "Pizza") || !strings.Contains(env.sender.texts[0], "R$ 30") {
		t.Errorf("Unexpected outbound text: %s", env.sender.texts[0])
	}
	if env.sender.texts[0] != resp.Content {
		t.Errorf("Outbound text should match the returned reply")
	}

	if len(env.recorder.rows) != 1 {
		t.Fatalf("Expected 1 conversation row, got %d", len(env.recorder.rows))
	}
	row := env.recorder.rows[0]
	if row.Message != "Oi" {
		t.Errorf("Expected customer message %q, got %q", "Oi", row.Message)
	}
	if row.Response != resp.Content {
		t.Errorf("Expected stored response to match reply")
	}
}

func TestProcess_UnknownTenantFails(t *testing.T) {
	env := newTestEnv(nil, &stubChat{})

	_, err := env.pipeline.Process(context.Background(), textRequest("Oi"))
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Fatalf("Expected ErrTenantNotFound, got %v", err)
	}
	if len(env.sender.texts) != 0 {
		t.Error("Nothing should be sent for an unknown tenant")
	}
	if len(env.recorder.rows) != 0 {
		t.Error("Nothing should be persisted for an unknown tenant")
	}
}

func TestProcess_ConfirmedKeywordSetsShouldPrintOrder(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{
		replies: []string{"Pedido confirmado! Vou enviar para a cozinha. 🍕"},
	})

	resp, err := env.pipeline.Process(context.Background(), textRequest("Pode confirmar"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !resp.ShouldPrintOrder {
		t.Error("Expected shouldPrintOrder for 'pedido confirmado' reply")
	}
}

func TestProcess_HistoryLimitAndOrder(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{})
	ctx := context.Background()

	// Seed 12 prior exchanges on the same conversation.
	for i := 0; i < 12; i++ {
		env.recorder.rows = append(env.recorder.rows, conversation.Row{
			ConversationID: "whatsapp_5511999999999",
			Message:        "mensagem " + string(rune('a'+i)),
			Response:       "resposta " + string(rune('a'+i)),
		})
	}

	if _, err := env.pipeline.Process(ctx, textRequest("E agora?")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if env.recorder.lastLimit != 10 {
		t.Errorf("Expected history limit 10, got %d", env.recorder.lastLimit)
	}

	userTurn := env.chat.requests[0].Messages[1].Content
	if strings.Contains(userTurn, "mensagem a") || strings.Contains(userTurn, "mensagem b") {
		t.Error("Oldest exchanges beyond the limit must be dropped")
	}
	if !strings.Contains(userTurn, "mensagem c") || !strings.Contains(userTurn, "mensagem l") {
		t.Error("Expected the 10 most recent exchanges in the prompt")
	}
	if strings.Index(userTurn, "mensagem c") > strings.Index(userTurn, "mensagem l") {
		t.Error("History must render oldest first")
	}
}

func TestProcess_ModelFailureStillPersistsAndApologizes(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{err: errors.New("upstream timeout")})

	resp, err := env.pipeline.Process(context.Background(), textRequest("Oi"))
	if err != nil {
		t.Fatalf("Process must not fail on model errors: %v", err)
	}

	if resp.Content != apologyMessage {
		t.Errorf("Expected apology, got %q", resp.Content)
	}
	if len(env.recorder.rows) != 1 {
		t.Fatalf("Expected transcript row despite model failure, got %d", len(env.recorder.rows))
	}
	if env.recorder.rows[0].Response != apologyMessage {
		t.Errorf("Persisted response should be the apology, got %q", env.recorder.rows[0].Response)
	}
	if len(env.sender.texts) != 1 || env.sender.texts[0] != apologyMessage {
		t.Errorf("Apology must still be delivered, got %v", env.sender.texts)
	}
}

func TestProcess_SendFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{})
	env.sender.err = errors.New("instance disconnected")

	if _, err := env.pipeline.Process(context.Background(), textRequest("Oi")); err != nil {
		t.Fatalf("Send failures must be swallowed: %v", err)
	}
	if len(env.recorder.rows) != 1 {
		t.Error("Transcript row must be written before the send attempt")
	}
}

func TestProcess_AudioIsTranscribedBeforePrompting(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{})

	req := textRequest("")
	req.MessageType = domain.MessageAudio
	req.MediaURL = "https://cdn.example.com/voice.ogg"

	if _, err := env.pipeline.Process(context.Background(), req); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	userTurn := env.chat.requests[0].Messages[1].Content
	if !strings.Contains(userTurn, "quero uma pizza") {
		t.Error("Expected transcription in the prompt")
	}
	if env.recorder.rows[0].Message != "quero uma pizza" {
		t.Errorf("Transcript must store the transcription, got %q", env.recorder.rows[0].Message)
	}
}

func TestProcess_FullOrderingScenario(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{
		replies: []string{
			"Olá Ana! Bem-vinda à Pizzaria Bella Napoli! 🍕 Temos Pizza por R$ 30,00. O que vai ser hoje?",
			"Ótima escolha! Uma Pizza então. Pode me passar seu endereço para entrega? Gostaria de adicionar uma bebida?",
			"Perfeito! Uma Pizza para a Rua das Flores, 123. Total: R$ 30,00. Posso confirmar o pedido?",
			"Pedido confirmado! Vou enviar para a cozinha agora. 🍕 Chega em 30-45min!",
		},
	})
	ctx := context.Background()

	turns := []string{
		"Oi",
		"Quero uma Pizza",
		"Meu endereço é Rua das Flores, 123",
		"Sim, pode confirmar",
	}
	var last *domain.AgentResponse
	for _, msg := range turns {
		resp, err := env.pipeline.Process(ctx, textRequest(msg))
		if err != nil {
			t.Fatalf("Process(%q) failed: %v", msg, err)
		}
		last = resp
	}

	if !last.ShouldPrintOrder {
		t.Fatal("Final turn should confirm the order")
	}
	if last.NextAction != domain.ActionComplete {
		t.Errorf("Expected complete, got %s", last.NextAction)
	}

	stage, _ := env.stages.Stage(ctx, "whatsapp_5511999999999")
	if stage != domain.StageCompleted {
		t.Errorf("Expected completed stage, got %s", stage)
	}

	if len(env.orders.created) != 1 {
		t.Fatalf("Expected 1 order, got %d", len(env.orders.created))
	}
	order := env.orders.created[0]
	if order.CustomerName != "Ana" {
		t.Errorf("Expected customer Ana, got %s", order.CustomerName)
	}
	if order.CustomerAddress != "Rua das Flores, 123" {
		t.Errorf("Unexpected address: %q", order.CustomerAddress)
	}
	if order.Total != 30.0 {
		t.Errorf("Expected total 30.0, got %f", order.Total)
	}
	if len(env.recorder.rows) != 4 {
		t.Errorf("Expected 4 transcript rows, got %d", len(env.recorder.rows))
	}
}

func TestProcess_ConfirmationFromGreetingIsDemoted(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{
		replies: []string{"Pedido confirmado! Vou enviar para a cozinha."},
	})

	// Fresh conversation: the very first turn claims completion.
	resp, err := env.pipeline.Process(context.Background(), textRequest("quero finalizar"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if resp.NextAction != domain.ActionConfirmOrder {
		t.Errorf("Expected demotion to confirm_order, got %s", resp.NextAction)
	}
	if !resp.ShouldPrintOrder {
		t.Error("shouldPrintOrder reflects the reply keywords regardless of damping")
	}

	stage, _ := env.stages.Stage(context.Background(), "whatsapp_5511999999999")
	if stage != domain.StageConfirming {
		t.Errorf("Expected confirming stage, got %s", stage)
	}
}

func TestProcess_IncompleteDraftWritesNoOrder(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{
		replies: []string{"Pedido confirmado! Vou enviar para a cozinha."},
	})

	// No product or address ever mentioned.
	if _, err := env.pipeline.Process(context.Background(), textRequest("confirmado?")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(env.orders.created) != 0 {
		t.Errorf("Incomplete drafts must not create orders, got %v", env.orders.created)
	}
}
