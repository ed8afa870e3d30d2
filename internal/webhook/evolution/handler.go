// Package evolution receives Evolution API webhook events, normalizes
// them, and hands them to the message pipeline.
package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/deliveryflow/agent/internal/catalog"
	"github.com/deliveryflow/agent/internal/domain"
	"github.com/deliveryflow/agent/internal/server"
)

const defaultCustomerName = "Cliente"

// Invoker runs the message pipeline. Satisfied by *agent.Pipeline.
type Invoker interface {
	Process(ctx context.Context, req *domain.AgentRequest) (*domain.AgentResponse, error)
}

// Handler is the POST /webhooks/evolution endpoint.
type Handler struct {
	catalog  catalog.Loader
	pipeline Invoker
	logger   *slog.Logger
}

func NewHandler(loader catalog.Loader, pipeline Invoker, logger *slog.Logger) *Handler {
	return &Handler{catalog: loader, pipeline: pipeline, logger: logger}
}

type webhookResponse struct {
	Success    bool                  `json:"success,omitempty"`
	Message    string                `json:"message,omitempty"`
	AIResponse *domain.AgentResponse `json:"aiResponse,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	// Messages we sent ourselves echo back through the webhook; touching
	// them would loop the assistant into talking to itself.
	if payload.Data.Key.FromMe {
		writeJSON(w, http.StatusOK, &webhookResponse{Message: "Ignoring outgoing message"})
		return
	}

	req := Normalize(&payload)
	server.AddLogField(r.Context(), "customer_phone", req.CustomerPhone)
	server.AddLogField(r.Context(), "message_type", string(req.MessageType))

	restaurant, err := h.catalog.ResolveInstance(r.Context(), payload.Instance)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			h.logger.Error("no restaurant for instance",
				slog.String("instance", payload.Instance))
			writeJSON(w, http.StatusNotFound, &errorResponse{Error: "Restaurant not found"})
			return
		}
		server.AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}
	req.RestaurantID = restaurant.ID

	resp, err := h.pipeline.Process(r.Context(), req)
	if err != nil {
		server.AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, &webhookResponse{
		Success:    true,
		Message:    "Webhook processed successfully",
		AIResponse: resp,
	})
}

// Normalize maps the webhook payload to a pipeline request. The
// conversation key is stable per phone number so history accumulates
// across webhook calls.
func Normalize(payload *WebhookPayload) *domain.AgentRequest {
	phone := strings.TrimSuffix(payload.Data.Key.RemoteJid, "@s.whatsapp.net")

	name := payload.Data.PushName
	if name == "" {
		name = defaultCustomerName
	}

	req := &domain.AgentRequest{
		Platform:       domain.PlatformWhatsApp,
		MessageType:    domain.MessageText,
		CustomerPhone:  phone,
		CustomerName:   name,
		ConversationID: "whatsapp_" + phone,
	}

	msg := payload.Data.Message
	switch {
	case msg.Conversation != "":
		req.Content = msg.Conversation
	case msg.AudioMessage != nil:
		req.MessageType = domain.MessageAudio
		req.Content = "Áudio recebido"
		req.MediaURL = msg.AudioMessage.URL
	case msg.ImageMessage != nil:
		req.MessageType = domain.MessageImage
		req.Content = msg.ImageMessage.Caption
		if req.Content == "" {
			req.Content = "Imagem recebida"
		}
		req.MediaURL = msg.ImageMessage.URL
	}

	return req
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
