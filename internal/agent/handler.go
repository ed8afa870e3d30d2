package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/deliveryflow/agent/internal/domain"
	"github.com/deliveryflow/agent/internal/server"
)

// Handler exposes the pipeline as POST /functions/ai-agent.
type Handler struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewHandler(pipeline *Pipeline, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, logger: logger}
}

type processResponse struct {
	Success  bool                  `json:"success"`
	Response *domain.AgentResponse `json:"response,omitempty"`
	Message  string                `json:"message,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req domain.AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.CustomerPhone == "" || req.RestaurantID == "" {
		h.writeError(w, r, http.StatusBadRequest, "customerPhone and restaurantId are required", domain.ErrInvalidPayload)
		return
	}
	if req.MessageType == "" {
		req.MessageType = domain.MessageText
	}

	server.AddLogField(r.Context(), "restaurant_id", req.RestaurantID)
	server.AddLogField(r.Context(), "platform", string(req.Platform))

	resp, err := h.pipeline.Process(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			h.writeError(w, r, http.StatusNotFound, "restaurant not found", err)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&processResponse{
		Success:  true,
		Response: resp,
		Message:  "Message processed successfully",
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	server.AddError(r.Context(), err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	details := ""
	if err != nil {
		details = err.Error()
	}
	json.NewEncoder(w).Encode(&errorResponse{Error: msg, Details: details})
}
