package agent

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postAgent(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/functions/ai-agent", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ProcessesMessage(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{})
	h := NewHandler(env.pipeline, testLogger())

	rec := postAgent(t, h, `{
		"platform": "whatsapp",
		"messageType": "text",
		"content": "Oi",
		"customerPhone": "5511999999999",
		"customerName": "Ana",
		"restaurantId": "rest-1",
		"conversationId": "whatsapp_5511999999999"
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp processResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success true")
	}
	if resp.Response == nil || resp.Response.Content == "" {
		t.Error("Expected reply content")
	}
	if resp.Message != "Message processed successfully" {
		t.Errorf("Unexpected message: %q", resp.Message)
	}
}

func TestHandler_ModelFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{err: errors.New("upstream down")})
	h := NewHandler(env.pipeline, testLogger())

	rec := postAgent(t, h, `{
		"platform": "whatsapp",
		"content": "Oi",
		"customerPhone": "5511999999999",
		"restaurantId": "rest-1"
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp processResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success {
		t.Error("Model failures must not fail the webhook call")
	}
	if resp.Response.Content != apologyMessage {
		t.Errorf("Expected apology, got %q", resp.Response.Content)
	}
}

func TestHandler_MissingFields(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{})
	h := NewHandler(env.pipeline, testLogger())

	rec := postAgent(t, h, `{"platform": "whatsapp", "content": "Oi"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestHandler_UnknownTenant(t *testing.T) {
	env := newTestEnv(nil, &stubChat{})
	h := NewHandler(env.pipeline, testLogger())

	rec := postAgent(t, h, `{
		"platform": "whatsapp",
		"content": "Oi",
		"customerPhone": "5511999999999",
		"restaurantId": "missing"
	}`)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHandler_InvalidJSON(t *testing.T) {
	env := newTestEnv(pizzeriaSnapshot(), &stubChat{})
	h := NewHandler(env.pipeline, testLogger())

	rec := postAgent(t, h, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
