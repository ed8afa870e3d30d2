package hotmart

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deliveryflow/agent/internal/billing"
	"github.com/deliveryflow/agent/internal/server"
)

const (
	eventPurchaseApproved         = "PURCHASE_APPROVED"
	eventPurchaseCanceled         = "PURCHASE_CANCELED"
	eventPurchaseRefunded         = "PURCHASE_REFUNDED"
	eventPurchaseDelayed          = "PURCHASE_DELAYED"
	eventSubscriptionCancellation = "SUBSCRIPTION_CANCELLATION"
)

// Handler is the POST /webhooks/hotmart endpoint.
type Handler struct {
	token       string
	store       billing.Store
	provisioner AccountCreator
	mailer      billing.Mailer
	logger      *slog.Logger
}

// AccountCreator is the slice of billing.Provisioner the handler needs.
type AccountCreator interface {
	CreateAccount(email, name, transactionID, planType string) (*billing.ProvisionedAccount, error)
}

func NewHandler(token string, store billing.Store, provisioner AccountCreator, mailer billing.Mailer, logger *slog.Logger) *Handler {
	return &Handler{
		token:       token,
		store:       store,
		provisioner: provisioner,
		mailer:      mailer,
		logger:      logger,
	}
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Hotmart-Hottok") != h.token {
		writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: "Invalid webhook token"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	tx := payload.Data.Purchase.Transaction
	server.AddLogField(r.Context(), "hotmart_event", payload.Event)
	server.AddLogField(r.Context(), "transaction_id", tx)

	if err := h.store.LogWebhook(r.Context(), &billing.WebhookLog{
		EventType:            payload.Event,
		HotmartTransactionID: tx,
		Payload:              json.RawMessage(body),
		Processed:            false,
	}); err != nil {
		h.logger.Error("webhook log insert failed", slog.String("error", err.Error()))
	}

	if err := h.process(r, &payload); err != nil {
		server.AddError(r.Context(), err)
		if recErr := h.store.RecordError(r.Context(), tx, err.Error()); recErr != nil {
			h.logger.Error("webhook error record failed", slog.String("error", recErr.Error()))
		}
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Error: "Internal server error", Details: err.Error()})
		return
	}

	if err := h.store.MarkProcessed(r.Context(), tx); err != nil {
		h.logger.Error("webhook mark processed failed", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, &webhookResponse{
		Success: true,
		Message: "Webhook processed successfully",
	})
}

func (h *Handler) process(r *http.Request, payload *WebhookPayload) error {
	switch payload.Event {
	case eventPurchaseApproved:
		return h.handleApproved(r, payload)
	case eventPurchaseCanceled, eventSubscriptionCancellation:
		return h.handleCancellation(r, payload, "cancelled")
	case eventPurchaseRefunded:
		return h.handleCancellation(r, payload, "refunded")
	case eventPurchaseDelayed:
		return h.store.UpdateSubscriptionStatus(r.Context(), payload.Data.Purchase.Transaction, "overdue")
	default:
		h.logger.Info("unhandled hotmart event", slog.String("event", payload.Event))
		return nil
	}
}

func (h *Handler) handleApproved(r *http.Request, payload *WebhookPayload) error {
	plan := billing.DeterminePlan(payload.Data.Product.Name)
	buyer := payload.Data.Buyer
	tx := payload.Data.Purchase.Transaction

	account, err := h.provisioner.CreateAccount(buyer.Email, buyer.Name, tx, plan.Type)
	if err != nil {
		return err
	}

	row := &billing.SubscriptionRow{
		UserID:               account.UserID,
		HotmartTransactionID: tx,
		Status:               "active",
		PlanName:             payload.Data.Product.Name,
		PlanType:             plan.Type,
		Amount:               payload.Data.Purchase.Price.Value,
		Currency:             payload.Data.Purchase.Price.CurrencyValue,
		MonthlyAILimit:       plan.MonthlyAILimit,
		MonthlyMessagesLimit: plan.MonthlyMessagesLimit,
		MonthlyImagesLimit:   plan.MonthlyImagesLimit,
		Features:             plan.Features,
		StartDate:            startDate(payload.Data.Purchase.ApprovedDate),
	}
	if err := h.store.CreateSubscription(r.Context(), row); err != nil {
		return err
	}

	// Credentials only exist in memory at this point, so a failed email
	// would strand the buyer without access. Surface it.
	return h.mailer.SendWelcome(r.Context(), account, buyer.Name, plan)
}

func (h *Handler) handleCancellation(r *http.Request, payload *WebhookPayload, status string) error {
	tx := payload.Data.Purchase.Transaction
	if err := h.store.UpdateSubscriptionStatus(r.Context(), tx, status); err != nil {
		return err
	}

	plan := billing.DeterminePlan(payload.Data.Product.Name)
	buyer := payload.Data.Buyer
	if err := h.mailer.SendCancellation(r.Context(), buyer.Email, buyer.Name, plan); err != nil {
		h.logger.Error("cancellation email failed",
			slog.String("transaction_id", tx),
			slog.String("error", err.Error()))
	}
	return nil
}

// startDate converts Hotmart's approved_date (epoch milliseconds) to
// the subscription start, falling back to now when the field is absent.
func startDate(approvedMillis int64) time.Time {
	if approvedMillis > 0 {
		return time.UnixMilli(approvedMillis).UTC()
	}
	return time.Now().UTC()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
