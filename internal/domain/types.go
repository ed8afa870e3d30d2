// Package domain defines the canonical types exchanged between the
// webhook adapters, the conversational pipeline, and its stores.
package domain

// Platform identifies the messaging channel a customer wrote in from.
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformInstagram Platform = "instagram"
)

// MessageType classifies the inbound message payload.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageAudio MessageType = "audio"
	MessageImage MessageType = "image"
)

// NextAction is the coarse step of the ordering flow the assistant's
// reply suggests.
type NextAction string

const (
	ActionCollectInfo   NextAction = "collect_info"
	ActionSuggestUpsell NextAction = "suggest_upsell"
	ActionConfirmOrder  NextAction = "confirm_order"
	ActionComplete      NextAction = "complete"
)

// Stage is the persisted conversation stage. Unlike NextAction, which
// is derived fresh from each model reply, the stage survives between
// turns and constrains which transitions are honored.
type Stage string

const (
	StageGreeting       Stage = "greeting"
	StageCollectingInfo Stage = "collecting_info"
	StageConfirming     Stage = "confirming"
	StageCompleted      Stage = "completed"
)

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageGreeting, StageCollectingInfo, StageConfirming, StageCompleted:
		return true
	}
	return false
}

// AgentRequest is the normalized inbound message handed to the
// pipeline. It mirrors the body of POST /functions/ai-agent.
type AgentRequest struct {
	Platform       Platform    `json:"platform"`
	MessageType    MessageType `json:"messageType"`
	Content        string      `json:"content"`
	MediaURL       string      `json:"mediaUrl,omitempty"`
	CustomerPhone  string      `json:"customerPhone"`
	CustomerName   string      `json:"customerName,omitempty"`
	RestaurantID   string      `json:"restaurantId"`
	ConversationID string      `json:"conversationId,omitempty"`
}

// AgentResponse is the generated reply plus the derived next-action
// metadata. responseType is always "text" today; the audio path exists
// in the outbound client but is never selected by the classifier.
type AgentResponse struct {
	ResponseType     string      `json:"responseType"`
	Content          string      `json:"content"`
	MediaURL         string      `json:"mediaUrl,omitempty"`
	ShouldPrintOrder bool        `json:"shouldPrintOrder,omitempty"`
	OrderData        *OrderDraft `json:"orderData,omitempty"`
	NextAction       NextAction  `json:"nextAction,omitempty"`
}

// OrderItem is one line of a structured order draft.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderDraft is the typed order contract. An orders row is only
// written once a draft validates; incomplete drafts block finalization
// instead of producing placeholder rows.
type OrderDraft struct {
	RestaurantID    string      `json:"restaurantId"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	CustomerAddress string      `json:"customerAddress"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
}

// Validate checks that the draft has everything an orders row needs.
func (d *OrderDraft) Validate() error {
	if d == nil {
		return ErrOrderIncomplete
	}
	if d.RestaurantID == "" || d.CustomerName == "" || d.CustomerPhone == "" || d.CustomerAddress == "" {
		return ErrOrderIncomplete
	}
	if len(d.Items) == 0 {
		return ErrOrderIncomplete
	}
	for _, item := range d.Items {
		if item.Name == "" || item.Quantity <= 0 || item.Price < 0 {
			return ErrOrderIncomplete
		}
	}
	if d.Total <= 0 {
		return ErrOrderIncomplete
	}
	return nil
}
