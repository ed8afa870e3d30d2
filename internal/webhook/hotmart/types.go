// Package hotmart receives Hotmart purchase webhooks and drives the
// billing lifecycle: account provisioning, subscription records and
// lifecycle emails.
package hotmart

// WebhookPayload is the envelope Hotmart posts for every event.
type WebhookPayload struct {
	ID          string      `json:"id"`
	Event       string      `json:"event"`
	Version     string      `json:"version"`
	DateCreated int64       `json:"date_created"`
	Data        PayloadData `json:"data"`
}

type PayloadData struct {
	Product      Product       `json:"product"`
	Purchase     Purchase      `json:"purchase"`
	Buyer        Buyer         `json:"buyer"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type Product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Purchase struct {
	Transaction  string `json:"transaction"`
	Status       string `json:"status"`
	ApprovedDate int64  `json:"approved_date"`
	Price        Price  `json:"price"`
}

type Price struct {
	Value         float64 `json:"value"`
	CurrencyValue string  `json:"currency_value"`
}

type Buyer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Subscription struct {
	ID             int64  `json:"id"`
	Status         string `json:"status"`
	DateNextCharge int64  `json:"date_next_charge"`
}
