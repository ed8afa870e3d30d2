// Package orders builds and persists structured orders from confirmed
// conversations. A row is only written when the extracted draft carries a
// real customer, address and priced items; nothing placeholder ever lands
// in the orders table.
package orders

import (
	"strings"

	"github.com/deliveryflow/agent/internal/catalog"
	"github.com/deliveryflow/agent/internal/conversation"
	"github.com/deliveryflow/agent/internal/domain"
)

var addressMarkers = []string{"rua ", "avenida ", "av. ", "av ", "travessa ", "alameda ", "praça ", "endereço"}

// Extract assembles an order draft from the conversation transcript and
// the tenant's menu. Matching is by product name, case-insensitive;
// repeated mentions across messages bump the quantity.
func Extract(snap *catalog.Snapshot, history []conversation.Row, req *domain.AgentRequest, currentMessage string) *domain.OrderDraft {
	draft := &domain.OrderDraft{
		RestaurantID:  snap.Restaurant.ID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}

	messages := make([]string, 0, len(history)+1)
	for _, row := range history {
		messages = append(messages, row.Message)
	}
	messages = append(messages, currentMessage)

	quantities := make(map[string]int)
	var ordered []catalog.Product
	for _, msg := range messages {
		lower := strings.ToLower(msg)

		for _, product := range snap.Products {
			name := strings.ToLower(product.Name)
			if name == "" || !strings.Contains(lower, name) {
				continue
			}
			if _, seen := quantities[product.ID]; !seen {
				ordered = append(ordered, product)
			}
			quantities[product.ID]++
		}

		if draft.CustomerAddress == "" {
			if addr := extractAddress(msg); addr != "" {
				draft.CustomerAddress = addr
			}
		}
	}

	for _, product := range ordered {
		qty := quantities[product.ID]
		draft.Items = append(draft.Items, domain.OrderItem{
			Name:     product.Name,
			Quantity: qty,
			Price:    product.Price,
		})
		draft.Total += float64(qty) * product.Price
	}

	return draft
}

// extractAddress returns the first message fragment that looks like a
// street address. Good enough for the kitchen ticket; the restaurant
// confirms the address before dispatch anyway.
func extractAddress(msg string) string {
	lower := strings.ToLower(msg)
	for _, marker := range addressMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		addr := strings.TrimSpace(msg[idx:])
		addr = strings.TrimPrefix(addr, "endereço:")
		addr = strings.TrimPrefix(addr, "Endereço:")
		addr = strings.TrimSpace(addr)
		if len(addr) >= 8 {
			return addr
		}
	}
	return ""
}
