package agent

import (
	"strings"

	"github.com/deliveryflow/agent/internal/domain"
)

// classification is the keyword-derived read of one assistant reply.
type classification struct {
	ShouldPrintOrder bool
	NextAction       domain.NextAction
}

// classify scans the assistant's reply for the phrases that mark flow
// transitions. Matching is on the reply, not the customer message: the
// model is instructed to confirm orders with these exact phrasings.
func classify(aiMessage string) classification {
	lower := strings.ToLower(aiMessage)

	shouldPrint := strings.Contains(lower, "pedido confirmado") ||
		strings.Contains(lower, "vou enviar para")

	next := domain.ActionCollectInfo
	switch {
	case strings.Contains(lower, "gostaria de adicionar"):
		next = domain.ActionSuggestUpsell
	case strings.Contains(lower, "confirmar"):
		next = domain.ActionConfirmOrder
	case shouldPrint:
		next = domain.ActionComplete
	}

	return classification{
		ShouldPrintOrder: shouldPrint,
		NextAction:       next,
	}
}
