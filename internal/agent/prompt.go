package agent

import (
	"fmt"
	"strings"

	"github.com/deliveryflow/agent/internal/catalog"
	"github.com/deliveryflow/agent/internal/conversation"
	"github.com/deliveryflow/agent/internal/domain"
	"github.com/deliveryflow/agent/internal/tokens"
)

// buildSystemPrompt renders the sales persona plus the tenant's live menu,
// promotions and delivery zones. Sections render even when empty so the
// model never hallucinates a menu that was simply unavailable.
func buildSystemPrompt(snap *catalog.Snapshot, platform domain.Platform) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Você é uma IA vendedora especializada em atendimento via %s para o restaurante %q.\n\n", platform, snap.Restaurant.Name)

	b.WriteString("PERSONALIDADE E COMPORTAMENTO:\n")
	b.WriteString("- Seja amigável, proativa e focada em vendas\n")
	b.WriteString("- Sempre sugira upsells, combos e promoções\n")
	fmt.Fprintf(&b, "- Use emojis apropriados para %s\n", platform)
	b.WriteString("- Seja persuasiva mas não insistente\n")
	b.WriteString("- Mantenha conversas fluidas e naturais\n\n")

	b.WriteString("CARDÁPIO DISPONÍVEL:\n")
	for _, p := range snap.Products {
		fmt.Fprintf(&b, "- %s: R$ %.2f", p.Name, p.Price)
		if p.Category != "" {
			fmt.Fprintf(&b, " (%s)", p.Category)
		}
		b.WriteString("\n")
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s\n", p.Description)
		}
	}
	b.WriteString("\nPROMOÇÕES ATIVAS:\n")
	for _, p := range snap.Promotions {
		fmt.Fprintf(&b, "- %s: %.0f%% OFF\n", p.Name, p.Discount)
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s\n", p.Description)
		}
	}
	b.WriteString("\nZONAS DE ENTREGA:\n")
	for _, z := range snap.Zones {
		fmt.Fprintf(&b, "- %s: R$ %.2f", z.Neighborhood, z.DeliveryFee)
		if z.DeliveryTimeMax > 0 {
			fmt.Fprintf(&b, " (%d-%dmin)", z.DeliveryTimeMin, z.DeliveryTimeMax)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nPROCESSO DE VENDA:\n")
	b.WriteString("1. Cumprimente e apresente promoções\n")
	b.WriteString("2. Ajude a escolher produtos e sugira combos\n")
	b.WriteString("3. Colete: nome, telefone, endereço completo\n")
	b.WriteString("4. Confirme pedido e calcule total com taxa de entrega\n")
	b.WriteString("5. Finalize com previsão de entrega\n\n")

	b.WriteString("REGRAS IMPORTANTES:\n")
	b.WriteString("- SEMPRE colete dados completos antes de finalizar\n")
	b.WriteString("- SEMPRE sugira bebidas, sobremesas ou combos\n")
	b.WriteString("- SEMPRE confirme endereço e calcule taxa de entrega\n")
	b.WriteString("- NUNCA finalize pedido sem confirmação total\n")
	fmt.Fprintf(&b, "- Use linguagem adequada para %s\n\n", platform)

	b.WriteString("Responda sempre como se fosse uma vendedora experiente e simpática.")
	return b.String()
}

// buildConversationContext renders the trimmed history plus the current
// message as the user turn.
func buildConversationContext(history []conversation.Row, currentMessage string) string {
	var b strings.Builder

	b.WriteString("HISTÓRICO DA CONVERSA:\n")
	for _, row := range history {
		fmt.Fprintf(&b, "Cliente: %s\n", row.Message)
		fmt.Fprintf(&b, "Você: %s\n\n", row.Response)
	}

	fmt.Fprintf(&b, "MENSAGEM ATUAL DO CLIENTE: %s\n\n", currentMessage)
	b.WriteString("Responda de forma natural e focada em vendas:")
	return b.String()
}

// trimToBudget drops the oldest exchanges until the rendered history fits
// the token budget. The current message always survives.
func trimToBudget(counter *tokens.Counter, history []conversation.Row, currentMessage string, budget int) []conversation.Row {
	if budget <= 0 || counter == nil {
		return history
	}

	for len(history) > 0 {
		rendered := buildConversationContext(history, currentMessage)
		if counter.Count(rendered) <= budget {
			return history
		}
		history = history[1:]
	}
	return history
}
