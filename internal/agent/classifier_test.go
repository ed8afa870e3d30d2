package agent

import (
	"testing"

	"github.com/deliveryflow/agent/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantPrint  bool
		wantAction domain.NextAction
	}{
		{
			name:       "confirmed order",
			reply:      "Pedido confirmado! Vou enviar para a cozinha.",
			wantPrint:  true,
			wantAction: domain.ActionComplete,
		},
		{
			name:       "kitchen dispatch phrasing",
			reply:      "Perfeito, vou enviar para a produção agora!",
			wantPrint:  true,
			wantAction: domain.ActionComplete,
		},
		{
			name:       "upsell suggestion",
			reply:      "Gostaria de adicionar uma bebida ao seu pedido?",
			wantPrint:  false,
			wantAction: domain.ActionSuggestUpsell,
		},
		{
			name:       "asking to confirm",
			reply:      "Posso confirmar seu pedido então?",
			wantPrint:  false,
			wantAction: domain.ActionConfirmOrder,
		},
		{
			name:       "plain reply",
			reply:      "Temos pizza de calabresa e marguerita hoje!",
			wantPrint:  false,
			wantAction: domain.ActionCollectInfo,
		},
		{
			name:       "upsell wins over confirm keyword",
			reply:      "Antes de confirmar, gostaria de adicionar uma sobremesa?",
			wantPrint:  false,
			wantAction: domain.ActionSuggestUpsell,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.reply)
			if got.ShouldPrintOrder != tt.wantPrint {
				t.Errorf("ShouldPrintOrder = %v, want %v", got.ShouldPrintOrder, tt.wantPrint)
			}
			if got.NextAction != tt.wantAction {
				t.Errorf("NextAction = %s, want %s", got.NextAction, tt.wantAction)
			}
		})
	}
}
