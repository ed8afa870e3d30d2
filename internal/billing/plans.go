// Package billing handles Hotmart subscription lifecycle: plan mapping,
// account provisioning, subscription records and lifecycle emails.
package billing

import "strings"

// Plan is one subscription tier. Limits of -1 mean unlimited.
type Plan struct {
	Type                 string         `json:"plan_type"`
	DisplayName          string         `json:"display_name"`
	MonthlyAILimit       int            `json:"monthly_ai_limit"`
	MonthlyMessagesLimit int            `json:"monthly_messages_limit"`
	MonthlyImagesLimit   int            `json:"monthly_images_limit"`
	Features             map[string]any `json:"features"`
}

var planEssencial = Plan{
	Type:                 "essencial",
	DisplayName:          "Essencial",
	MonthlyAILimit:       150,
	MonthlyMessagesLimit: 100,
	MonthlyImagesLimit:   15,
	Features: map[string]any{
		"text_messages":  true,
		"audio_messages": false,
		"image_messages": false,
		"reactivation":   false,
		"analytics":      "basic",
	},
}

var planProfissional = Plan{
	Type:                 "profissional",
	DisplayName:          "Profissional",
	MonthlyAILimit:       400,
	MonthlyMessagesLimit: 300,
	MonthlyImagesLimit:   50,
	Features: map[string]any{
		"text_messages":  true,
		"audio_messages": true,
		"image_messages": true,
		"reactivation":   true,
		"analytics":      "complete",
	},
}

var planIlimitado = Plan{
	Type:                 "ilimitado",
	DisplayName:          "Ilimitado",
	MonthlyAILimit:       -1,
	MonthlyMessagesLimit: -1,
	MonthlyImagesLimit:   -1,
	Features: map[string]any{
		"text_messages":     true,
		"audio_messages":    true,
		"image_messages":    true,
		"reactivation":      true,
		"analytics":         "complete",
		"dedicated_support": true,
		"priority_features": true,
	},
}

// DeterminePlan maps a Hotmart product name to a plan. "essencial" and
// "ilimitado" are checked before "profissional" because historical
// product names overlap; unknown products default to profissional.
func DeterminePlan(productName string) Plan {
	lower := strings.ToLower(productName)

	switch {
	case strings.Contains(lower, "essencial"):
		return planEssencial
	case strings.Contains(lower, "ilimitado"):
		return planIlimitado
	case strings.Contains(lower, "profissional"):
		return planProfissional
	}
	return planProfissional
}
