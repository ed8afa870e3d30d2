// Package config loads service configuration from an optional YAML
// file overlaid with DF_-prefixed environment variables.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Supabase  SupabaseConfig  `koanf:"supabase"`
	Groq      GroqConfig      `koanf:"groq"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Evolution EvolutionConfig `koanf:"evolution"`
	Redis     RedisConfig     `koanf:"redis"`
	Audit     AuditConfig     `koanf:"audit"`
	Prompt    PromptConfig    `koanf:"prompt"`
	Hotmart   HotmartConfig   `koanf:"hotmart"`
	Email     EmailConfig     `koanf:"email"`
	Analytics AnalyticsConfig `koanf:"analytics"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type SupabaseConfig struct {
	URL            string `koanf:"url"`
	ServiceRoleKey string `koanf:"service_role_key"`
}

type GroqConfig struct {
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// OpenAIConfig holds the Whisper transcription credentials.
type OpenAIConfig struct {
	APIKey string `koanf:"api_key"`
}

type EvolutionConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type AuditConfig struct {
	Path string `koanf:"path"`
}

type PromptConfig struct {
	// HistoryLimit is the hard cap of prior turns sent to the model.
	HistoryLimit int `koanf:"history_limit"`
	// TokenBudget bounds the rendered history; oldest turns are
	// dropped first when the budget is exceeded.
	TokenBudget int `koanf:"token_budget"`
}

type HotmartConfig struct {
	WebhookToken string `koanf:"webhook_token"`
}

type EmailConfig struct {
	Region string `koanf:"region"`
	From   string `koanf:"from"`
}

type AnalyticsConfig struct {
	// Enabled turns conversion dispatch off globally, regardless of
	// per-restaurant pixel configuration.
	Enabled bool `koanf:"enabled"`
}

// Load reads configPath (if it exists) and overlays environment
// variables: DF_SERVER_PORT=9090 becomes server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("DF_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DF_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":          8080,
		"groq.base_url":        "https://api.groq.com/openai/v1",
		"groq.model":           "mixtral-8x7b-32768",
		"groq.temperature":     0.7,
		"groq.max_tokens":      1000,
		"redis.addr":           "localhost:6379",
		"audit.path":           "./data/agent.db",
		"prompt.history_limit": 10,
		"prompt.token_budget":  3000,
		"email.region":         "us-east-1",
		"analytics.enabled":    true,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}
