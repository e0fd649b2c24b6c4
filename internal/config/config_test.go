package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{WebhookSecret: "s3cr3t", WorkerURL: "http://worker:8081"},
		Lark:   LarkConfig{AppID: "cli_abc", AppSecret: "shh"},
		LLM:    LLMConfig{PrimaryModel: "gpt-4o", FallbackAPIKey: "anthropic-key", FallbackModel: "claude-3-5-sonnet-latest"},
	}
}

func TestConfigValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing webhook secret", func(c *Config) { c.Server.WebhookSecret = "" }},
		{"missing worker url", func(c *Config) { c.Server.WorkerURL = "" }},
		{"malformed worker url", func(c *Config) { c.Server.WorkerURL = "not-a-url" }},
		{"missing lark app id", func(c *Config) { c.Lark.AppID = "" }},
		{"missing lark app secret", func(c *Config) { c.Lark.AppSecret = "" }},
		{"missing llm primary model", func(c *Config) { c.LLM.PrimaryModel = "" }},
		{"missing llm fallback api key", func(c *Config) { c.LLM.FallbackAPIKey = "" }},
		{"missing llm fallback model", func(c *Config) { c.LLM.FallbackModel = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSetDefaultsDoesNotPanic(t *testing.T) {
	require.NotPanics(t, setDefaults)
}
