package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "AGENT_PROVIDER", "AGENT_TIMEOUT", "REDIS_ADDR", "SENDER_RATE_LIMIT", "HTTP_RATE_LIMIT", "IDENTITY_CACHE_TTL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.AgentProvider != AgentProviderEcho {
		t.Fatalf("expected echo agent by default, got %s", cfg.AgentProvider)
	}
	if cfg.AgentTimeout != 15*time.Second {
		t.Fatalf("expected default agent timeout, got %s", cfg.AgentTimeout)
	}
	if cfg.IdentityCacheTTL != 5*time.Minute {
		t.Fatalf("expected default identity ttl, got %s", cfg.IdentityCacheTTL)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected no redis by default, got %s", cfg.RedisAddr)
	}
	if cfg.SenderRateLimit != 20 || cfg.SenderRateWindow != time.Minute {
		t.Fatalf("unexpected sender rate defaults %d/%s", cfg.SenderRateLimit, cfg.SenderRateWindow)
	}
	if cfg.HTTPRateLimit != 50 {
		t.Fatalf("expected default http rate, got %v", cfg.HTTPRateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("TWILIO_WEBHOOK_SECRET", "whsec")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("AGENT_PROVIDER", " Bedrock ")
	t.Setenv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku")
	t.Setenv("AGENT_TIMEOUT", "4s")
	t.Setenv("SENDER_RATE_LIMIT", "0")
	t.Setenv("HTTP_RATE_LIMIT", "2.5")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CACHE_SWEEP_SCHEDULE", "@every 30s")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.AgentProvider != AgentProviderBedrock {
		t.Fatalf("expected provider normalised, got %q", cfg.AgentProvider)
	}
	if cfg.AgentTimeout != 4*time.Second {
		t.Fatalf("expected agent timeout override, got %s", cfg.AgentTimeout)
	}
	if cfg.SenderRateLimit != 0 {
		t.Fatalf("expected sender limit disabled, got %d", cfg.SenderRateLimit)
	}
	if cfg.HTTPRateLimit != 2.5 {
		t.Fatalf("expected http rate override, got %v", cfg.HTTPRateLimit)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls")
	}
	if cfg.CacheSweepSchedule != "@every 30s" {
		t.Fatalf("expected sweep schedule override, got %s", cfg.CacheSweepSchedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"echo", func(c *Config) {}, false},
		{"http without url", func(c *Config) { c.AgentProvider = AgentProviderHTTP }, true},
		{"http with url", func(c *Config) { c.AgentProvider = AgentProviderHTTP; c.AgentURL = "http://agent" }, false},
		{"bedrock without model", func(c *Config) { c.AgentProvider = AgentProviderBedrock }, true},
		{"unknown provider", func(c *Config) { c.AgentProvider = "carrier-pigeon" }, true},
		{"zero timeout", func(c *Config) { c.AgentTimeout = 0 }, true},
		{"limit without window", func(c *Config) { c.SenderRateWindow = 0 }, true},
		{"disabled limit without window", func(c *Config) { c.SenderRateLimit = 0; c.SenderRateWindow = 0 }, false},
		{"production without webhook secret", func(c *Config) { c.Env = "production" }, true},
		{"production with webhook secret", func(c *Config) { c.Env = "production"; c.TwilioWebhookSecret = "whsec" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AgentProvider: AgentProviderEcho, AgentTimeout: time.Second, SenderRateLimit: 5, SenderRateWindow: time.Minute}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
