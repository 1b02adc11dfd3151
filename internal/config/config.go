package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Agent providers accepted in AGENT_PROVIDER.
const (
	AgentProviderHTTP    = "http"
	AgentProviderBedrock = "bedrock"
	AgentProviderEcho    = "echo"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Identity store. DATABASE_URL wins over IDENTITY_SEED_FILE.
	DatabaseURL      string
	IdentitySeedFile string
	IdentityCacheTTL time.Duration

	CacheDefaultTTL    time.Duration
	CacheSweepSchedule string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	TwilioWebhookSecret string
	AdminJWTSecret      string

	AgentProvider string
	AgentURL      string
	AgentAPIKey   string
	AgentTimeout  time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BedrockModelID      string

	SenderRateLimit  int
	SenderRateWindow time.Duration
	HTTPRateLimit    float64
	HTTPRateBurst    int

	SpamPolicyFile string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		IdentitySeedFile: getEnv("IDENTITY_SEED_FILE", ""),
		IdentityCacheTTL: getEnvAsDuration("IDENTITY_CACHE_TTL", 5*time.Minute),

		CacheDefaultTTL:    getEnvAsDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
		CacheSweepSchedule: getEnv("CACHE_SWEEP_SCHEDULE", "@every 1m"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),
		AdminJWTSecret:      getEnv("ADMIN_JWT_SECRET", ""),

		AgentProvider: strings.ToLower(strings.TrimSpace(getEnv("AGENT_PROVIDER", AgentProviderEcho))),
		AgentURL:      getEnv("AGENT_URL", ""),
		AgentAPIKey:   getEnv("AGENT_API_KEY", ""),
		AgentTimeout:  getEnvAsDuration("AGENT_TIMEOUT", 15*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		SenderRateLimit:  getEnvAsInt("SENDER_RATE_LIMIT", 20),
		SenderRateWindow: getEnvAsDuration("SENDER_RATE_WINDOW", time.Minute),
		HTTPRateLimit:    getEnvAsFloat("HTTP_RATE_LIMIT", 50),
		HTTPRateBurst:    getEnvAsInt("HTTP_RATE_BURST", 100),

		SpamPolicyFile: getEnv("SPAM_POLICY_FILE", ""),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.AgentProvider {
	case AgentProviderEcho:
	case AgentProviderHTTP:
		if c.AgentURL == "" {
			return fmt.Errorf("config: AGENT_URL is required when AGENT_PROVIDER=%s", c.AgentProvider)
		}
	case AgentProviderBedrock:
		if c.BedrockModelID == "" {
			return fmt.Errorf("config: BEDROCK_MODEL_ID is required when AGENT_PROVIDER=%s", c.AgentProvider)
		}
	default:
		return fmt.Errorf("config: unknown AGENT_PROVIDER %q", c.AgentProvider)
	}
	if c.AgentTimeout <= 0 {
		return fmt.Errorf("config: AGENT_TIMEOUT must be positive")
	}
	if c.SenderRateLimit > 0 && c.SenderRateWindow <= 0 {
		return fmt.Errorf("config: SENDER_RATE_WINDOW must be positive when SENDER_RATE_LIMIT is set")
	}
	if c.IsProduction() && c.TwilioWebhookSecret == "" {
		return fmt.Errorf("config: TWILIO_WEBHOOK_SECRET is required in production")
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
