package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway.
type Config struct {
	// Server
	Port string
	Env  string

	// Inbound credential. When empty, authentication is disabled and every
	// request is admitted (local development mode).
	APIKey string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string

	// AI providers
	AnthropicAPIKey  string
	OpenRouterAPIKey string
	DefaultAIModel   string

	// KB service
	KBServiceURL     string
	KBServiceKey     string
	KBTimeoutSeconds int

	// Pushover
	PushoverUserKey  string
	PushoverAPIToken string

	// Web search
	TavilyAPIKey string

	// Rate limiting (AI route only)
	AIRateLimitPerMinute int

	// Request log
	DatabasePath string
}

// Load loads configuration from environment variables.
func Load() *Config {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		APIKey:               getEnv("API_KEY", ""),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken:   getEnv("GOOGLE_REFRESH_TOKEN", ""),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		OpenRouterAPIKey:     getEnv("OPENROUTER_API_KEY", ""),
		DefaultAIModel:       getEnv("DEFAULT_AI_MODEL", "claude-haiku-4-5-20251001"),
		KBServiceURL:         getEnv("KB_SERVICE_URL", ""),
		KBServiceKey:         getEnv("KB_SERVICE_KEY", ""),
		KBTimeoutSeconds:     getEnvInt("KB_TIMEOUT_SECONDS", 120),
		PushoverUserKey:      getEnv("PUSHOVER_USER_KEY", ""),
		PushoverAPIToken:     getEnv("PUSHOVER_API_TOKEN", ""),
		TavilyAPIKey:         getEnv("TAVILY_API_KEY", ""),
		AIRateLimitPerMinute: getEnvInt("AI_RATE_LIMIT_PER_MINUTE", 60),
		DatabasePath:         getEnv("DATABASE_PATH", "gateway.db"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
