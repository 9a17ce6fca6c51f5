// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SafetyPolicy controls what happens when the content safety filter flags a
// candidate response.
type SafetyPolicy string

const (
	// SafetyPolicyBlock substitutes a safe fallback for a flagged response.
	SafetyPolicyBlock SafetyPolicy = "block"
	// SafetyPolicyLog only logs and counts flagged responses.
	SafetyPolicyLog SafetyPolicy = "log"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Open-model provider (OpenAI-compatible hosted inference)
	OpenModelAPIKey  string
	OpenModelID      string
	OpenModelBaseURL string
	OpenModelTimeout time.Duration

	// General LLM provider (Gemini)
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Local backend probe
	HealthEndpointURL string
	LocalBackendURL   string
	ProbeTimeout      time.Duration

	// Safety
	SafetyFilterPolicy SafetyPolicy

	// NATS event publishing (optional)
	NATSURL   string
	NATSToken string

	// JWT settings (auth disabled when secret is empty)
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Open-model provider
		OpenModelAPIKey:  getEnv("OPEN_MODEL_API_KEY", ""),
		OpenModelID:      getEnv("OPEN_MODEL_ID", "HuggingFaceH4/zephyr-7b-beta"),
		OpenModelBaseURL: getEnv("OPEN_MODEL_BASE_URL", "https://router.huggingface.co/v1"),
		OpenModelTimeout: getDurationEnv("OPEN_MODEL_TIMEOUT", 30*time.Second),

		// General LLM provider
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),

		// Local backend probe
		HealthEndpointURL: getEnv("HEALTH_ENDPOINT_URL", ""),
		LocalBackendURL:   getEnv("LOCAL_BACKEND_URL", ""),
		ProbeTimeout:      getDurationEnv("PROBE_TIMEOUT", 8*time.Second),

		// Safety
		SafetyFilterPolicy: safetyPolicy(getEnv("SAFETY_FILTER_POLICY", string(SafetyPolicyBlock))),

		// NATS
		NATSURL:   getEnv("NATS_URL", ""),
		NATSToken: getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func safetyPolicy(value string) SafetyPolicy {
	if SafetyPolicy(value) == SafetyPolicyLog {
		return SafetyPolicyLog
	}
	return SafetyPolicyBlock
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
