// Package config reads the deployment configuration from environment
// variables, with .env support for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server (local dev surface only)
	Port string

	// Gemini
	GeminiAPIKey         string
	GeminiModel          string
	GeminiModelDiscovery bool

	// Rate limiting
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	// RateLimitTable enables the DynamoDB-backed limiter when set; empty
	// means per-instance in-memory limiting.
	RateLimitTable string

	// Notifications
	NtfyTopic string

	// ParamPrefix enables SSM-sourced parameters (knowledge base, API key
	// fallback) when set.
	ParamPrefix string
}

func Load() *Config {
	// Load .env if present; real deployments set variables directly.
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          os.Getenv("GEMINI_MODEL"),
		GeminiModelDiscovery: getEnvAsBool("GEMINI_MODEL_DISCOVERY", false),
		RateLimitMaxRequests: getEnvAsIntOrDefault("RATE_LIMIT_MAX_REQUESTS", 10),
		RateLimitWindow:      time.Duration(getEnvAsIntOrDefault("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		RateLimitTable:       os.Getenv("RATE_LIMIT_TABLE"),
		NtfyTopic:            os.Getenv("NTFY_TOPIC"),
		ParamPrefix:          os.Getenv("PARAM_PREFIX"),
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getEnvAsBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
