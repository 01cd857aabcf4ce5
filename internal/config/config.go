// Package config loads runtime configuration from the environment and
// provides JWT and password-hashing settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the server process needs. Values come from the
// environment; an optional .env file is loaded by the CLI before this runs.
type Config struct {
	Port        int
	DatabaseURL string

	// Gemini
	APIKey string

	// External document parsing provider. When BaseURL is empty, uploads
	// fall back to local text extraction.
	ParseProviderURL    string
	ParseProviderAPIKey string

	// Chat session registry bounds.
	ChatSessionTTL  time.Duration
	ChatMaxSessions int

	// Logging
	LogJSON bool
	Debug   bool
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                8080,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		APIKey:              os.Getenv("GEMINI_API_KEY"),
		ParseProviderURL:    os.Getenv("PARSE_PROVIDER_URL"),
		ParseProviderAPIKey: os.Getenv("PARSE_PROVIDER_API_KEY"),
		ChatSessionTTL:      30 * time.Minute,
		ChatMaxSessions:     1000,
		LogJSON:             os.Getenv("LOG_JSON") == "true",
		Debug:               os.Getenv("DEBUG") == "true",
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}

	if ttlStr := os.Getenv("CHAT_SESSION_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CHAT_SESSION_TTL: %v", err)
		}
		cfg.ChatSessionTTL = ttl
	}

	if maxStr := os.Getenv("CHAT_MAX_SESSIONS"); maxStr != "" {
		max, err := strconv.Atoi(maxStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CHAT_MAX_SESSIONS: %v", err)
		}
		cfg.ChatMaxSessions = max
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port out of range: %d", c.Port)
	}
	if c.APIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required")
	}
	if c.ChatSessionTTL < time.Minute {
		return fmt.Errorf("config error: CHAT_SESSION_TTL must be at least 1m, got %s", c.ChatSessionTTL)
	}
	if c.ChatMaxSessions < 1 {
		return fmt.Errorf("config error: CHAT_MAX_SESSIONS must be positive, got %d", c.ChatMaxSessions)
	}
	return nil
}
