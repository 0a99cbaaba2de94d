// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Env         string
	Port        string
	FrontendURL string
	DBPath      string

	OpenAI        OpenAIConfig
	Session       SessionConfig
	Vapi          VapiConfig
	RateLimit     RateLimitConfig
	Retention     RetentionConfig
	TranscriptLog TranscriptLogConfig
}

// OpenAIConfig configures the text-generation collaborator.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// VapiConfig configures the hosted voice service.
type VapiConfig struct {
	Host        string
	APIKey      string
	AssistantID string
	WorkflowID  string
}

// RateLimitConfig tunes the per-key request limiters.
type RateLimitConfig struct {
	Generate int
	Auth     int
	Window   time.Duration
}

// RetentionConfig tunes the stale-interview sweeper.
type RetentionConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// TranscriptLogConfig controls NDJSON voice session logging.
type TranscriptLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_LOG_QUEUE", 256)
	if queueSize <= 0 {
		queueSize = 256
	}

	cfg := &Config{
		Env:         getEnv("ENV", ""),
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/prepwise.db"),
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			TTL:    getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		},
		Vapi: VapiConfig{
			Host:        getEnv("VAPI_HOST", "api.vapi.ai"),
			APIKey:      getEnv("VAPI_API_KEY", ""),
			AssistantID: getEnv("VAPI_ASSISTANT_ID", ""),
			WorkflowID:  getEnv("VAPI_WORKFLOW_ID", ""),
		},
		RateLimit: RateLimitConfig{
			Generate: getEnvInt("RATE_LIMIT_GENERATE", 10),
			Auth:     getEnvInt("RATE_LIMIT_AUTH", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Retention: RetentionConfig{
			Interval: getEnvDuration("RETENTION_INTERVAL", 10*time.Minute),
			MaxAge:   getEnvDuration("RETENTION_MAX_AGE", 24*time.Hour),
		},
		TranscriptLog: TranscriptLogConfig{
			Enabled:       getEnvBool("TRANSCRIPT_LOG_ENABLED", true),
			Dir:           getEnv("TRANSCRIPT_LOG_DIR", "./data/logs/sessions"),
			GlobalEnabled: getEnvBool("TRANSCRIPT_LOG_GLOBAL", false),
			GlobalPath:    getEnv("TRANSCRIPT_LOG_GLOBAL_PATH", "./data/logs/sessions/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Session.Secret == "" && !c.IsDevelopment() {
		return fmt.Errorf("SESSION_SECRET is required outside development")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.RateLimit.Generate <= 0 || c.RateLimit.Auth <= 0 {
		return fmt.Errorf("rate limits must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Retention.Interval <= 0 || c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention interval and max age must be > 0")
	}
	if c.TranscriptLog.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty")
	}
	if c.TranscriptLog.GlobalPath == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_GLOBAL_PATH cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if c.Env != "" {
		return c.Env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
