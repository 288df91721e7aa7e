// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings.
	DatabasePath string // SQLite database file; ":memory:" for ephemeral runs.
	SeedDemoData bool   // Populate the demo dataset on an empty database.
	QueryTimeout time.Duration
	MaxQueryRows int // Row cap for free-form SELECT results.

	// Language model settings.
	OllamaURL        string
	OllamaModel      string
	ModelTemperature float64
	ModelTimeout     time.Duration
	MaxToolRounds    int // Tool-call round trips allowed per question.

	// Answer settings.
	DefaultLocale      string
	TopProductsDefault int
	TopProductsMax     int

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Rate limiting for the insight endpoint.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("ORACULO_PORT", 8000),
		ReadTimeout:         envDuration("ORACULO_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("ORACULO_WRITE_TIMEOUT", 0),
		DatabasePath:        envStr("ORACULO_DATABASE_PATH", "sales.db"),
		SeedDemoData:        envBool("ORACULO_SEED_DEMO_DATA", true),
		QueryTimeout:        envDuration("ORACULO_QUERY_TIMEOUT", 5*time.Second),
		MaxQueryRows:        envInt("ORACULO_MAX_QUERY_ROWS", 200),
		OllamaURL:           envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         envStr("OLLAMA_MODEL", "qwen3:30b"),
		ModelTemperature:    envFloat("ORACULO_MODEL_TEMPERATURE", 0.1),
		ModelTimeout:        envDuration("ORACULO_MODEL_TIMEOUT", 90*time.Second),
		MaxToolRounds:       envInt("ORACULO_MAX_TOOL_ROUNDS", 6),
		DefaultLocale:       envStr("ORACULO_LOCALE", "pt-BR"),
		TopProductsDefault:  envInt("ORACULO_TOP_PRODUCTS_DEFAULT", 5),
		TopProductsMax:      envInt("ORACULO_TOP_PRODUCTS_MAX", 20),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "oraculo"),
		RateLimitEnabled:    envBool("ORACULO_RATE_LIMIT_ENABLED", true),
		RateLimitRPS:        envFloat("ORACULO_RATE_LIMIT_RPS", 1),
		RateLimitBurst:      envInt("ORACULO_RATE_LIMIT_BURST", 5),
		LogLevel:            envStr("ORACULO_LOG_LEVEL", "info"),
	}

	// The write timeout must outlive the slowest legal question loop, or
	// the connection deadline expires before the partial-answer envelope
	// is written. Default to the full answer budget plus headroom.
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.answerBudget() + 10*time.Second
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// answerBudget is the worst-case wall-clock cost of one question: one
// model call per tool round, the final answering call, and the single
// stall retry, each bounded by ModelTimeout.
func (c Config) answerBudget() time.Duration {
	return c.ModelTimeout * time.Duration(c.MaxToolRounds+2)
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: ORACULO_DATABASE_PATH is required")
	}
	if c.OllamaURL == "" {
		return fmt.Errorf("config: OLLAMA_URL is required")
	}
	if c.OllamaModel == "" {
		return fmt.Errorf("config: OLLAMA_MODEL is required")
	}
	if c.MaxToolRounds <= 0 {
		return fmt.Errorf("config: ORACULO_MAX_TOOL_ROUNDS must be positive")
	}
	if c.MaxQueryRows <= 0 {
		return fmt.Errorf("config: ORACULO_MAX_QUERY_ROWS must be positive")
	}
	if c.TopProductsDefault <= 0 || c.TopProductsDefault > c.TopProductsMax {
		return fmt.Errorf("config: ORACULO_TOP_PRODUCTS_DEFAULT must be in 1..%d", c.TopProductsMax)
	}
	if budget := c.answerBudget(); c.WriteTimeout < budget {
		return fmt.Errorf("config: ORACULO_WRITE_TIMEOUT %s is smaller than the worst-case answer budget %s (ORACULO_MODEL_TIMEOUT × (ORACULO_MAX_TOOL_ROUNDS+2))", c.WriteTimeout, budget)
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
