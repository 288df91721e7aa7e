package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	// 90s model timeout × (6 tool rounds + final call + one retry) + headroom.
	assert.Equal(t, 8*90*time.Second+10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, "sales.db", cfg.DatabasePath)
	assert.True(t, cfg.SeedDemoData)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "qwen3:30b", cfg.OllamaModel)
	assert.Equal(t, 0.1, cfg.ModelTemperature)
	assert.Equal(t, 90*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 6, cfg.MaxToolRounds)
	assert.Equal(t, 200, cfg.MaxQueryRows)
	assert.Equal(t, "pt-BR", cfg.DefaultLocale)
	assert.Equal(t, 5, cfg.TopProductsDefault)
	assert.Equal(t, 20, cfg.TopProductsMax)
	assert.Equal(t, "oraculo", cfg.ServiceName)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 5, cfg.RateLimitBurst)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ORACULO_PORT", "9001")
	t.Setenv("ORACULO_DATABASE_PATH", ":memory:")
	t.Setenv("ORACULO_SEED_DEMO_DATA", "false")
	t.Setenv("ORACULO_MODEL_TIMEOUT", "15s")
	t.Setenv("ORACULO_MODEL_TEMPERATURE", "0.7")
	t.Setenv("ORACULO_MAX_TOOL_ROUNDS", "3")
	t.Setenv("ORACULO_LOCALE", "en-US")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, 15*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 0.7, cfg.ModelTemperature)
	assert.Equal(t, 3, cfg.MaxToolRounds)
	assert.Equal(t, "en-US", cfg.DefaultLocale)
	assert.Equal(t, 5*15*time.Second+10*time.Second, cfg.WriteTimeout,
		"write timeout derives from the answer budget when unset")
}

func TestLoadRejectsUndersizedWriteTimeout(t *testing.T) {
	t.Setenv("ORACULO_WRITE_TIMEOUT", "30s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORACULO_WRITE_TIMEOUT")
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ORACULO_PORT", "not-a-number")
	t.Setenv("ORACULO_MODEL_TIMEOUT", "soon")
	t.Setenv("ORACULO_MODEL_TEMPERATURE", "warm")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 0.1, cfg.ModelTemperature)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.DatabasePath = "" }},
		{"empty ollama url", func(c *Config) { c.OllamaURL = "" }},
		{"empty model", func(c *Config) { c.OllamaModel = "" }},
		{"zero tool rounds", func(c *Config) { c.MaxToolRounds = 0 }},
		{"zero query rows", func(c *Config) { c.MaxQueryRows = 0 }},
		{"top products default above max", func(c *Config) { c.TopProductsDefault = 50 }},
		{"write timeout below answer budget", func(c *Config) { c.WriteTimeout = time.Minute }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
