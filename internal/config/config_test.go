package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 1500, cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Anthropic.Temperature, 1e-9)

	assert.Equal(t, 10, cfg.Pipeline.BatchSize)
	assert.Equal(t, 1, cfg.Pipeline.MaxConcurrentBatches)
	assert.Equal(t, 3, cfg.Pipeline.RetryAttempts)
	assert.Equal(t, 4, cfg.Pipeline.BreakerThreshold)
	assert.False(t, cfg.Pipeline.DisableLLM)

	assert.InDelta(t, 0.4, cfg.Fallback.PositiveRatio, 1e-9)
	assert.InDelta(t, 0.1, cfg.Fallback.NegativeRatio, 1e-9)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COMMSINTEL_PIPELINE_BATCH_SIZE", "25")
	t.Setenv("COMMSINTEL_ANTHROPIC_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Pipeline.BatchSize)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
}
