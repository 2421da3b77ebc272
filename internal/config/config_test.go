package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "azure", cfg.LLM.Provider)
	assert.Equal(t, "https://models.github.ai/inference", cfg.LLM.Endpoint)
	assert.Equal(t, "microsoft/Phi-4-reasoning", cfg.LLM.Model)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, 1.0, cfg.LLM.TopP)

	assert.Equal(t, 5, cfg.Pipeline.MaxSolverRetries)
	assert.Equal(t, 0.4, cfg.Pipeline.TemperatureSolver)
	assert.Equal(t, 0.0, cfg.Pipeline.TemperatureEvaluator)
	assert.Equal(t, 0.6, cfg.Pipeline.TemperatureScript)
	assert.Equal(t, 0.2, cfg.Pipeline.TemperatureVideoGen)
	assert.Equal(t, 0.1, cfg.Pipeline.TemperatureVisualEval)

	assert.Equal(t, "high", cfg.Video.ManimQuality)
	assert.Equal(t, 60, cfg.Video.FPS)
	assert.Equal(t, "manim", cfg.Video.ManimBinary)
	assert.Equal(t, "output", cfg.App.OutputDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("LLM_MODEL", "qwen2.5:7b")
	t.Setenv("MAX_SOLVER_RETRIES", "3")
	t.Setenv("TEMPERATURE_SOLVER", "0.7")
	t.Setenv("MANIM_QUALITY", "low")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "qwen2.5:7b", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Pipeline.MaxSolverRetries)
	assert.Equal(t, 0.7, cfg.Pipeline.TemperatureSolver)
	assert.Equal(t, "low", cfg.Video.ManimQuality)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openrouter")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadRejectsBadQuality(t *testing.T) {
	t.Setenv("MANIM_QUALITY", "ultra")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_TOKENS", "not-a-number")
	t.Setenv("TOP_P", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, 1.0, cfg.LLM.TopP)
}
