package factory

import (
	"testing"

	"mathviz-ai/internal/config"
	"mathviz-ai/pkg/llm/azure"
	"mathviz-ai/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProviderAzure(t *testing.T) {
	provider, err := NewLLMProvider(config.LLMConfig{
		Provider: "azure",
		Endpoint: "https://models.github.ai/inference",
		Model:    "microsoft/Phi-4-reasoning",
		Token:    "token",
	})
	require.NoError(t, err)
	assert.IsType(t, &azure.AzureProvider{}, provider)
}

func TestNewLLMProviderGithubAlias(t *testing.T) {
	provider, err := NewLLMProvider(config.LLMConfig{
		Provider: "github",
		Endpoint: "https://models.github.ai/inference",
		Model:    "m",
		Token:    "token",
	})
	require.NoError(t, err)
	assert.IsType(t, &azure.AzureProvider{}, provider)
}

func TestNewLLMProviderAzureRequiresToken(t *testing.T) {
	_, err := NewLLMProvider(config.LLMConfig{Provider: "azure", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}

func TestNewLLMProviderOllamaDefaultBaseURL(t *testing.T) {
	provider, err := NewLLMProvider(config.LLMConfig{Provider: "ollama", Model: "qwen2.5:7b"})
	require.NoError(t, err)
	assert.IsType(t, &ollama.OllamaProvider{}, provider)
}

func TestNewLLMProviderGeminiRequiresKey(t *testing.T) {
	_, err := NewLLMProvider(config.LLMConfig{Provider: "gemini", Model: "gemini-2.0-flash"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_GEMINI_API_KEY")
}

func TestNewLLMProviderUnsupported(t *testing.T) {
	_, err := NewLLMProvider(config.LLMConfig{Provider: "openrouter", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}
