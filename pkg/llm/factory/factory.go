package factory

import (
	"fmt"

	"mathviz-ai/internal/config"
	"mathviz-ai/pkg/llm"
	"mathviz-ai/pkg/llm/azure"
	"mathviz-ai/pkg/llm/gemini"
	"mathviz-ai/pkg/llm/huggingface"
	"mathviz-ai/pkg/llm/ollama"
)

func NewLLMProvider(cfg config.LLMConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "azure", "github":
		if cfg.Token == "" {
			return nil, fmt.Errorf("GITHUB_TOKEN environment variable not set")
		}
		return azure.NewAzureProvider(cfg.Endpoint, cfg.Token, cfg.Model), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable not set")
		}
		return gemini.NewGeminiProvider(cfg.GeminiAPIKey, cfg.Model), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.HuggingFaceAPIKey, cfg.HuggingFaceBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
