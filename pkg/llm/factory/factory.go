package factory

import (
	"ai-research-agent-be/pkg/llm"
	"ai-research-agent-be/pkg/llm/gemini"
	"ai-research-agent-be/pkg/llm/huggingface"
	"ai-research-agent-be/pkg/llm/ollama"
	"fmt"
)

// NewLLMProvider builds the configured backend wrapped with transient-error
// retries.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return llm.WithRetry(ollama.NewOllamaProvider(baseURL, modelName)), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return llm.WithRetry(gemini.NewGeminiProvider(apiKey, modelName)), nil
	case "huggingface":
		return llm.WithRetry(huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName)), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
