package factory

import (
	"fmt"

	"github.com/lxhmx/text2sql/pkg/llm"
	"github.com/lxhmx/text2sql/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
