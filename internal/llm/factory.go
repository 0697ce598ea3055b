package llm

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/podcast-rag/internal/config"
)

const defaultOllamaHost = "http://localhost:11434"

// NewProvider creates an LLM provider of the given type. baseURL overrides
// the provider endpoint; for Ollama it falls back to OLLAMA_HOST and then
// the local default.
func NewProvider(providerType config.ProviderType, model, baseURL string) (Provider, error) {
	switch providerType {
	case config.ProviderOpenAI:
		envVar := config.APIKeyEnvVar(providerType)
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", envVar)
		}
		return NewOpenAIProvider(apiKey, model, baseURL), nil

	case config.ProviderOllama:
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
