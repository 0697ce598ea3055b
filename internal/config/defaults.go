package config

import "time"

// ModelPreset describes the embedding and chat models used for a provider.
type ModelPreset struct {
	EmbeddingModel string
	Dimensions     int
	ChatModel      string
}

// modelPresets maps each provider to its default model choices. The Ollama
// preset uses all-minilm, the 384-dimension MiniLM-L6 sentence encoder.
var modelPresets = map[ProviderType]ModelPreset{
	ProviderOpenAI: {EmbeddingModel: "text-embedding-3-small", Dimensions: 1536, ChatModel: "gpt-4o"},
	ProviderOllama: {EmbeddingModel: "all-minilm", Dimensions: 384, ChatModel: "llama3"},
}

// DefaultTranscriptGlobs selects speaker-labelled transcript files.
var DefaultTranscriptGlobs = []string{"**/*.txt"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Name:           "podcast_chunks",
			TranscriptsDir: "data/transcripts",
			Include:        DefaultTranscriptGlobs,
		},
		Chunker: ChunkerConfig{Window: 5},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOllama,
			Model:      "all-minilm",
			Dimensions: 384,
			Cache:      CacheConfig{TTL: 30 * 24 * time.Hour},
		},
		Index: IndexConfig{
			Backend: BackendSQLite,
			DataDir: ".podrag",
			NList:   128,
			NProbe:  10,
			Milvus: MilvusConfig{
				Address:        "localhost:19530",
				Database:       "default",
				TimeoutSeconds: 30,
			},
		},
		Ingest: IngestConfig{
			BatchSize:   100,
			Concurrency: 1,
		},
		Query: QueryConfig{TopK: 50},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o",
			Temperature: 0.8,
			MaxTokens:   800,
			HostNames:   []string{"John", "Jordi"},
			ShowName:    "Technology Brothers",
		},
		Server: ServerConfig{
			Port:                  8080,
			RequestTimeoutSeconds: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetPreset returns the model preset for the given provider.
// Returns the Ollama preset if the provider is unknown.
func GetPreset(provider ProviderType) ModelPreset {
	if p, ok := modelPresets[provider]; ok {
		return p
	}
	return modelPresets[ProviderOllama]
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
