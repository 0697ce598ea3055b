package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides. A double underscore
// separates nesting levels: PODRAG_INDEX__BACKEND -> index.backend.
const EnvPrefix = "PODRAG_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PODRAG_*). A .env file in the working
// directory is loaded first so API keys can live there.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validBackends = map[IndexBackend]bool{
	BackendSQLite:  true,
	BackendMemory:  true,
	BackendChromem: true,
	BackendMilvus:  true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Corpus.Name == "" {
		return fmt.Errorf("corpus.name is required")
	}
	if c.Corpus.TranscriptsDir == "" {
		return fmt.Errorf("corpus.transcripts_dir is required")
	}

	if c.Chunker.Window < 1 {
		return fmt.Errorf("chunker.window must be at least 1")
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of openai, ollama", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Embedding.RequestsPerMinute < 0 {
		return fmt.Errorf("embedding.requests_per_minute must be non-negative")
	}

	if !validBackends[c.Index.Backend] {
		return fmt.Errorf("invalid index.backend %q: must be one of sqlite, memory, chromem, milvus", c.Index.Backend)
	}
	if c.Index.NList < 1 {
		return fmt.Errorf("index.nlist must be at least 1")
	}
	if c.Index.NProbe < 1 {
		return fmt.Errorf("index.nprobe must be at least 1")
	}
	if c.Index.Backend == BackendMilvus && c.Index.Milvus.Address == "" {
		return fmt.Errorf("index.milvus.address is required for the milvus backend")
	}

	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be at least 1")
	}
	if c.Ingest.Concurrency < 0 {
		return fmt.Errorf("ingest.concurrency must be non-negative")
	}

	if c.Query.TopK < 1 {
		return fmt.Errorf("query.top_k must be at least 1")
	}

	if c.LLM.Provider != "" && !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must be non-negative")
	}

	if c.Log.Format != "" && !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	return nil
}
