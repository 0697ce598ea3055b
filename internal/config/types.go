package config

import "time"

// ProviderType identifies an embedding or LLM provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// IndexBackend selects the vector index implementation.
type IndexBackend string

const (
	BackendSQLite  IndexBackend = "sqlite"
	BackendMemory  IndexBackend = "memory"
	BackendChromem IndexBackend = "chromem"
	BackendMilvus  IndexBackend = "milvus"
)

// Config is the top-level podrag configuration, corresponding to podrag.yml.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus" koanf:"corpus"`
	Chunker   ChunkerConfig   `yaml:"chunker" koanf:"chunker"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Index     IndexConfig     `yaml:"index" koanf:"index"`
	Ingest    IngestConfig    `yaml:"ingest" koanf:"ingest"`
	Query     QueryConfig     `yaml:"query" koanf:"query"`
	LLM       LLMConfig       `yaml:"llm" koanf:"llm"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
}

// CorpusConfig describes where transcripts live and which files count as transcripts.
type CorpusConfig struct {
	Name           string   `yaml:"name" koanf:"name"`
	TranscriptsDir string   `yaml:"transcripts_dir" koanf:"transcripts_dir"`
	Include        []string `yaml:"include" koanf:"include"`
	Exclude        []string `yaml:"exclude" koanf:"exclude"`
}

// ChunkerConfig controls the sliding line window. The stride is always window/2.
type ChunkerConfig struct {
	Window int `yaml:"window" koanf:"window"`
}

// EmbeddingConfig selects the embedding model. Dimensions must match the index.
type EmbeddingConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	Dimensions        int          `yaml:"dimensions" koanf:"dimensions"`
	BaseURL           string       `yaml:"base_url" koanf:"base_url"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Cache             CacheConfig  `yaml:"cache" koanf:"cache"`
}

// CacheConfig configures the optional Redis embedding cache. Empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" koanf:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" koanf:"redis_password"`
	RedisDB       int           `yaml:"redis_db" koanf:"redis_db"`
	TTL           time.Duration `yaml:"ttl" koanf:"ttl"`
}

// IndexConfig configures the vector index. NList and NProbe tune the IVF partitioning.
type IndexConfig struct {
	Backend IndexBackend `yaml:"backend" koanf:"backend"`
	DataDir string       `yaml:"data_dir" koanf:"data_dir"`
	NList   int          `yaml:"nlist" koanf:"nlist"`
	NProbe  int          `yaml:"nprobe" koanf:"nprobe"`
	Milvus  MilvusConfig `yaml:"milvus" koanf:"milvus"`
}

// MilvusConfig holds connection details for the milvus backend.
type MilvusConfig struct {
	Address        string `yaml:"address" koanf:"address"`
	Username       string `yaml:"username" koanf:"username"`
	Password       string `yaml:"password" koanf:"password"`
	Database       string `yaml:"database" koanf:"database"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// IngestConfig controls the one-shot corpus load.
type IngestConfig struct {
	BatchSize   int `yaml:"batch_size" koanf:"batch_size"`
	Concurrency int `yaml:"concurrency" koanf:"concurrency"`
	// TrustNonEmpty restores the legacy rule that a non-empty index counts as
	// loaded even without a completion marker.
	TrustNonEmpty bool `yaml:"trust_non_empty" koanf:"trust_non_empty"`
}

// QueryConfig holds retrieval defaults.
type QueryConfig struct {
	TopK int `yaml:"top_k" koanf:"top_k"`
}

// LLMConfig configures the response generator used by ask, /ask and the MCP tool.
type LLMConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	BaseURL           string       `yaml:"base_url" koanf:"base_url"`
	Temperature       float64      `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int          `yaml:"max_tokens" koanf:"max_tokens"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	HostNames         []string     `yaml:"host_names" koanf:"host_names"`
	ShowName          string       `yaml:"show_name" koanf:"show_name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                  int  `yaml:"port" koanf:"port"`
	AllowAll              bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RequestTimeoutSeconds int  `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds"`
}

// LogConfig selects the slog level and output format (text or json).
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
