package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "podcast_chunks", cfg.Corpus.Name)
	assert.Equal(t, 5, cfg.Chunker.Window)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, BackendSQLite, cfg.Index.Backend)
	assert.Equal(t, 128, cfg.Index.NList)
	assert.Equal(t, 10, cfg.Index.NProbe)
	assert.Equal(t, 100, cfg.Ingest.BatchSize)
	assert.Equal(t, 50, cfg.Query.TopK)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "podrag.yml")

	original := DefaultConfig()
	original.Corpus.Name = "girls_next_level"
	original.Corpus.TranscriptsDir = "data/gnl/transcripts"
	original.Embedding.Provider = ProviderOpenAI
	original.Embedding.Model = "text-embedding-3-small"
	original.Embedding.Dimensions = 1536
	original.Index.Backend = BackendMilvus
	original.Index.NProbe = 16
	original.Ingest.Concurrency = 4

	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, original.Corpus, loaded.Corpus)
	assert.Equal(t, ProviderOpenAI, loaded.Embedding.Provider)
	assert.Equal(t, 1536, loaded.Embedding.Dimensions)
	assert.Equal(t, BackendMilvus, loaded.Index.Backend)
	assert.Equal(t, 16, loaded.Index.NProbe)
	assert.Equal(t, 4, loaded.Ingest.Concurrency)
	assert.Equal(t, original.LLM.HostNames, loaded.LLM.HostNames)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	require.NoError(t, err, "Load should not fail for missing file")
	assert.Equal(t, DefaultConfig().Corpus, cfg.Corpus)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podrag.yml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("PODRAG_INDEX__BACKEND", "chromem")
	t.Setenv("PODRAG_INGEST__BATCH_SIZE", "25")
	t.Setenv("PODRAG_EMBEDDING__CACHE__TTL", "1h")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendChromem, loaded.Index.Backend)
	assert.Equal(t, 25, loaded.Ingest.BatchSize)
	assert.Equal(t, time.Hour, loaded.Embedding.Cache.TTL)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "index.milvus.address", envKey("PODRAG_INDEX__MILVUS__ADDRESS"))
	assert.Equal(t, "query.top_k", envKey("PODRAG_QUERY__TOP_K"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate(), "DefaultConfig should be valid")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty corpus name", func(c *Config) { c.Corpus.Name = "" }},
		{"empty transcripts dir", func(c *Config) { c.Corpus.TranscriptsDir = "" }},
		{"zero window", func(c *Config) { c.Chunker.Window = 0 }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"zero dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"unknown backend", func(c *Config) { c.Index.Backend = "faiss" }},
		{"zero nlist", func(c *Config) { c.Index.NList = 0 }},
		{"zero nprobe", func(c *Config) { c.Index.NProbe = 0 }},
		{"milvus without address", func(c *Config) {
			c.Index.Backend = BackendMilvus
			c.Index.Milvus.Address = ""
		}},
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }},
		{"negative concurrency", func(c *Config) { c.Ingest.Concurrency = -1 }},
		{"zero top k", func(c *Config) { c.Query.TopK = 0 }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "anthropic" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetPreset(t *testing.T) {
	assert.Equal(t, 384, GetPreset(ProviderOllama).Dimensions)
	assert.Equal(t, 1536, GetPreset(ProviderOpenAI).Dimensions)
	assert.Equal(t, GetPreset(ProviderOllama), GetPreset("unknown"))
}
