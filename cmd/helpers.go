package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ziadkadry99/podcast-rag/internal/answer"
	"github.com/ziadkadry99/podcast-rag/internal/config"
	"github.com/ziadkadry99/podcast-rag/internal/embeddings"
	"github.com/ziadkadry99/podcast-rag/internal/ingest"
	"github.com/ziadkadry99/podcast-rag/internal/llm"
	"github.com/ziadkadry99/podcast-rag/internal/logging"
	"github.com/ziadkadry99/podcast-rag/internal/progress"
	"github.com/ziadkadry99/podcast-rag/internal/retrieval"
	"github.com/ziadkadry99/podcast-rag/internal/transcript"
	"github.com/ziadkadry99/podcast-rag/internal/vectordb"
	"github.com/ziadkadry99/podcast-rag/internal/vectordb/ivf"
)

// loadConfig loads and validates the config, providing a user-friendly error,
// and installs the configured logger as the slog default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w\nRun `podrag init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// createEmbedderFromConfig builds the configured embedder, rate limited and
// cached when the config asks for it. The returned close func releases the
// cache connection.
func createEmbedderFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embeddings.Embedder, func(), error) {
	ec := cfg.Embedding
	model := ec.Model
	if model == "" {
		model = config.GetPreset(ec.Provider).EmbeddingModel
	}

	var embedder embeddings.Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		envVar := config.APIKeyEnvVar(config.ProviderOpenAI)
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			return nil, nil, fmt.Errorf("%s environment variable is required for OpenAI embeddings", envVar)
		}
		embedder = embeddings.NewOpenAIEmbedder(apiKey, model, ec.Dimensions, ec.BaseURL)
	case config.ProviderOllama:
		baseURL := ec.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_HOST")
		}
		embedder = embeddings.NewOllamaEmbedder(model, ec.Dimensions, baseURL)
	default:
		return nil, nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}

	embedder = embeddings.NewRateLimitedEmbedder(embedder, ec.RequestsPerMinute)

	closeFn := func() {}
	if ec.Cache.RedisAddr != "" {
		cache, err := embeddings.NewRedisCache(ctx, ec.Cache.RedisAddr, ec.Cache.RedisPassword, ec.Cache.RedisDB, ec.Cache.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting embedding cache: %w", err)
		}
		embedder = embeddings.NewCachedEmbedder(embedder, cache, logger)
		closeFn = func() { cache.Close() }
	}
	return embedder, closeFn, nil
}

// openIndexFromConfig opens the configured vector index backend.
func openIndexFromConfig(ctx context.Context, cfg *config.Config) (vectordb.Index, error) {
	ic := cfg.Index
	name := cfg.Corpus.Name
	dim := cfg.Embedding.Dimensions
	params := ivf.Params{NList: ic.NList, NProbe: ic.NProbe}

	switch ic.Backend {
	case config.BackendMemory:
		return vectordb.NewMemoryIndex(name, dim, params), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(ic.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return vectordb.OpenSQLiteFile(ctx, filepath.Join(ic.DataDir, "index.db"), name, dim, params)
	case config.BackendChromem:
		return vectordb.OpenChromem(ctx, name, dim, filepath.Join(ic.DataDir, "chromem"))
	case config.BackendMilvus:
		return vectordb.OpenMilvus(ctx, vectordb.MilvusOptions{
			Address:  ic.Milvus.Address,
			Username: ic.Milvus.Username,
			Password: ic.Milvus.Password,
			Database: ic.Milvus.Database,
			Timeout:  time.Duration(ic.Milvus.TimeoutSeconds) * time.Second,
			NList:    ic.NList,
			NProbe:   ic.NProbe,
		}, name, dim)
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", ic.Backend)
	}
}

// stateDir is where completion markers live. The memory backend keeps its
// markers in process memory since the index dies with the process.
func stateDir(cfg *config.Config) string {
	if cfg.Index.Backend == config.BackendMemory {
		return ""
	}
	return cfg.Index.DataDir
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	model := cfg.LLM.Model
	if model == "" {
		model = config.GetPreset(cfg.LLM.Provider).ChatModel
	}
	provider, err := llm.NewProvider(cfg.LLM.Provider, model, cfg.LLM.BaseURL)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(provider, cfg.LLM.RequestsPerMinute), nil
}

// app bundles the handles shared by the query-side commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	embedder  embeddings.Embedder
	index     vectordb.Index
	retriever *retrieval.Service
	closers   []func()
}

// openApp loads the config and opens the embedder, index and retrieval
// service.
func openApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	embedder, closeCache, err := createEmbedderFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	index, err := openIndexFromConfig(ctx, cfg)
	if err != nil {
		closeCache()
		return nil, fmt.Errorf("opening %s index: %w", cfg.Index.Backend, err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		embedder:  embedder,
		index:     index,
		retriever: retrieval.NewService(index, embedder, cfg.Query.TopK, logger),
		closers:   []func(){closeCache},
	}, nil
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.logger.Warn("closing index", "error", err)
	}
	for _, fn := range a.closers {
		fn()
	}
}

// ingest runs the pipeline against the app's index. With showProgress the
// batch progress is drawn on stderr.
func (a *app) ingest(ctx context.Context, opts ingest.Options, showProgress bool) (*ingest.Result, error) {
	pipeline := ingest.NewPipeline(a.index, a.embedder, transcript.NewChunker(a.cfg.Chunker.Window), opts, a.logger)

	var tracker *progress.Tracker
	if showProgress {
		tracker = progress.NewTracker(progress.NewReporter(os.Stderr))
		pipeline.SetProgressFunc(tracker.Report)
	}
	result, err := pipeline.Run(ctx)
	if tracker != nil {
		tracker.Finish()
	}
	return result, err
}

// ingestOptions maps the config onto pipeline options.
func ingestOptions(cfg *config.Config) ingest.Options {
	return ingest.Options{
		CorpusDir:     cfg.Corpus.TranscriptsDir,
		Include:       cfg.Corpus.Include,
		Exclude:       cfg.Corpus.Exclude,
		StateDir:      stateDir(cfg),
		BatchSize:     cfg.Ingest.BatchSize,
		Concurrency:   cfg.Ingest.Concurrency,
		TrustNonEmpty: cfg.Ingest.TrustNonEmpty,
	}
}

// newResponder wires the answer generator. It fails when no LLM provider
// can be created.
func (a *app) newResponder(k int) (*answer.Responder, error) {
	provider, err := createLLMProviderFromConfig(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	persona := answer.DefaultPersona()
	if a.cfg.LLM.ShowName != "" {
		persona.ShowName = a.cfg.LLM.ShowName
	}
	if len(a.cfg.LLM.HostNames) > 0 {
		persona.Hosts = a.cfg.LLM.HostNames
	}
	return answer.NewResponder(a.retriever, provider, persona, answer.Options{
		Model:       a.cfg.LLM.Model,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		K:           k,
	}, a.logger), nil
}

// warnIfEmpty tells the user to ingest when the index holds nothing.
func (a *app) warnIfEmpty(ctx context.Context) {
	n, err := a.index.Size(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "could not read index size", "error", err)
		return
	}
	if n == 0 {
		fmt.Fprintf(os.Stderr, "Index %q is empty. Run `podrag ingest` first.\n", a.index.Name())
	}
}

// describeIngestError adds a remedy to errors the user can act on.
func describeIngestError(err error, cfg *config.Config) error {
	if errors.Is(err, ingest.ErrIncompleteIngestion) {
		return fmt.Errorf("%w\nA previous ingestion did not finish. Delete %s to reload, or set ingest.trust_non_empty", err, cfg.Index.DataDir)
	}
	if errors.Is(err, vectordb.ErrDimensionMismatch) {
		return fmt.Errorf("%w\nThe index was built with a different embedding model", err)
	}
	return err
}
