package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to podrag! Let's configure your transcript corpus.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Transcript directory.
	dirPrompt := promptui.Prompt{
		Label:   "Transcripts directory",
		Default: cfg.Corpus.TranscriptsDir,
	}
	dir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("transcripts dir: %w", err)
	}
	cfg.Corpus.TranscriptsDir = dir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Printf("Note: %s does not exist yet.\n", dir)
	}

	// 2. Collection name.
	namePrompt := promptui.Prompt{
		Label:   "Collection name",
		Default: cfg.Corpus.Name,
	}
	name, err := namePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("collection name: %w", err)
	}
	cfg.Corpus.Name = name

	// 3. Embedding provider.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{
			"ollama — local all-minilm (384 dims)",
			"openai — text-embedding-3-small (1536 dims)",
		},
	}
	embedIdx, _, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	embedProvider := []ProviderType{ProviderOllama, ProviderOpenAI}[embedIdx]
	preset := GetPreset(embedProvider)
	cfg.Embedding.Provider = embedProvider
	cfg.Embedding.Model = preset.EmbeddingModel
	cfg.Embedding.Dimensions = preset.Dimensions

	// 4. Index backend.
	backendPrompt := promptui.Select{
		Label: "Select vector index backend",
		Items: []string{
			"sqlite  — embedded, IVF search (default)",
			"milvus  — external Milvus server",
			"chromem — embedded, exact search",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("index backend: %w", err)
	}
	cfg.Index.Backend = []IndexBackend{BackendSQLite, BackendMilvus, BackendChromem}[backendIdx]

	if cfg.Index.Backend == BackendMilvus {
		addrPrompt := promptui.Prompt{
			Label:   "Milvus address",
			Default: cfg.Index.Milvus.Address,
		}
		addr, err := addrPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("milvus address: %w", err)
		}
		cfg.Index.Milvus.Address = strings.TrimSpace(addr)
	}

	// 5. Answer provider.
	llmPrompt := promptui.Select{
		Label: "Select LLM provider for answers",
		Items: []string{"openai", "ollama"},
	}
	_, llmStr, err := llmPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	cfg.LLM.Provider = ProviderType(llmStr)
	cfg.LLM.Model = GetPreset(cfg.LLM.Provider).ChatModel

	for _, p := range []ProviderType{cfg.Embedding.Provider, cfg.LLM.Provider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before running podrag ingest.\n", envVar)
			break
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
