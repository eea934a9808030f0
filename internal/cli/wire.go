package cli

import (
	"fmt"
	"time"

	"pdfrag/config"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/llm"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/port"
)

// NewEmbedder creates the embedder selected by cfg. Index and query must use
// the same settings.
func NewEmbedder(cfg *config.Config) (port.Embedder, error) {
	timeout := time.Duration(cfg.Embedding.TimeoutSecs) * time.Second

	var embedder port.Embedder
	var err error

	switch cfg.Embedding.Provider {
	case "gemini":
		embedder, err = embedding.NewGeminiEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	case "openai":
		embedder, err = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	case "ollama":
		embedder = embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	case "hash":
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func NewSessionStore(cfg *config.Config, path string) (port.SessionStore, error) {
	switch cfg.Session.Backend {
	case "bolt":
		return store.NewBoltStore(path), nil
	case "sqlite":
		return store.NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Session.Backend)
	}
}

func NewLLM(cfg *config.Config) (port.LLM, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	client, err := llm.NewGeminiClient(cfg.LLM.APIKeyEnv, cfg.LLM.Model, cfg.LLM.BaseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}
	return client, nil
}
