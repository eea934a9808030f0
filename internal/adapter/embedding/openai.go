package embedding

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder uses the OpenAI embeddings API, or any server that speaks
// it (Ollama, vLLM).
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	timeout   time.Duration
}

func NewOpenAIEmbedder(apiKeyEnv, model, baseURL string, timeout time.Duration) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return newOpenAICompatible(apiKey, model, baseURL, timeout), nil
}

func NewOllamaEmbedder(model, baseURL string, timeout time.Duration) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return newOpenAICompatible("ollama", model, baseURL, timeout)
}

func newOpenAICompatible(apiKey, model, baseURL string, timeout time.Duration) *OpenAIEmbedder {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	dimension := 0
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		dimension = 1536
	case "text-embedding-3-large":
		dimension = 3072
	case "nomic-embed-text":
		dimension = 768
	case "mxbai-embed-large":
		dimension = 1024
	case "all-minilm":
		dimension = 384
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
		timeout:   timeout,
	}
}

func (e *OpenAIEmbedder) Embed(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const maxBatch = 100
	var allEmbeddings [][]float32

	for i := 0; i < len(texts); i += maxBatch {
		end := i + maxBatch
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := e.embedBatch(texts[i:end])
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	if len(allEmbeddings) > 0 && e.dimension == 0 {
		e.dimension = len(allEmbeddings[0])
	}
	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("API returned embedding for unknown input %d", data.Index)
		}
		v := make([]float32, len(data.Embedding))
		for i := range data.Embedding {
			v[i] = float32(data.Embedding[i])
		}
		embeddings[data.Index] = v
	}
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("API returned no embedding for input %d", i)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
