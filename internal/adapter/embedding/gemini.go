package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder calls the Generative Language batchEmbedContents endpoint.
type GeminiEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	client    *http.Client
}

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type batchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewGeminiEmbedder(apiKeyEnv, model, baseURL string, timeout time.Duration) (*GeminiEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	dimension := 0
	switch model {
	case "text-embedding-004", "embedding-001":
		dimension = 768
	}

	return &GeminiEmbedder{
		apiKey:    apiKey,
		model:     strings.TrimPrefix(model, "models/"),
		baseURL:   strings.TrimRight(baseURL, "/"),
		dimension: dimension,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (e *GeminiEmbedder) Embed(texts []string) ([][]float32, error) {
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

func (e *GeminiEmbedder) embedBatch(texts []string) ([][]float32, error) {
	reqBody := batchEmbedRequest{Requests: make([]embedContentRequest, len(texts))}
	for i, text := range texts {
		reqBody.Requests[i] = embedContentRequest{
			Model:   "models/" + e.model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", e.baseURL, e.model, url.QueryEscape(e.apiKey))
	req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %s", redactKey(err.Error(), e.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview(body))
	}

	var embResp batchEmbedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", preview(body), err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}
	if len(embResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("API returned %d embeddings for %d texts", len(embResp.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range embResp.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// redactKey keeps the API key, which travels in the query string, out of
// error messages.
func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
}
