package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"pdfrag/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	NoCandidatesMessage = "No response candidates found. The content may have been blocked."
	NoTextPartMessage   = "I could not find a text part in the response."
)

// GeminiClient calls the generateContent endpoint. Each Generate is a single
// attempt; failures come back as *domain.APIError.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func NewGeminiClient(apiKeyEnv, model, baseURL string, timeout time.Duration) (*GeminiClient, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiClient{
		apiKey:  apiKey,
		model:   strings.TrimPrefix(model, "models/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *GeminiClient) Generate(prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequest("POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.APIError{
			Kind:       domain.APIErrorStatus,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return "", &domain.APIError{Kind: domain.APIErrorDecode, Err: err}
	}

	return extractAnswer(&gr), nil
}

func (c *GeminiClient) ModelName() string {
	return c.model
}

func extractAnswer(gr *generateResponse) string {
	if len(gr.Candidates) == 0 {
		return NoCandidatesMessage
	}
	first := gr.Candidates[0]
	if first.Content == nil || len(first.Content.Parts) == 0 || first.Content.Parts[0].Text == nil {
		return NoTextPartMessage
	}
	return strings.TrimSpace(*first.Content.Parts[0].Text)
}

// transportError classifies a failure before a status code was received.
// The API key travels in the URL, so it is scrubbed from the message.
func (c *GeminiClient) transportError(err error) *domain.APIError {
	kind := domain.APIErrorNetwork
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = domain.APIErrorTimeout
	}
	return &domain.APIError{
		Kind: kind,
		Err:  errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(c.apiKey), "REDACTED")),
	}
}

// errorMessage prefers the API's own error message over the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
