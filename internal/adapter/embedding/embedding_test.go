package embedding

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)

	v1, err := e.Embed([]string{"Attention is all you need"})
	if err != nil {
		t.Fatal(err)
	}
	v2, err := e.Embed([]string{"attention IS all you need!"})
	if err != nil {
		t.Fatal(err)
	}

	if len(v1[0]) != 64 {
		t.Fatalf("expected dimension 64, got %d", len(v1[0]))
	}
	for i := range v1[0] {
		if v1[0][i] != v2[0][i] {
			t.Fatalf("embeddings differ at %d after case/punctuation normalization", i)
		}
	}
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(32)
	vecs, _ := e.Embed([]string{"transformer encoder decoder", ""})

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", norm)
	}

	for _, v := range vecs[1] {
		if v != 0 {
			t.Fatal("expected zero vector for empty text")
		}
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, _ := e.Embed([]string{
		"the encoder maps an input sequence to continuous representations",
		"an encoder maps the input sequence",
		"bananas are rich in potassium",
	})

	dist := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			d := float64(a[i] - b[i])
			s += d * d
		}
		return math.Sqrt(s)
	}

	if dist(vecs[0], vecs[1]) >= dist(vecs[0], vecs[2]) {
		t.Error("expected overlapping texts to be closer than unrelated texts")
	}
}

func TestGeminiEmbedder(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/models/text-embedding-004:batchEmbedContents" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("expected API key in query string")
		}

		var req batchEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		var sb strings.Builder
		sb.WriteString(`{"embeddings":[`)
		for i, item := range req.Requests {
			if item.Model != "models/text-embedding-004" {
				t.Errorf("unexpected model in request: %s", item.Model)
			}
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"values":[%d,0.5,-1]}`, len(item.Content.Parts[0].Text))
		}
		sb.WriteString(`]}`)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sb.String()))
	}))
	defer server.Close()

	t.Setenv("TEST_GEMINI_KEY", "test-key")
	e, err := NewGeminiEmbedder("TEST_GEMINI_KEY", "text-embedding-004", server.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	vecs, err := e.Embed(texts)
	if err != nil {
		t.Fatal(err)
	}
	if requests != 2 {
		t.Errorf("expected 2 batched requests for 150 texts, got %d", requests)
	}
	if len(vecs) != 150 {
		t.Fatalf("expected 150 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if int(v[0]) != i+1 {
			t.Fatalf("vector %d out of order: first value %v", i, v[0])
		}
	}
	if e.Dimension() != 768 {
		t.Errorf("expected known dimension 768, got %d", e.Dimension())
	}
}

func TestGeminiEmbedderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer server.Close()

	t.Setenv("TEST_GEMINI_KEY", "bad")
	e, err := NewGeminiEmbedder("TEST_GEMINI_KEY", "text-embedding-004", server.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.Embed([]string{"hello"})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestGeminiEmbedderCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[{"values":[1,2]}]}`))
	}))
	defer server.Close()

	t.Setenv("TEST_GEMINI_KEY", "k")
	e, _ := NewGeminiEmbedder("TEST_GEMINI_KEY", "custom-model", server.URL, time.Second)

	if _, err := e.Embed([]string{"a", "b"}); err == nil {
		t.Error("expected error when fewer embeddings than texts are returned")
	}
}

func TestGeminiEmbedderDiscoversDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[{"values":[1,2,3]}]}`))
	}))
	defer server.Close()

	t.Setenv("TEST_GEMINI_KEY", "k")
	e, _ := NewGeminiEmbedder("TEST_GEMINI_KEY", "custom-model", server.URL, time.Second)
	if e.Dimension() != 0 {
		t.Fatalf("expected unknown dimension before first call, got %d", e.Dimension())
	}
	if _, err := e.Embed([]string{"a"}); err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 3 {
		t.Errorf("expected discovered dimension 3, got %d", e.Dimension())
	}
}

func TestGeminiEmbedderMissingKey(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "")
	if _, err := NewGeminiEmbedder("TEST_GEMINI_KEY", "text-embedding-004", "", 0); err == nil {
		t.Error("expected error when API key is missing")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header: %q", got)
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		// Answer out of order to check reassembly by index.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer server.Close()

	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	e, err := NewOpenAIEmbedder("TEST_OPENAI_KEY", "text-embedding-3-small", server.URL+"/v1", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	vecs, err := e.Embed([]string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not reassembled in input order: %v", vecs)
	}
	if e.ModelName() != "text-embedding-3-small" {
		t.Errorf("unexpected model name %s", e.ModelName())
	}
}

func TestOllamaEmbedderDefaults(t *testing.T) {
	e := NewOllamaEmbedder("nomic-embed-text", "", 0)
	if e.Dimension() != 768 {
		t.Errorf("expected 768 for nomic-embed-text, got %d", e.Dimension())
	}
	if e.ModelName() != "nomic-embed-text" {
		t.Errorf("unexpected model name %s", e.ModelName())
	}
}
