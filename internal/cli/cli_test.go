package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

const hashConfig = `embedding:
  provider: hash
  dimension: 64
chunk:
  size: 40
  overlap: 10
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	// Flag variables are package globals and survive between runs.
	cfgFile, rootDir, verbose = "", "", false
	indexChunkSize, indexChunkOverlap = 0, -1
	queryText, queryTopK, queryJSON = "", 0, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestChatWithoutSession(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	dir := t.TempDir()

	out, err := execute(t, "chat", "--dir", dir)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if !strings.Contains(out, "Index not found. Please run the 'index' command first.") {
		t.Errorf("expected index hint, got:\n%s", out)
	}
	if _, statErr := os.Stat(filepath.Join(dir, ".pdfrag", "session.db")); !os.IsNotExist(statErr) {
		t.Error("chat must not create a session file")
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	dir := t.TempDir()

	_, err := execute(t, "query", "-q", "anything", "--dir", dir)
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestIndexRequiresFile(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	dir := t.TempDir()

	if _, err := execute(t, "index", "--dir", dir); err == nil {
		t.Error("expected error without a path argument")
	}
	if _, err := execute(t, "index", filepath.Join(dir, "missing.pdf"), "--dir", dir); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := execute(t, "index", dir, "--dir", dir); err == nil {
		t.Error("expected error for a directory")
	}
}

func TestIndexAndQuery(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pdfrag.yaml"), hashConfig)

	doc := filepath.Join(dir, "notes.txt")
	writeFile(t, doc, "The transformer relies on self attention. "+
		"Bananas are yellow fruit rich in potassium. "+
		"Positional encodings give the model word order.")

	if _, err := execute(t, "index", doc, "--dir", dir); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".pdfrag", "session.db")); err != nil {
		t.Fatalf("session not written: %v", err)
	}

	out, err := execute(t, "query", "-q", "bananas are yellow", "-k", "2", "--json", "--dir", dir)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var results []usecase.ScoredChunkResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(results[0].Text, "Bananas") {
		t.Errorf("expected the banana chunk first, got %q", results[0].Text)
	}
	if results[0].Distance > results[1].Distance {
		t.Errorf("results not ordered by distance: %+v", results)
	}
}

func TestIndexSQLiteBackend(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pdfrag.yaml"), hashConfig+"session:\n  backend: sqlite\n  path: session.sqlite\n")

	doc := filepath.Join(dir, "notes.md")
	writeFile(t, doc, "# Notes\n\nA short markdown document about retrieval.")

	if _, err := execute(t, "index", doc, "--dir", dir); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "session.sqlite")); err != nil {
		t.Fatalf("sqlite session not written: %v", err)
	}

	out, err := execute(t, "query", "-q", "retrieval", "--dir", dir)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(out, "chunk 0") {
		t.Errorf("expected chunk listing, got:\n%s", out)
	}
}

func TestIndexInvalidChunkFlags(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pdfrag.yaml"), hashConfig)
	doc := filepath.Join(dir, "notes.txt")
	writeFile(t, doc, "some text")

	_, err := execute(t, "index", doc, "--chunk-size", "10", "--chunk-overlap", "10", "--dir", dir)
	if !errors.Is(err, domain.ErrInvalidChunkConfig) {
		t.Errorf("expected ErrInvalidChunkConfig, got %v", err)
	}
}

func TestChatAnswersFromSession(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Contents[0].Parts[0].Text)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"They are yellow."}]}}]}`)
	}))
	defer server.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pdfrag.yaml"), hashConfig+"llm:\n  base_url: "+server.URL+"\n")
	doc := filepath.Join(dir, "notes.txt")
	writeFile(t, doc, "Bananas are yellow fruit rich in potassium.")

	if _, err := execute(t, "index", doc, "--dir", dir); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	out, err := executeWithInput(t, "what colour are bananas?\nquit\n", "chat", "--dir", dir)
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !strings.Contains(out, "They are yellow.") || !strings.Contains(out, "Goodbye!") {
		t.Errorf("unexpected chat output:\n%s", out)
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "what colour are bananas?") {
		t.Errorf("unexpected prompts: %q", prompts)
	}
}
