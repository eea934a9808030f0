package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"pdfrag/config"
	"pdfrag/internal/adapter/vectorindex"
	"pdfrag/internal/cli"
	"pdfrag/internal/usecase"
)

var errUsage = errors.New("missing query")

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	dir := fs.String("dir", ".", "Directory holding the pdfrag session and config")
	query := fs.String("q", "", "Query to test")
	topK := fs.Int("k", 3, "Number of results")
	runs := fs.Int("runs", 100, "Search repetitions for latency measurement")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *query == "" {
		fmt.Fprintln(out, "Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Fprintln(out, "\nReports:")
		fmt.Fprintln(out, "  1. Session load and index decode time")
		fmt.Fprintln(out, "  2. Query embedding latency")
		fmt.Fprintln(out, "  3. Flat L2 search latency and the retrieved chunks")
		return errUsage
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	st, err := cli.NewSessionStore(cfg, cfg.SessionPath(*dir))
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	start := time.Now()
	session, err := usecase.OpenSession(st)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	loadTime := time.Since(start)

	start = time.Now()
	index, err := vectorindex.Load(session.Index)
	if err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}
	decodeTime := time.Since(start)

	embedder, err := cli.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("embedding not available: %w", err)
	}

	fmt.Fprintln(out, "RETRIEVAL BENCHMARK")
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "Session:   %s\n", session.Meta.ID)
	fmt.Fprintf(out, "Source:    %s\n", session.Meta.Source)
	fmt.Fprintf(out, "Chunks:    %d (size %d, overlap %d)\n", len(session.Chunks), session.Meta.ChunkSize, session.Meta.ChunkOverlap)
	fmt.Fprintf(out, "Model:     %s (%s), dimension %d\n", session.Meta.Model, cfg.Embedding.Provider, index.Dimension())
	fmt.Fprintf(out, "Load:      %s (index decode %s)\n", loadTime, decodeTime)
	if embedder.ModelName() != session.Meta.Model {
		fmt.Fprintf(out, "WARNING: configured model %s differs from indexed model\n", embedder.ModelName())
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Query: \"%s\"\n", *query)
	fmt.Fprintln(out, strings.Repeat("-", 70))

	start = time.Now()
	queryVec, err := embedder.Embed([]string{*query})
	if err != nil {
		return fmt.Errorf("embedding error: %w", err)
	}
	embedTime := time.Since(start)
	fmt.Fprintf(out, "Query embedded in %s: %d dimensions\n\n", embedTime, len(queryVec[0]))

	if *runs < 1 {
		*runs = 1
	}
	start = time.Now()
	for i := 0; i < *runs-1; i++ {
		if _, err := index.Search(queryVec[0], *topK); err != nil {
			return fmt.Errorf("search error: %w", err)
		}
	}
	hits, err := index.Search(queryVec[0], *topK)
	if err != nil {
		return fmt.Errorf("search error: %w", err)
	}
	searchTime := time.Since(start) / time.Duration(*runs)

	fmt.Fprintf(out, "Top %d matches:\n\n", len(hits))
	for i, h := range hits {
		if h.Position >= len(session.Chunks) {
			return fmt.Errorf("index position %d out of range", h.Position)
		}
		preview := []rune(strings.ReplaceAll(session.Chunks[h.Position], "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}
		fmt.Fprintf(out, "%d. [chunk %d, distance %.4f]\n", i+1, h.Position, h.Distance)
		fmt.Fprintf(out, "   %s\n\n", string(preview))
	}

	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "LATENCY:\n")
	fmt.Fprintf(out, "  Query embedding: %s\n", embedTime)
	fmt.Fprintf(out, "  Search (avg of %d): %s\n", *runs, searchTime)
	if len(hits) > 0 {
		fmt.Fprintf(out, "  Top-1 distance: %.4f\n", hits[0].Distance)
	}
	return nil
}
