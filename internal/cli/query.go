package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the chunks retrieved for a question",
	Long: `Retrieve the chunks of the indexed PDF closest to a question without
calling the completion API. Useful to check what context chat would send.

Examples:
  pdfrag query -q "what is multi-head attention"
  pdfrag query -q "training data" -k 5 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to retrieve context for (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := NewSessionStore(cfg, cfg.SessionPath(GetRootDir()))
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := usecase.OpenSession(st)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("%s: %w", indexNotFoundMessage, err)
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return err
	}
	retrieveUC, err := usecase.NewRetrieveUseCase(session, embedder, logger)
	if err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	chunks, err := retrieveUC.Retrieve(queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := usecase.ToResults(chunks)

	out := cmd.OutOrStdout()
	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d chunks for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Fprintf(out, "--- [%d] chunk %d (distance: %.4f) ---\n", i+1, r.Position, r.Distance)
		text := []rune(r.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Fprintln(out, string(text))
		fmt.Fprintln(out)
	}
	return nil
}
