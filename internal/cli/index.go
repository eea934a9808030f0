package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"pdfrag/config"
	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/extractor"
	"pdfrag/internal/usecase"
)

var (
	indexChunkSize    int
	indexChunkOverlap int
)

var indexCmd = &cobra.Command{
	Use:   "index <pdf_path>",
	Short: "Index a PDF for chat",
	Long: `Extract the text of a PDF, split it into overlapping chunks, embed the
chunks and store them as the current session. Any previous session is replaced.
The session is stored in .pdfrag/session.db within the root directory.

Examples:
  pdfrag index paper.pdf
  pdfrag index paper.pdf --chunk-size 800 --chunk-overlap 100`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().IntVar(&indexChunkSize, "chunk-size", 0, "chunk size in characters (default from config)")
	indexCmd.Flags().IntVar(&indexChunkOverlap, "chunk-overlap", -1, "chunk overlap in characters (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a file: %s", path)
	}

	cfg := GetConfig()

	size, overlap := cfg.Chunk.Size, cfg.Chunk.Overlap
	if indexChunkSize > 0 {
		size = indexChunkSize
	}
	if indexChunkOverlap >= 0 {
		overlap = indexChunkOverlap
	}
	chk, err := chunker.NewWindowChunker(size, overlap)
	if err != nil {
		return err
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return err
	}

	sessionPath := cfg.SessionPath(GetRootDir())
	if err := config.EnsureSessionDir(sessionPath); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	st, err := NewSessionStore(cfg, sessionPath)
	if err != nil {
		return err
	}
	defer st.Close()

	indexUC := usecase.NewIndexUseCase(extractor.NewDefault(), chk, embedder, st, cfg.Embedding.BatchSize, logger)

	fmt.Printf("Indexing %s...\n", path)

	var bar *progressbar.ProgressBar
	var startTime time.Time

	progressCallback := func(done, total int) {
		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := indexUC.BuildSession(path, progressCallback)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nPDF successfully indexed!\n")
	fmt.Printf("  Session:     %s\n", result.SessionID)
	fmt.Printf("  Characters:  %d\n", result.Characters)
	fmt.Printf("  Chunks:      %d (size %d, overlap %d)\n", result.Chunks, size, overlap)
	fmt.Printf("  Embeddings:  %d x %d (%s)\n", result.Chunks, result.Dimension, result.Model)
	fmt.Printf("  Took:        %s\n", formatDuration(result.Duration))

	fmt.Printf("\nSession stored at: %s\n", sessionPath)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
