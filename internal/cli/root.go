package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"pdfrag/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
	logger  = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Chat with a PDF using retrieval-augmented generation",
	Long: `pdfrag extracts the text of a PDF, splits it into overlapping chunks,
embeds them and stores a searchable session. Questions are answered by
retrieving the closest chunks and sending them to Google Gemini.

Example usage:
  pdfrag index paper.pdf                 # Build the session
  pdfrag chat                            # Ask questions interactively
  pdfrag query -q "what is attention"    # Show the retrieved chunks only`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// Variables already set in the environment win over .env.
		_ = godotenv.Load()

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger = newLogger(cfg.Logging.Level, verbose)
		slog.SetDefault(logger)

		if os.Getenv(cfg.LLM.APIKeyEnv) == "" {
			return fmt.Errorf("%s is not set. Add it to your environment or a .env file", cfg.LLM.APIKeyEnv)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pdfrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory for config and session (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func newLogger(level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
