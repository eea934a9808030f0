package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"pdfrag/internal/adapter/cache"
	"pdfrag/internal/domain"
	"pdfrag/internal/usecase"
)

const indexNotFoundMessage = "Index not found. Please run the 'index' command first."

var (
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	botStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	byeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the indexed PDF",
	Long: `Start an interactive session. Each question is answered from the chunks of
the indexed PDF closest to it. Type 'quit' or 'exit' to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	st, err := NewSessionStore(cfg, cfg.SessionPath(GetRootDir()))
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := usecase.OpenSession(st)
	if errors.Is(err, domain.ErrSessionNotFound) {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(indexNotFoundMessage))
		return fmt.Errorf("no session: %w", err)
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return err
	}
	cached := cache.NewCachedEmbedder(embedder, cfg.Embedding.CacheSize)
	retrieveUC, err := usecase.NewRetrieveUseCase(session, cached, logger)
	if err != nil {
		return err
	}

	client, err := NewLLM(cfg)
	if err != nil {
		return err
	}
	answerUC := usecase.NewAnswerUseCase(client, logger)

	styles := usecase.ChatStyles{
		User:  render(userStyle),
		Bot:   render(botStyle),
		Info:  render(infoStyle),
		Error: render(errorStyle),
		Bye:   render(byeStyle),
	}

	chatUC := usecase.NewChatUseCase(retrieveUC, answerUC, cfg.Retrieve.TopK, styles, logger)
	err = chatUC.Run(cmd.InOrStdin(), cmd.OutOrStdout())

	hits, misses := cached.Stats()
	logger.Debug("query embedding cache", "hits", hits, "misses", misses, "entries", cached.Len())
	return err
}

func render(s lipgloss.Style) func(string) string {
	return func(text string) string {
		return s.Render(text)
	}
}
