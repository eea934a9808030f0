package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"pdfrag/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var answerTemplate = template.Must(template.ParseFS(promptTemplates, "templates/answer_prompt.txt"))

type PromptData struct {
	Context  string
	Question string
}

// RenderPrompt fills the answer template with the retrieved context.
func RenderPrompt(question, context string) (string, error) {
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, PromptData{Context: context, Question: question}); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// AnswerUseCase turns a question plus retrieved context into an answer.
type AnswerUseCase struct {
	llm    port.LLM
	logger *slog.Logger
}

func NewAnswerUseCase(llm port.LLM, logger *slog.Logger) *AnswerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{llm: llm, logger: logger}
}

// Answer errors from the completion client are returned unchanged so callers
// can match *domain.APIError.
func (u *AnswerUseCase) Answer(question, context string) (string, error) {
	prompt, err := RenderPrompt(question, context)
	if err != nil {
		return "", err
	}

	u.logger.Debug("requesting completion", "model", u.llm.ModelName(), "prompt_chars", len(prompt))
	answer, err := u.llm.Generate(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
