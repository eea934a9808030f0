package usecase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"pdfrag/internal/domain"
)

// ChatState is a step of the interactive loop.
type ChatState string

const (
	StateAwaitingInput ChatState = "awaiting_input"
	StateRetrieving    ChatState = "retrieving"
	StateComposing     ChatState = "composing"
	StatePresenting    ChatState = "presenting"
	StateEnded         ChatState = "ended"
)

// MaxQuestionBytes bounds a single chat question.
const MaxQuestionBytes = 1024 * 1024

var errQuestionTooLong = errors.New("question exceeds the size limit")

// ChatStyles decorates the labels and messages the loop prints. The zero
// value prints plain text.
type ChatStyles struct {
	User  func(string) string
	Bot   func(string) string
	Info  func(string) string
	Error func(string) string
	Bye   func(string) string
}

func (s ChatStyles) apply(f func(string) string, text string) string {
	if f == nil {
		return text
	}
	return f(text)
}

// ChatUseCase runs a question/answer loop against one loaded session.
type ChatUseCase struct {
	retriever *RetrieveUseCase
	answerer  *AnswerUseCase
	topK      int
	styles    ChatStyles
	logger    *slog.Logger
}

func NewChatUseCase(retriever *RetrieveUseCase, answerer *AnswerUseCase, topK int, styles ChatStyles, logger *slog.Logger) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		retriever: retriever,
		answerer:  answerer,
		topK:      topK,
		styles:    styles,
		logger:    logger,
	}
}

// Run reads one question per line from in until quit, exit or end of input.
// It only returns an error when the session can no longer be trusted or in
// cannot be read.
func (u *ChatUseCase) Run(in io.Reader, out io.Writer) error {
	st := u.styles
	meta := u.retriever.Session().Meta

	fmt.Fprintln(out, st.apply(st.Info, "Chat session started (using Google Gemini). Ask questions about your document."))
	fmt.Fprintln(out, st.apply(st.Info, fmt.Sprintf("Session %s: %d chunks from %s", meta.ID, meta.ChunkCount, meta.Source)))
	fmt.Fprintln(out, st.apply(st.Info, "Type 'quit' or 'exit' to end the session."))

	reader := bufio.NewReaderSize(in, 64*1024)

	state := StateAwaitingInput
	for state != StateEnded {
		fmt.Fprint(out, "\n"+st.apply(st.User, "You")+": ")
		line, err := readQuestion(reader, MaxQuestionBytes)
		if errors.Is(err, errQuestionTooLong) {
			u.logger.Warn("question discarded", "error", err)
			u.printBot(out, st.apply(st.Error, fmt.Sprintf("Question too long (limit %d bytes). Please ask a shorter question.", MaxQuestionBytes)))
			continue
		}
		if err != nil {
			fmt.Fprintln(out)
			u.transition(&state, StateEnded)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if isQuit(question) {
			fmt.Fprintln(out, st.apply(st.Bye, "Goodbye!"))
			u.transition(&state, StateEnded)
			return nil
		}

		u.transition(&state, StateRetrieving)
		chunks, err := u.retriever.Retrieve(question, u.topK)
		if err != nil {
			if domain.IsSessionFatal(err) {
				u.transition(&state, StateEnded)
				return err
			}
			u.logger.Warn("retrieval failed", "error", err)
			u.printBot(out, st.apply(st.Error, fmt.Sprintf("Retrieval failed: %v", err)))
			u.transition(&state, StateAwaitingInput)
			continue
		}

		u.transition(&state, StateComposing)
		answer, err := u.answerer.Answer(question, BuildContext(chunks))
		if err != nil {
			var apiErr *domain.APIError
			if errors.As(err, &apiErr) {
				answer = st.apply(st.Error, fmt.Sprintf("API Request Failed: %v", apiErr))
			} else {
				answer = st.apply(st.Error, fmt.Sprintf("An unexpected error occurred: %v", err))
			}
			u.logger.Warn("completion failed", "error", err)
		}

		u.transition(&state, StatePresenting)
		u.printBot(out, answer)
		u.transition(&state, StateAwaitingInput)
	}
	return nil
}

func (u *ChatUseCase) printBot(out io.Writer, text string) {
	fmt.Fprintln(out, u.styles.apply(u.styles.Bot, "Bot:")+" "+text)
}

func (u *ChatUseCase) transition(state *ChatState, next ChatState) {
	u.logger.Debug("chat state", "from", *state, "to", next)
	*state = next
}

// readQuestion reads one line without its line ending. A line longer than
// limit is consumed in full and reported as errQuestionTooLong.
func readQuestion(r *bufio.Reader, limit int) (string, error) {
	var buf []byte
	tooLong := false
	for {
		part, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(buf) > 0 || tooLong) {
				break
			}
			return "", err
		}
		if !tooLong {
			if len(buf)+len(part) > limit {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, part...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", errQuestionTooLong
	}
	return string(buf), nil
}

func isQuit(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "quit" || s == "exit"
}
