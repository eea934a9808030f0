package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"pdfrag/internal/adapter/vectorindex"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// OpenSession loads the current session from store. A missing session is
// reported as domain.ErrSessionNotFound.
func OpenSession(store port.SessionStore) (*domain.Session, error) {
	session, ok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RetrieveUseCase answers nearest-chunk queries against a loaded session.
type RetrieveUseCase struct {
	session  *domain.Session
	index    port.VectorIndex
	embedder port.Embedder
	logger   *slog.Logger
	warned   bool
}

// NewRetrieveUseCase decodes the session's vector index and checks that it
// lines up with the chunk sequence.
func NewRetrieveUseCase(session *domain.Session, embedder port.Embedder, logger *slog.Logger) (*RetrieveUseCase, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index, err := vectorindex.Load(session.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionCorrupt, err)
	}
	return NewRetrieveUseCaseWithIndex(session, index, embedder, logger)
}

// NewRetrieveUseCaseWithIndex searches an already decoded index. The index
// must hold one vector per session chunk.
func NewRetrieveUseCaseWithIndex(session *domain.Session, index port.VectorIndex, embedder port.Embedder, logger *slog.Logger) (*RetrieveUseCase, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if index.Count() != len(session.Chunks) {
		return nil, fmt.Errorf("%w: index holds %d vectors for %d chunks", domain.ErrSessionCorrupt, index.Count(), len(session.Chunks))
	}

	return &RetrieveUseCase{
		session:  session,
		index:    index,
		embedder: embedder,
		logger:   logger,
	}, nil
}

func (u *RetrieveUseCase) Session() *domain.Session {
	return u.session
}

// Retrieve returns the k chunks nearest to query, nearest first.
func (u *RetrieveUseCase) Retrieve(query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", k)
	}
	if k > u.index.Count() {
		k = u.index.Count()
	}

	if !u.warned && u.session.Meta.Model != "" && u.embedder.ModelName() != u.session.Meta.Model {
		u.logger.Warn("query embedding model differs from indexed model",
			"indexed", u.session.Meta.Model, "query", u.embedder.ModelName())
		u.warned = true
	}

	vecs, err := u.embedder.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one query", domain.ErrEmbedding, len(vecs))
	}
	if len(vecs[0]) != u.index.Dimension() {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrDimensionMismatch, len(vecs[0]), u.index.Dimension())
	}

	hits, err := u.index.Search(vecs[0], k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(u.session.Chunks) {
			return nil, fmt.Errorf("%w: position %d, %d chunks", domain.ErrIndexOutOfRange, h.Position, len(u.session.Chunks))
		}
		results = append(results, domain.ScoredChunk{
			Chunk:    domain.Chunk{Position: h.Position, Text: u.session.Chunks[h.Position]},
			Distance: h.Distance,
		})
	}

	u.logger.Debug("retrieved chunks", "k", k, "hits", len(results))
	return results, nil
}

// BuildContext joins the chunk texts with a blank line, in the given order.
func BuildContext(chunks []domain.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

// ScoredChunkResult is a simplified result for CLI output.
type ScoredChunkResult struct {
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
}

// ToResults converts scored chunks to CLI-friendly results.
func ToResults(chunks []domain.ScoredChunk) []ScoredChunkResult {
	results := make([]ScoredChunkResult, len(chunks))
	for i, c := range chunks {
		results[i] = ScoredChunkResult{
			Position: c.Chunk.Position,
			Distance: c.Distance,
			Text:     c.Chunk.Text,
		}
	}
	return results
}
