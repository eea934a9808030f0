package usecase

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"pdfrag/internal/adapter/vectorindex"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// ProgressFunc is called after each embedding batch with the number of
// chunks embedded so far.
type ProgressFunc func(done, total int)

// IndexUseCase turns one document into a persisted session.
type IndexUseCase struct {
	extractor port.Extractor
	chunker   port.Chunker
	embedder  port.Embedder
	store     port.SessionStore
	batchSize int
	logger    *slog.Logger
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(
	extractor port.Extractor,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.SessionStore,
	batchSize int,
	logger *slog.Logger,
) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	SessionID  string
	Path       string
	Characters int
	Chunks     int
	Dimension  int
	Model      string
	Duration   time.Duration
}

// ChunkParams is implemented by chunkers that can report their settings for
// the session metadata.
type ChunkParams interface {
	Size() int
	Overlap() int
}

// BuildSession extracts, chunks, embeds and indexes the document at path and
// saves the result, replacing any previous session.
func (u *IndexUseCase) BuildSession(path string, progress ProgressFunc) (*IndexResult, error) {
	start := time.Now()

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	text, err := u.extractor.Extract(absPath)
	if err != nil {
		return nil, err
	}
	u.logger.Debug("extracted text", "path", absPath, "chars", utf8.RuneCountInString(text))

	chunks, err := u.chunker.Chunk(text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, absPath)
	}
	u.logger.Debug("chunked text", "chunks", len(chunks))

	vectors, err := u.embedAll(chunks, progress)
	if err != nil {
		return nil, err
	}

	index, err := buildIndex(vectors, len(chunks))
	if err != nil {
		return nil, err
	}

	blob, err := index.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}

	meta := domain.SessionMeta{
		ID:          uuid.NewString(),
		Source:      absPath,
		Model:       u.embedder.ModelName(),
		Dimension:   index.Dimension(),
		VectorCount: index.Count(),
		CreatedAt:   time.Now().UTC(),
	}
	if p, ok := u.chunker.(ChunkParams); ok {
		meta.ChunkSize = p.Size()
		meta.ChunkOverlap = p.Overlap()
	}

	session := &domain.Session{Meta: meta, Chunks: chunks, Index: blob}
	if err := u.store.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	result := &IndexResult{
		SessionID:  meta.ID,
		Path:       absPath,
		Characters: utf8.RuneCountInString(text),
		Chunks:     len(chunks),
		Dimension:  meta.Dimension,
		Model:      meta.Model,
		Duration:   time.Since(start),
	}
	u.logger.Info("session built", "id", result.SessionID, "chunks", result.Chunks, "dimension", result.Dimension, "duration", result.Duration)
	return result, nil
}

func (u *IndexUseCase) embedAll(chunks []string, progress ProgressFunc) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for i := 0; i < len(chunks); i += u.batchSize {
		end := i + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch, err := u.embedder.Embed(chunks[i:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbedding, len(batch), end-i)
		}
		vectors = append(vectors, batch...)

		if progress != nil {
			progress(len(vectors), len(chunks))
		}
		u.logger.Debug("embedded batch", "done", len(vectors), "total", len(chunks))
	}

	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", domain.ErrEmbedding)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", domain.ErrEmbedding, i, len(v), dim)
		}
	}
	return vectors, nil
}

// buildIndex adds the vectors in chunk order, so index position i is chunk i.
func buildIndex(vectors [][]float32, chunkCount int) (*vectorindex.FlatL2, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: no vectors to index", domain.ErrIndexBuild)
	}
	if len(vectors) != chunkCount {
		return nil, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrIndexBuild, len(vectors), chunkCount)
	}

	index := vectorindex.NewFlatL2(len(vectors[0]))
	if err := index.Add(vectors); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	if index.Count() != chunkCount {
		return nil, fmt.Errorf("%w: index holds %d vectors for %d chunks", domain.ErrIndexBuild, index.Count(), chunkCount)
	}
	return index, nil
}
