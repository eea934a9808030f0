package chunker

import (
	"fmt"

	"pdfrag/internal/domain"
)

// WindowChunker splits text into fixed-size character windows that overlap
// by a fixed number of characters. It ignores sentence and word boundaries.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidChunkConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrInvalidChunkConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)", domain.ErrInvalidChunkConfig, overlap, size)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Chunk returns the windows in left-to-right order. Offsets are counted in
// runes so a multi-byte character is never split.
func (c *WindowChunker) Chunk(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks, nil
}

func (c *WindowChunker) Size() int {
	return c.size
}

func (c *WindowChunker) Overlap() int {
	return c.overlap
}
