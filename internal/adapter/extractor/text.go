package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// TextExtractor reads plain-text documents verbatim.
type TextExtractor struct {
	extensions []string
}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{extensions: []string{".txt", ".md", ".markdown", ".text"}}
}

func (e *TextExtractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range e.extensions {
		if ext == known {
			return true
		}
	}
	return false
}

func (e *TextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrExtraction, path)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: %s contains no text", domain.ErrExtraction, path)
	}
	return string(data), nil
}

// Composite dispatches to the first extractor that supports a path.
type Composite struct {
	extractors []port.Extractor
}

func NewComposite(extractors ...port.Extractor) *Composite {
	return &Composite{extractors: extractors}
}

// NewDefault returns an extractor for PDF and plain-text documents.
func NewDefault() *Composite {
	return NewComposite(NewPDFExtractor(), NewTextExtractor())
}

func (c *Composite) Supports(path string) bool {
	return c.find(path) != nil
}

func (c *Composite) Extract(path string) (string, error) {
	ext := c.find(path)
	if ext == nil {
		return "", fmt.Errorf("%w: unsupported document type %q", domain.ErrExtraction, filepath.Ext(path))
	}
	return ext.Extract(path)
}

func (c *Composite) find(path string) port.Extractor {
	for _, e := range c.extractors {
		if e.Supports(path) {
			return e
		}
	}
	return nil
}
