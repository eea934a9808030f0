package extractor

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"pdfrag/internal/domain"
)

// PDFExtractor extracts the plain text of every page of a PDF, in page order.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func (e *PDFExtractor) Extract(path string) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: corrupt pdf: %v", domain.ErrExtraction, path, r)
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open pdf %s: %v", domain.ErrExtraction, path, err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: failed to read pdf text: %v", domain.ErrExtraction, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("%w: failed to read pdf buffer: %v", domain.ErrExtraction, err)
	}

	text = buf.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text could be extracted from %s", domain.ErrExtraction, path)
	}
	return text, nil
}
