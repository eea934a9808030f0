package domain

import (
	"errors"
	"fmt"
)

var (
	ErrExtraction         = errors.New("text extraction failed")
	ErrEmptyDocument      = errors.New("document produced no chunks")
	ErrEmbedding          = errors.New("embedding failed")
	ErrIndexBuild         = errors.New("index build failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionCorrupt     = errors.New("session corrupt")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrIndexOutOfRange    = errors.New("index position out of range")
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")
)

// APIErrorKind classifies a failed completion request.
type APIErrorKind string

const (
	APIErrorNetwork APIErrorKind = "network"
	APIErrorTimeout APIErrorKind = "timeout"
	APIErrorStatus  APIErrorKind = "status"
	APIErrorDecode  APIErrorKind = "decode"
)

// APIError is returned when talking to the completion service fails.
type APIError struct {
	Kind       APIErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case APIErrorStatus:
		return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
	case APIErrorTimeout:
		return fmt.Sprintf("request timed out: %v", e.Err)
	case APIErrorDecode:
		return fmt.Sprintf("failed to parse response: %v", e.Err)
	default:
		return fmt.Sprintf("request failed: %v", e.Err)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsSessionFatal reports whether err means the loaded session cannot be
// trusted for further retrieval.
func IsSessionFatal(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrSessionCorrupt)
}
