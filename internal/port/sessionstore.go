package port

import "pdfrag/internal/domain"

type SessionStore interface {
	// Save replaces any existing session atomically.
	Save(session *domain.Session) error

	// Load returns the stored session. The boolean is false, with a nil
	// error, when no session has been saved yet.
	Load() (*domain.Session, bool, error)

	Close() error
}
