package memstore

import (
	"sync"

	"pdfrag/internal/domain"
)

// MemoryStore holds a session in process memory. Save and Load copy so
// callers cannot mutate the stored session.
type MemoryStore struct {
	mu      sync.RWMutex
	session *domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = clone(session)
	return nil
}

func (s *MemoryStore) Load() (*domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, false, nil
	}
	return clone(s.session), true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func clone(src *domain.Session) *domain.Session {
	return &domain.Session{
		Meta:   src.Meta,
		Chunks: append([]string(nil), src.Chunks...),
		Index:  append([]byte(nil), src.Index...),
	}
}
