package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"pdfrag/internal/domain"
)

// CurrentSchemaVersion is the session format written by this build.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// ContentHash hashes the ordered chunk sequence. Each chunk is length
// prefixed so that moving text across a chunk boundary changes the hash.
func ContentHash(chunks []string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, c := range chunks {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(c)))
		h.Write(lenBuf[:])
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks a session read back from any backend. Every failure wraps
// domain.ErrSessionCorrupt.
func Validate(s *domain.Session) error {
	meta := s.Meta

	switch {
	case meta.Version == 0:
		return fmt.Errorf("%w: missing schema version", domain.ErrSessionCorrupt)
	case meta.Version > CurrentSchemaVersion:
		return fmt.Errorf("%w: session created by newer version (v%d > v%d)", domain.ErrSessionCorrupt, meta.Version, CurrentSchemaVersion)
	}

	if meta.ChunkCount != len(s.Chunks) {
		return fmt.Errorf("%w: meta records %d chunks, found %d", domain.ErrSessionCorrupt, meta.ChunkCount, len(s.Chunks))
	}
	if meta.VectorCount != meta.ChunkCount {
		return fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrSessionCorrupt, meta.VectorCount, meta.ChunkCount)
	}
	if len(s.Index) == 0 {
		return fmt.Errorf("%w: missing vector index", domain.ErrSessionCorrupt)
	}
	if got := ContentHash(s.Chunks); got != meta.ContentHash {
		return fmt.Errorf("%w: content hash mismatch", domain.ErrSessionCorrupt)
	}
	return nil
}

// stamp fills in the fields Save owns.
func stamp(s *domain.Session) {
	s.Meta.Version = CurrentSchemaVersion
	s.Meta.ChunkCount = len(s.Chunks)
	s.Meta.ContentHash = ContentHash(s.Chunks)
}
