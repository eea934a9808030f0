package domain

import "time"

// Chunk is a contiguous window of the extracted document text. Position is
// both its place in the chunk sequence and its identifier in the vector index.
type Chunk struct {
	Position int
	Text     string
}

type ScoredChunk struct {
	Chunk    Chunk
	Distance float64
}

// SessionMeta describes a persisted session.
type SessionMeta struct {
	Version      int       `json:"version"`
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Model        string    `json:"model"`
	Dimension    int       `json:"dimension"`
	ChunkCount   int       `json:"chunk_count"`
	VectorCount  int       `json:"vector_count"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	ContentHash  string    `json:"content_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is one indexed document: the ordered chunk texts and the
// serialized vector index built from them. Chunks[i] corresponds to vector i.
type Session struct {
	Meta   SessionMeta
	Chunks []string
	Index  []byte
}
