package embedding

import (
	"hash/fnv"
	"math"

	"pdfrag/internal/adapter/analyzer"
)

// HashEmbedder is a local, deterministic embedder. It hashes word unigrams
// and bigrams, stopwords removed, into a fixed number of buckets and
// L2-normalizes the result. Retrieval quality is lexical only.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(true, 1),
	}
}

func (e *HashEmbedder) Embed(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.embed(text)
	}
	return embeddings, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)

	words := e.tokenizer.Tokenize(text)
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// add uses the signed hashing trick so collisions tend to cancel out.
func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dimension))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return "hash"
}
