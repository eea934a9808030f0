package port

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension, or 0 when it is
	// only known after the first call to Embed.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
