package port

// VectorIndex stores vectors under dense positional identifiers 0..N-1 in
// insertion order and answers k-nearest-neighbour queries.
type VectorIndex interface {
	// Add appends vectors; the first added vector fixes the dimension.
	Add(vectors [][]float32) error

	// Search returns up to k neighbours ordered nearest first.
	Search(query []float32, k int) ([]Neighbor, error)

	// Count returns the number of stored vectors.
	Count() int

	// Dimension returns the vector dimension, 0 while empty.
	Dimension() int

	MarshalBinary() ([]byte, error)

	UnmarshalBinary(data []byte) error
}

// Neighbor is a search hit.
type Neighbor struct {
	Position int     // Insertion position of the vector
	Distance float64 // Euclidean distance to the query (lower is closer)
}
