package port

// Extractor pulls plain text out of a document on disk.
type Extractor interface {
	Extract(path string) (string, error)

	// Supports reports whether the extractor handles the given path.
	Supports(path string) bool
}
