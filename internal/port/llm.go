package port

// LLM represents a language model for text generation.
type LLM interface {
	// Generate generates text based on the prompt.
	Generate(prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
