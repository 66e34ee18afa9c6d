package driven

import "context"

// ContextPassage is one ranked retrieval passage handed to the
// answer-generation collaborator.
type ContextPassage struct {
	Filename string
	Text     string
	Page     int
}

// LLMService generates natural-language answers from a question and
// ranked context passages. Answer synthesis itself is outside the
// core: the core only supplies structured context.
//
// Implementations may include:
//   - Ollama (local models)
//   - Anthropic (Claude)
//   - OpenAI
type LLMService interface {
	// GenerateAnswer produces an answer grounded in the passages.
	GenerateAnswer(ctx context.Context, question string, passages []ContextPassage) (string, error)

	// ModelName returns the identifier of the model used, for
	// reporting back to callers.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
