// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService generates grounded answers from retrieved context.
// This is an optional service - when nil, `quarry ask` prints the assembled
// prompt instead of a model answer.
//
// Implementations may include:
//   - OpenAI (gpt-4o, gpt-4o-mini)
//   - Any OpenAI-compatible endpoint via a base URL override
type LLMService interface {
	// Complete generates a completion for the given system and user prompts.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompleteOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures completion behaviour.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
