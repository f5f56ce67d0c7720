package driving

import (
	"context"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// AskService answers questions against the indexed knowledge base.
type AskService interface {
	// Retrieve embeds the question, queries the index, and assembles the
	// context block and final prompt without calling a language model.
	Retrieve(ctx context.Context, question string, topK int) (*domain.AnswerContext, error)

	// Ask retrieves context for the question and, when a language model is
	// configured, generates a grounded answer.
	Ask(ctx context.Context, question string, topK int) (*Answer, error)
}

// Answer is the result of an ask invocation.
type Answer struct {
	// Context is the retrieval result the answer was grounded on.
	Context *domain.AnswerContext

	// Text is the model answer. Empty when no LLM is configured.
	Text string

	// Model is the name of the LLM used, empty when no LLM is configured.
	Model string
}
