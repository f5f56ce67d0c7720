package driven

import (
	"context"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a record.
// It maintains a priority-ordered list of normalisers and dispatches
// based on content type.
type NormaliserRegistry interface {
	// Normalise converts a raw record using the best matching normaliser.
	// Records with an unrecognised content type fall through to the
	// lowest-priority fallback normaliser.
	Normalise(ctx context.Context, raw *domain.RawRecord) (*domain.CanonicalDocument, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedContentTypes returns all content types that can be normalised.
	SupportedContentTypes() []string
}
