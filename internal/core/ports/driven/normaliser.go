package driven

import (
	"context"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// Normaliser converts a raw record into a canonical document.
// Each normaliser handles specific content types (e.g., ADF, HTML).
type Normaliser interface {
	// SupportedContentTypes returns the content types this normaliser handles.
	SupportedContentTypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise converts a raw record into a plain-text canonical document.
	//
	// Structural markup is stripped; only human-readable text survives. A
	// record missing its identity (source or source_id) is reported as a
	// *domain.MalformedRecordError so callers can skip it and continue.
	// Lesser defects degrade to empty fields instead of failing.
	Normalise(ctx context.Context, raw *domain.RawRecord) (*domain.CanonicalDocument, error)
}
