// Package plaintext provides the fallback Normaliser implementation.
// It treats record content as already-plain text and is selected for
// text/plain records and anything no other normaliser claims.
package plaintext

import (
	"context"
	"strings"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-cli/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text records.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedContentTypes returns the content types this normaliser handles.
func (n *Normaliser) SupportedContentTypes() []string {
	return []string{
		domain.ContentTypePlain,
		"text/csv",
		"application/json",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a plain text record to a canonical document.
// The body is the content with surrounding whitespace trimmed.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawRecord) (*domain.CanonicalDocument, error) {
	if err := normalisers.Identify(raw); err != nil {
		return nil, err
	}
	return normalisers.BuildDocument(raw, strings.TrimSpace(raw.Content)), nil
}
