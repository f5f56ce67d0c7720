package driven

import (
	"context"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// SyncStateStore persists per-source sync progress.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a source.
	// Returns domain.ErrNotFound when the source has never completed a sync.
	Get(ctx context.Context, source domain.SourceType) (*domain.SyncState, error)

	// Delete removes sync state for a source, forcing the next sync to
	// start from scratch.
	Delete(ctx context.Context, source domain.SourceType) error
}
