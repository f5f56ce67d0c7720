package driven

import (
	"context"
	"errors"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// SyncComplete signals that a connector finished a fetch pass.
// It is delivered on the error channel as the final value before close and
// carries the cursor the next incremental fetch should resume from.
type SyncComplete struct {
	// Cursor is an opaque, connector-specific resume position.
	// Empty means the source does not support incremental fetches.
	Cursor string
}

// Error implements the error interface.
func (s *SyncComplete) Error() string {
	return "sync complete"
}

// IsSyncComplete reports whether err is a SyncComplete marker.
func IsSyncComplete(err error) (*SyncComplete, bool) {
	var sc *SyncComplete
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}

// Connector streams raw records from an external knowledge source.
//
// Implementations deliver records over a channel so large sources can be
// consumed without buffering everything in memory. Both channels are closed
// when the fetch finishes. A *SyncComplete on the error channel marks a
// successful pass; a *domain.TransportError marks an aborted one. Records
// delivered before an abort remain valid.
type Connector interface {
	// Source returns the source this connector serves.
	Source() domain.SourceType

	// Validate checks connectivity and credentials without fetching records.
	Validate(ctx context.Context) error

	// FetchAll streams every record from the source.
	FetchAll(ctx context.Context) (<-chan domain.RawRecord, <-chan error)

	// FetchSince streams records changed since the given sync state.
	// An empty cursor falls back to a full fetch.
	FetchSince(ctx context.Context, state domain.SyncState) (<-chan domain.RawRecord, <-chan error)

	// Close releases connector resources.
	Close() error
}
