package driving

import (
	"context"
	"io"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// IngestOrchestrator coordinates fetching, normalising, chunking, and
// indexing records from the configured sources.
type IngestOrchestrator interface {
	// IngestAll runs the full pipeline for every configured source and
	// returns the aggregated run summary.
	IngestAll(ctx context.Context) (*domain.RunSummary, error)

	// IngestSource runs the full pipeline for a single source.
	IngestSource(ctx context.Context, source domain.SourceType) (*domain.RunSummary, error)

	// Extract fetches raw records from the given sources (all configured
	// sources when empty) and writes them to w as NDJSON, one record per
	// line, without touching the index. Returns the record count.
	Extract(ctx context.Context, sources []domain.SourceType, w io.Writer) (int, error)

	// Load reads previously extracted NDJSON records from r and runs the
	// normalise-chunk-index pipeline over them.
	Load(ctx context.Context, r io.Reader) (*domain.RunSummary, error)

	// Reset clears stored sync state for the given sources (all configured
	// sources when empty), forcing the next ingestion to fetch from scratch.
	Reset(ctx context.Context, sources []domain.SourceType) error

	// Status reports the index size and per-source sync state.
	Status(ctx context.Context) (*IngestStatus, error)
}

// IngestStatus describes the current state of the index and each source.
type IngestStatus struct {
	// ChunkCount is the number of chunks in the vector index.
	ChunkCount int64

	// Sources holds the last recorded sync state per source.
	Sources []domain.SyncState
}
