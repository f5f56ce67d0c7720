package driven

import (
	"context"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// VectorStore persists embedded chunks and answers similarity queries.
//
// Entries are keyed by chunk ID. Upsert replaces an existing entry with the
// same ID, which is what keeps re-ingestion idempotent.
type VectorStore interface {
	// Get retrieves a single entry by chunk ID.
	// Returns domain.ErrNotFound when the ID is absent.
	Get(ctx context.Context, chunkID string) (*domain.IndexEntry, error)

	// GetMany retrieves entries for the given chunk IDs in one round trip.
	// Absent IDs are missing from the result map rather than an error.
	GetMany(ctx context.Context, chunkIDs []string) (map[string]*domain.IndexEntry, error)

	// Upsert writes entries, replacing any with matching chunk IDs.
	// A write failure is reported as a *domain.IndexWriteError.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Query finds the k nearest entries to the query vector, best first.
	Query(ctx context.Context, vector []float32, k int) ([]domain.QueryHit, error)

	// Stats reports the current size of the index.
	Stats(ctx context.Context) (*domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
