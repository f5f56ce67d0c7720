package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.VectorStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.VectorStore.
// Useful for tests and for one-off runs where persistence is not wanted.
type IndexStore struct {
	mu      sync.RWMutex
	entries map[string]domain.IndexEntry
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		entries: make(map[string]domain.IndexEntry),
	}
}

// Get retrieves a single entry by chunk ID.
func (s *IndexStore) Get(_ context.Context, chunkID string) (*domain.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyEntry(entry), nil
}

// GetMany retrieves entries for the given chunk IDs. Absent IDs are
// missing from the result map rather than an error.
func (s *IndexStore) GetMany(_ context.Context, chunkIDs []string) (map[string]*domain.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.IndexEntry, len(chunkIDs))
	for _, id := range chunkIDs {
		if entry, ok := s.entries[id]; ok {
			result[id] = copyEntry(entry)
		}
	}
	return result, nil
}

// Upsert writes entries, replacing any with matching chunk IDs.
func (s *IndexStore) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = time.Now().UTC()
		}
		s.entries[entry.ChunkID] = *copyEntry(entry)
	}
	return nil
}

// Query finds the k nearest entries by cosine similarity, best first.
// Equal scores are ordered by chunk ID so results are deterministic.
func (s *IndexStore) Query(_ context.Context, vector []float32, k int) ([]domain.QueryHit, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.QueryHit //nolint:prealloc // mismatched entries are skipped
	for _, entry := range s.entries {
		if len(entry.Embedding) != len(vector) {
			continue
		}
		hits = append(hits, domain.QueryHit{
			ChunkID:  entry.ChunkID,
			Score:    cosineSimilarity(vector, entry.Embedding),
			Text:     entry.Text,
			Metadata: copyMetadata(entry.Metadata),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Stats reports the current size of the index.
func (s *IndexStore) Stats(_ context.Context) (*domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &domain.IndexStats{Count: int64(len(s.entries))}, nil
}

// Close releases resources. No-op for the memory store.
func (s *IndexStore) Close() error {
	return nil
}

// copyEntry deep-copies an entry so callers cannot mutate stored state.
func copyEntry(entry domain.IndexEntry) *domain.IndexEntry {
	e := entry
	if entry.Embedding != nil {
		e.Embedding = make([]float32, len(entry.Embedding))
		copy(e.Embedding, entry.Embedding)
	}
	e.Metadata = copyMetadata(entry.Metadata)
	return &e
}

// copyMetadata copies a metadata map, preserving nil.
func copyMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	m := make(map[string]string, len(metadata))
	for k, v := range metadata {
		m[k] = v
	}
	return m
}

// cosineSimilarity computes the cosine of the angle between two vectors
// of equal length, accumulating in float64.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
