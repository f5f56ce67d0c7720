package domain

import "time"

// IndexEntry is the persisted record for one chunk in the vector store.
// Created on first sighting of a chunk ID, overwritten only when the
// content hash changes, never deleted automatically.
type IndexEntry struct {
	// ChunkID is the deterministic chunk identifier.
	ChunkID string

	// ContentHash is the fingerprint of the text that was embedded.
	// An incoming chunk with the same hash is skipped without re-embedding.
	ContentHash string

	// Embedding is the vector for the text at ContentHash.
	Embedding []float32

	// Text is the chunk content, kept so retrieval can assemble context
	// without a second store.
	Text string

	// Metadata carries the chunk's attribution payload.
	Metadata map[string]string

	// UpdatedAt is when this entry was last written.
	UpdatedAt time.Time
}

// QueryHit is one similarity search result.
type QueryHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity score, higher is closer.
	Score float64

	// Text is the matched chunk's content.
	Text string

	// Metadata is the matched chunk's attribution payload.
	Metadata map[string]string
}

// IndexStats summarises the persisted index.
type IndexStats struct {
	// Count is the number of entries in the store.
	Count int64
}
