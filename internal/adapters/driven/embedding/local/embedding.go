// Package local provides a deterministic embedding service with no network
// dependency.
//
// Vectors come from feature hashing: each token is hashed into a bucket and
// the result is L2-normalised. Texts sharing vocabulary land near each other
// under cosine similarity, which is enough for offline runs, smoke tests and
// air-gapped environments. It is not a substitute for a learned model.
package local

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 384

// EmbeddingService produces deterministic hash-based vectors.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a local embedding service with the given
// vector size. Non-positive sizes fall back to DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.embed(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
// The i-th vector corresponds to texts[i].
func (s *EmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.embed(text)
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return fmt.Sprintf("local-hash-%d", s.dimensions)
}

// Ping always succeeds; there is no remote service to reach.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// embed hashes each lowercased token into a signed bucket and normalises
// the accumulated vector to unit length.
func (s *EmbeddingService) embed(text string) []float32 {
	vec := make([]float32, s.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := xxhash.Sum64String(token)
		bucket := int(h % uint64(s.dimensions))
		// The top bit picks the sign so unrelated tokens cancel instead
		// of every text drifting towards the same quadrant.
		if h&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
