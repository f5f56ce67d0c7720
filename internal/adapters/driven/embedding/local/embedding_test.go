package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
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

func TestNewEmbeddingService(t *testing.T) {
	svc := NewEmbeddingService(0)
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, "local-hash-384", svc.ModelName())

	svc = NewEmbeddingService(64)
	assert.Equal(t, 64, svc.Dimensions())
	assert.Equal(t, "local-hash-64", svc.ModelName())
}

func TestEmbed_Deterministic(t *testing.T) {
	svc := NewEmbeddingService(64)
	ctx := context.Background()

	a, err := svc.Embed(ctx, "the pager rotation changed")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "the pager rotation changed")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestEmbed_UnitNorm(t *testing.T) {
	svc := NewEmbeddingService(64)

	vec, err := svc.Embed(context.Background(), "incident response runbook for the payments service")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(8)

	vec, err := svc.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestEmbed_SharedVocabularyScoresHigher(t *testing.T) {
	svc := NewEmbeddingService(256)
	ctx := context.Background()

	query, err := svc.Embed(ctx, "database connection pool exhausted")
	require.NoError(t, err)
	related, err := svc.Embed(ctx, "the database connection pool was exhausted during the incident")
	require.NoError(t, err)
	unrelated, err := svc.Embed(ctx, "quarterly holiday schedule for the office")
	require.NoError(t, err)

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	svc := NewEmbeddingService(64)
	ctx := context.Background()

	vectors, err := svc.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	alpha, err := svc.Embed(ctx, "alpha")
	require.NoError(t, err)
	beta, err := svc.Embed(ctx, "beta")
	require.NoError(t, err)

	assert.Equal(t, alpha, vectors[0])
	assert.Equal(t, beta, vectors[1])
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc := NewEmbeddingService(64)

	vectors, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestPingAndClose(t *testing.T) {
	svc := NewEmbeddingService(64)
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
