package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

func indexEntry(chunkID, hash string, embedding []float32) domain.IndexEntry {
	return domain.IndexEntry{
		ChunkID:     chunkID,
		ContentHash: hash,
		Embedding:   embedding,
		Text:        "text for " + chunkID,
		Metadata:    map[string]string{"source": "confluence"},
		UpdatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewIndexStore(t *testing.T) {
	store := NewIndexStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.entries)
}

func TestIndexStore_UpsertAndGet(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	entry := indexEntry("chunk-1", "hash-1", []float32{0.5, -0.25})
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{entry}))

	got, err := store.Get(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, entry.ChunkID, got.ChunkID)
	assert.Equal(t, entry.ContentHash, got.ContentHash)
	assert.Equal(t, entry.Embedding, got.Embedding)
	assert.Equal(t, entry.Text, got.Text)
	assert.Equal(t, entry.Metadata, got.Metadata)
}

func TestIndexStore_Get_NotFound(t *testing.T) {
	store := NewIndexStore()

	entry, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, entry)
}

func TestIndexStore_Upsert_Replaces(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{indexEntry("chunk-1", "hash-old", []float32{1, 0})}))
	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{indexEntry("chunk-1", "hash-new", []float32{0, 1})}))

	got, err := store.Get(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-new", got.ContentHash)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)
}

func TestIndexStore_GetMany(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		indexEntry("chunk-1", "hash-1", []float32{1, 0}),
		indexEntry("chunk-2", "hash-2", []float32{0, 1}),
	}))

	entries, err := store.GetMany(ctx, []string{"chunk-1", "chunk-2", "chunk-missing"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hash-1", entries["chunk-1"].ContentHash)
	assert.NotContains(t, entries, "chunk-missing")
}

func TestIndexStore_Query_RanksByCosineSimilarity(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		indexEntry("chunk-exact", "h1", []float32{1, 0, 0}),
		indexEntry("chunk-close", "h2", []float32{0.9, 0.1, 0}),
		indexEntry("chunk-orthogonal", "h3", []float32{0, 1, 0}),
	}))

	hits, err := store.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "chunk-exact", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "chunk-close", hits[1].ChunkID)
}

func TestIndexStore_Query_TieBreaksOnChunkID(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		indexEntry("chunk-z", "h1", []float32{1, 0}),
		indexEntry("chunk-a", "h2", []float32{1, 0}),
	}))

	hits, err := store.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "chunk-a", hits[0].ChunkID)
	assert.Equal(t, "chunk-z", hits[1].ChunkID)
}

func TestIndexStore_Query_SkipsMismatchedDimensions(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		indexEntry("chunk-old-model", "h1", []float32{1, 0}),
		indexEntry("chunk-current", "h2", []float32{1, 0, 0}),
	}))

	hits, err := store.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chunk-current", hits[0].ChunkID)
}

func TestIndexStore_Query_EmptyStore(t *testing.T) {
	store := NewIndexStore()

	hits, err := store.Query(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexStore_Stats(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Count)

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{
		indexEntry("chunk-1", "h1", []float32{1}),
		indexEntry("chunk-2", "h2", []float32{0}),
	}))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
}

func TestIndexStore_DataIsolation(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexEntry{indexEntry("chunk-1", "hash-1", []float32{1, 0})}))

	// Mutating the retrieved copy must not corrupt stored state
	retrieved, err := store.Get(ctx, "chunk-1")
	require.NoError(t, err)
	retrieved.Embedding[0] = -1
	retrieved.Metadata["source"] = "tampered"

	original, err := store.Get(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, float32(1), original.Embedding[0])
	assert.Equal(t, "confluence", original.Metadata["source"])
}

func TestIndexStore_Concurrency_MixedOperations(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	numOperations := 100

	wg.Add(numOperations)
	for i := 0; i < numOperations; i++ {
		go func(id int) {
			defer wg.Done()
			chunkID := "chunk-" + string(rune('A'+id%26))
			switch id % 3 {
			case 0:
				_ = store.Upsert(ctx, []domain.IndexEntry{indexEntry(chunkID, "hash", []float32{1, 0})})
			case 1:
				_, _ = store.Get(ctx, chunkID)
			case 2:
				_, _ = store.Query(ctx, []float32{1, 0}, 3)
			}
		}(i)
	}
	wg.Wait()

	// Should not panic or deadlock
	_, err := store.Stats(ctx)
	assert.NoError(t, err)
}
