// Package qdrant provides a Qdrant-backed implementation of driven.VectorStore.
//
// Similarity search runs server-side with cosine distance, so this backend
// scales to corpora the SQLite store would scan too slowly. Points are keyed
// by a UUID derived from the chunk ID; the original chunk ID travels in the
// payload.
package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// pointNamespace seeds deterministic point IDs so the same chunk always
// maps to the same Qdrant point across runs.
var pointNamespace = uuid.MustParse("e1af63cc-5640-4ee5-a7bd-2a1ec029160a")

// Config describes a Qdrant connection and target collection.
type Config struct {
	// Host is the Qdrant gRPC host.
	Host string

	// Port is the Qdrant gRPC port.
	Port int

	// UseTLS enables TLS for the connection.
	UseTLS bool

	// Collection is the collection points are written to. Created on
	// first use if it does not exist.
	Collection string

	// Dimensions is the vector size for a new collection.
	Dimensions int
}

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a Qdrant-backed implementation of driven.VectorStore.
type Store struct {
	client     *qdrant.Client
	collection string
}

// NewStore connects to Qdrant and ensures the collection exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	s := &Store{
		client:     client,
		collection: cfg.Collection,
	}

	if err := s.ensureCollection(ctx, cfg.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

// ensureCollection creates the collection if it does not exist yet.
func (s *Store) ensureCollection(ctx context.Context, dimensions int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", s.collection, err)
	}
	return nil
}

// Get retrieves a single entry by chunk ID.
func (s *Store) Get(ctx context.Context, chunkID string) (*domain.IndexEntry, error) {
	entries, err := s.GetMany(ctx, []string{chunkID})
	if err != nil {
		return nil, err
	}
	entry, ok := entries[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

// GetMany retrieves entries for the given chunk IDs. Absent IDs are
// missing from the result map rather than an error.
func (s *Store) GetMany(ctx context.Context, chunkIDs []string) (map[string]*domain.IndexEntry, error) {
	entries := make(map[string]*domain.IndexEntry, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return entries, nil
	}

	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, chunkID := range chunkIDs {
		ids[i] = qdrant.NewID(pointID(chunkID))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving points: %w", err)
	}

	for _, point := range points {
		entry, err := entryFromPayload(point.GetPayload())
		if err != nil {
			return nil, err
		}
		entry.Embedding = point.GetVectors().GetVector().GetData()
		entries[entry.ChunkID] = entry
	}

	return entries, nil
}

// Upsert writes entries, replacing any with matching chunk IDs.
func (s *Store) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, entry := range entries {
		payload, err := entryPayload(entry)
		if err != nil {
			return &domain.IndexWriteError{ChunkID: entry.ChunkID, Err: err}
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(entry.ChunkID)),
			Vectors: qdrant.NewVectors(entry.Embedding...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return &domain.IndexWriteError{ChunkID: entries[0].ChunkID, Err: err}
	}
	return nil
}

// Query finds the k nearest entries by cosine similarity, best first.
// Equal scores are ordered by chunk ID so results are deterministic.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]domain.QueryHit, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	hits := make([]domain.QueryHit, 0, len(points))
	for _, point := range points {
		entry, err := entryFromPayload(point.GetPayload())
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.QueryHit{
			ChunkID:  entry.ChunkID,
			Score:    float64(point.GetScore()),
			Text:     entry.Text,
			Metadata: entry.Metadata,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Score > hits[j].Score
	})

	return hits, nil
}

// Stats reports the current size of the index.
func (s *Store) Stats(ctx context.Context) (*domain.IndexStats, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("counting points: %w", err)
	}
	return &domain.IndexStats{Count: int64(count)}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// pointID derives a stable UUID for a chunk ID. Qdrant only accepts UUID
// or integer point IDs, so chunk IDs cannot be used directly.
func pointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// entryPayload builds the point payload for an entry. Metadata travels as
// a JSON string rather than a nested struct to keep round-trips simple.
func entryPayload(entry domain.IndexEntry) (map[string]*qdrant.Value, error) {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}

	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	return qdrant.NewValueMap(map[string]any{
		"chunk_id":     entry.ChunkID,
		"content_hash": entry.ContentHash,
		"text":         entry.Text,
		"metadata":     string(metadataJSON),
		"updated_at":   updatedAt.Format(time.RFC3339Nano),
	}), nil
}

// entryFromPayload rebuilds an entry from a point payload. The embedding
// is not part of the payload; callers attach it from the point vectors.
func entryFromPayload(payload map[string]*qdrant.Value) (*domain.IndexEntry, error) {
	entry := &domain.IndexEntry{
		ChunkID:     payload["chunk_id"].GetStringValue(),
		ContentHash: payload["content_hash"].GetStringValue(),
		Text:        payload["text"].GetStringValue(),
	}

	if metadataJSON := payload["metadata"].GetStringValue(); metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	if raw := payload["updated_at"].GetStringValue(); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			entry.UpdatedAt = parsed
		}
	}

	return entry, nil
}
