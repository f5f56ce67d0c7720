package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/quarry-labs/quarry-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// getManyBatch caps the number of bind variables per IN query.
const getManyBatch = 500

// Store is a unified SQLite-based storage that backs both the vector
// index and the per-source sync state through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified database path.
// If dbPath is empty, defaults to ~/.quarry/index.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".quarry", "index.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// IndexStore returns a VectorStore interface backed by this store.
func (s *Store) IndexStore() driven.VectorStore {
	return &indexStore{store: s}
}

// SyncStateStore returns a SyncStateStore interface backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Index Store ====================

// indexStore implements driven.VectorStore.
type indexStore struct {
	store *Store
}

var _ driven.VectorStore = (*indexStore)(nil)

// Get retrieves a single entry by chunk ID.
func (s *indexStore) Get(ctx context.Context, chunkID string) (*domain.IndexEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT chunk_id, content_hash, embedding, text, metadata, updated_at
		FROM index_entries WHERE chunk_id = ?
	`, chunkID)

	entry, err := scanEntryRow(row)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetMany retrieves entries for the given chunk IDs. Absent IDs are
// missing from the result map rather than an error.
func (s *indexStore) GetMany(ctx context.Context, chunkIDs []string) (map[string]*domain.IndexEntry, error) {
	entries := make(map[string]*domain.IndexEntry, len(chunkIDs))

	// SQLite caps bind variables, so large ID sets go in batches.
	for start := 0; start < len(chunkIDs); start += getManyBatch {
		end := start + getManyBatch
		if end > len(chunkIDs) {
			end = len(chunkIDs)
		}
		batch := chunkIDs[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		rows, err := s.store.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT chunk_id, content_hash, embedding, text, metadata, updated_at
			FROM index_entries WHERE chunk_id IN (%s)
		`, placeholders), args...)
		if err != nil {
			return nil, fmt.Errorf("querying entries: %w", err)
		}

		if err := collectEntries(rows, entries); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// Upsert writes entries, replacing any with matching chunk IDs.
func (s *indexStore) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.IndexWriteError{ChunkID: entries[0].ChunkID, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries (chunk_id, content_hash, embedding, text, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			embedding = excluded.embedding,
			text = excluded.text,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return &domain.IndexWriteError{ChunkID: entries[0].ChunkID, Err: err}
	}
	defer stmt.Close()

	for _, entry := range entries {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return &domain.IndexWriteError{ChunkID: entry.ChunkID, Err: err}
		}

		updatedAt := entry.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}

		embeddingBlob := float32SliceToBytes(entry.Embedding)

		if _, err := stmt.ExecContext(ctx, entry.ChunkID, entry.ContentHash,
			embeddingBlob, entry.Text, string(metadataJSON), updatedAt); err != nil {
			return &domain.IndexWriteError{ChunkID: entry.ChunkID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.IndexWriteError{ChunkID: entries[0].ChunkID, Err: err}
	}
	return nil
}

// Query finds the k nearest entries by cosine similarity. The index is
// scanned in full, which is fine at the scale a single workstation holds.
func (s *indexStore) Query(ctx context.Context, vector []float32, k int) ([]domain.QueryHit, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, embedding, text, metadata
		FROM index_entries
	`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var hits []domain.QueryHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunkID, metadataJSON, text string
		var embeddingBlob []byte
		if err := rows.Scan(&chunkID, &embeddingBlob, &text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		embedding := bytesToFloat32Slice(embeddingBlob)
		if len(embedding) != len(vector) {
			continue // Dimension mismatch, entry predates a model change
		}

		var metadata map[string]string
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}

		hits = append(hits, domain.QueryHit{
			ChunkID:  chunkID,
			Score:    cosineSimilarity(vector, embedding),
			Text:     text,
			Metadata: metadata,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
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
func (s *indexStore) Stats(ctx context.Context) (*domain.IndexStats, error) {
	var count int64
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM index_entries").Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}
	return &domain.IndexStats{Count: count}, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *indexStore) Close() error {
	return nil
}

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (source, cursor, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync
	`, string(state.Source), state.Cursor, state.LastSync)

	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a source.
func (s *syncStateStore) Get(ctx context.Context, source domain.SourceType) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source, cursor, last_sync
		FROM sync_states WHERE source = ?
	`, string(source))

	var state domain.SyncState
	var lastSync sql.NullTime
	if err := row.Scan(&state.Source, &state.Cursor, &lastSync); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}

	if lastSync.Valid {
		state.LastSync = lastSync.Time
	}

	return &state, nil
}

// Delete removes sync state for a source.
func (s *syncStateStore) Delete(ctx context.Context, source domain.SourceType) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_states WHERE source = ?", string(source))
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
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

// scanEntryRow scans a single index entry row.
func scanEntryRow(row *sql.Row) (*domain.IndexEntry, error) {
	var entry domain.IndexEntry
	var embeddingBlob []byte
	var metadataJSON string
	var updatedAt sql.NullTime

	if err := row.Scan(&entry.ChunkID, &entry.ContentHash, &embeddingBlob,
		&entry.Text, &metadataJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}

	entry.Embedding = bytesToFloat32Slice(embeddingBlob)
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &entry, nil
}

// collectEntries scans all rows into the entries map and closes rows.
func collectEntries(rows *sql.Rows, entries map[string]*domain.IndexEntry) error {
	defer rows.Close()

	for rows.Next() {
		var entry domain.IndexEntry
		var embeddingBlob []byte
		var metadataJSON string
		var updatedAt sql.NullTime

		if err := rows.Scan(&entry.ChunkID, &entry.ContentHash, &embeddingBlob,
			&entry.Text, &metadataJSON, &updatedAt); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}

		entry.Embedding = bytesToFloat32Slice(embeddingBlob)
		if updatedAt.Valid {
			entry.UpdatedAt = updatedAt.Time
		}

		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &entry.Metadata); err != nil {
				return fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}

		entries[entry.ChunkID] = &entry
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating entries: %w", err)
	}

	return nil
}
