// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - VectorStore: embedded chunk persistence and similarity search
//   - SyncStateStore: per-source sync progress persistence
//
// Similarity queries scan the whole index and rank by cosine similarity in
// process. There is no vector extension involved, which keeps the store
// dependency-free and is more than fast enough for the corpus sizes a
// single workstation indexes.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.quarry/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
