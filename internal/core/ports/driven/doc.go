// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for ingestion to function:
//
//   - Connector: Streams raw records from a knowledge source
//   - Normaliser: Converts raw records into canonical documents
//   - NormaliserRegistry: Selects the appropriate normaliser
//   - EmbeddingService: Generates vector embeddings
//   - VectorStore: Persists embedded chunks and answers similarity queries
//   - SyncStateStore: Persists per-source sync progress
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Generates answers. Without it, `quarry ask` prints the
//     retrieved context and assembled prompt instead of a model answer.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
