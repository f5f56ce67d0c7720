// Package domain defines the core business entities for Quarry.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types:
//
//   - RawRecord: The extraction envelope, one line on the NDJSON boundary
//   - CanonicalDocument: A normalised source record, markup stripped
//   - Chunk: A bounded text window, the unit of embedding and retrieval
//   - IndexEntry: The persisted record for one chunk in the vector store
//   - IngestionRun: One run's new/updated/skipped/failed tally
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse. Its only dependency beyond the standard
// library is the xxhash fingerprint primitive.
package domain
