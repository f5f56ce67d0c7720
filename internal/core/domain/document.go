package domain

import (
	"fmt"
	"time"
)

// CanonicalDocument is the provider-agnostic representation of one source
// record after normalisation: markup stripped, attribution preserved.
type CanonicalDocument struct {
	// Source is the provider the document came from.
	Source SourceType

	// ExternalID is the provider-native identifier, unique within Source.
	// (Source, ExternalID) identifies the document across ingestion runs.
	ExternalID string

	// Title is the human-readable title, may be empty.
	Title string

	// Body is the plain-text content with provider markup stripped.
	Body string

	// Metadata preserves attribution and thread structure: url, author,
	// created_at, parent_id, JSON-stringified comments/replies, provider
	// extras. String values so they survive any index payload format.
	Metadata map[string]string

	// UpdatedAt is the provider's last-modified time.
	// Nil means unknown: the document is treated as always stale.
	UpdatedAt *time.Time
}

// DocID returns the cross-source document identity "<source>-<external_id>".
func (d *CanonicalDocument) DocID() string {
	return fmt.Sprintf("%s-%s", d.Source, d.ExternalID)
}

// ChunkID derives the deterministic identifier for chunk index within a
// document. Re-chunking the same document always reproduces the same IDs.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", docID, index)
}

// Chunk is a bounded text window cut from a document's body, the unit of
// embedding and retrieval.
type Chunk struct {
	// ID is the deterministic chunk identifier, see ChunkID.
	ID string

	// DocumentID links to the parent document's DocID.
	DocumentID string

	// Index is the ordinal position within the document.
	Index int

	// Text is the window's content, a substring of the document body.
	Text string

	// ContentHash is the change-detection fingerprint of Text.
	ContentHash string

	// Metadata is the parent document's metadata plus chunk_index, title
	// and source.
	Metadata map[string]string
}
