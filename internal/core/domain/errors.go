package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source or content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Ingestion and retrieval both require embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the chat service is not configured.
	// Answer generation is disabled; retrieval still works.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrIndexUnavailable indicates the vector store is not configured.
	ErrIndexUnavailable = errors.New("vector store unavailable")
)

// TransportError reports a network or authentication failure while talking
// to a provider. It aborts pagination for the affected source; other sources
// continue.
type TransportError struct {
	// Source is the provider that failed.
	Source SourceType

	// Op names the request that failed (e.g. "search issues").
	Op string

	// StatusCode is the HTTP status, if one was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Source, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// MalformedRecordError reports a record the normaliser could not reduce to a
// canonical document. The record is skipped and processing continues.
type MalformedRecordError struct {
	// Source is the provider the record came from.
	Source SourceType

	// SourceID identifies the record when known, empty otherwise.
	SourceID string

	// Reason describes the missing or unparseable field.
	Reason string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	if e.SourceID != "" {
		return fmt.Sprintf("malformed %s record %s: %s", e.Source, e.SourceID, e.Reason)
	}
	return fmt.Sprintf("malformed %s record: %s", e.Source, e.Reason)
}

// IsMalformedRecord reports whether err is (or wraps) a MalformedRecordError.
func IsMalformedRecord(err error) (*MalformedRecordError, bool) {
	var me *MalformedRecordError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// ConfigurationError aggregates every configuration problem found during
// validation. It is fatal at startup.
type ConfigurationError struct {
	// Problems lists each validation failure.
	Problems []string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("configuration: %d problems: %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}

// NewConfigurationError builds a ConfigurationError from one or more problems.
func NewConfigurationError(problems ...string) *ConfigurationError {
	return &ConfigurationError{Problems: problems}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) (*ConfigurationError, bool) {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// EmbeddingProviderError reports a failed embedding call. The chunks in the
// affected batch are counted as failed; the run continues with the rest.
type EmbeddingProviderError struct {
	// ChunkIDs are the chunks whose embeddings were lost.
	ChunkIDs []string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding %d chunk(s): %v", len(e.ChunkIDs), e.Err)
}

// Unwrap returns the underlying cause.
func (e *EmbeddingProviderError) Unwrap() error {
	return e.Err
}

// IndexWriteError reports a failed vector store write. It is fatal for the
// run: new/updated/skipped guarantees cannot be trusted once writes fail.
type IndexWriteError struct {
	// ChunkID is the entry that could not be written.
	ChunkID string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index write %s: %v", e.ChunkID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IndexWriteError) Unwrap() error {
	return e.Err
}

// IsIndexWrite reports whether err is (or wraps) an IndexWriteError.
func IsIndexWrite(err error) (*IndexWriteError, bool) {
	var ie *IndexWriteError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
