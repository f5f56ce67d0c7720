package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransportError_Wrapping tests unwrap and the As helper
func TestTransportError_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&TransportError{
		Source:     SourceJira,
		Op:         "search issues",
		StatusCode: 0,
		Err:        cause,
	})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "jira")
	assert.Contains(t, err.Error(), "search issues")

	wrapped := fmt.Errorf("pipeline: %w", err)
	te, ok := IsTransport(wrapped)
	require.True(t, ok)
	assert.Equal(t, SourceJira, te.Source)
}

// TestTransportError_StatusCode tests the status-bearing message form
func TestTransportError_StatusCode(t *testing.T) {
	err := &TransportError{
		Source:     SourceConfluence,
		Op:         "list pages",
		StatusCode: 401,
		Err:        ErrAuthInvalid,
	}
	assert.Contains(t, err.Error(), "status 401")
}

// TestMalformedRecordError_Messages tests both message forms
func TestMalformedRecordError_Messages(t *testing.T) {
	withID := &MalformedRecordError{Source: SourceJira, SourceID: "PROJ-1", Reason: "missing source_id"}
	assert.Contains(t, withID.Error(), "PROJ-1")

	withoutID := &MalformedRecordError{Source: SourceTeams, Reason: "empty payload"}
	assert.Contains(t, withoutID.Error(), "teams")
	assert.Contains(t, withoutID.Error(), "empty payload")

	_, ok := IsMalformedRecord(fmt.Errorf("wrap: %w", error(withID)))
	assert.True(t, ok)
}

// TestConfigurationError_Aggregation tests that all problems surface together
func TestConfigurationError_Aggregation(t *testing.T) {
	err := NewConfigurationError(
		"chunk_overlap must be less than chunk_size",
		"jira.base_url is required",
	)

	msg := err.Error()
	assert.Contains(t, msg, "2 problems")
	assert.Contains(t, msg, "chunk_overlap")
	assert.Contains(t, msg, "jira.base_url")

	single := NewConfigurationError("top_k must be positive")
	assert.Equal(t, "configuration: top_k must be positive", single.Error())

	ce, ok := IsConfiguration(fmt.Errorf("startup: %w", error(err)))
	require.True(t, ok)
	assert.Len(t, ce.Problems, 2)
}

// TestEmbeddingProviderError_Unwrap tests cause propagation
func TestEmbeddingProviderError_Unwrap(t *testing.T) {
	cause := errors.New("429 too many requests")
	err := &EmbeddingProviderError{
		ChunkIDs: []string{"jira-PROJ-1-chunk-0", "jira-PROJ-1-chunk-1"},
		Err:      cause,
	}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "2 chunk(s)")
}

// TestIndexWriteError_Fatal tests identification through wrapping
func TestIndexWriteError_Fatal(t *testing.T) {
	err := error(&IndexWriteError{ChunkID: "confluence-9-chunk-2", Err: errors.New("disk full")})
	wrapped := fmt.Errorf("ingest confluence: %w", err)

	ie, ok := IsIndexWrite(wrapped)
	require.True(t, ok)
	assert.Equal(t, "confluence-9-chunk-2", ie.ChunkID)

	_, ok = IsTransport(wrapped)
	assert.False(t, ok)
}
