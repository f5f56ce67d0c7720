package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
)

func TestExtractSource(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid source state URI",
			uri:      "quarry://sources/jira/state",
			expected: "jira",
		},
		{
			name:     "invalid prefix",
			uri:      "file://sources/jira/state",
			expected: "",
		},
		{
			name:     "missing state suffix",
			uri:      "quarry://sources/jira",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractSource(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil ingest service returns empty object", func(t *testing.T) {
		ports := &Ports{Ask: &mockAskService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://index/stats")
		result, err := server.handleStatsResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "{}", result.Contents[0].Text)
	})

	t.Run("returns index stats successfully", func(t *testing.T) {
		mockIngest := &mockIngestService{
			status: &driving.IngestStatus{
				ChunkCount: 42,
				Sources: []domain.SyncState{
					{
						Source:   domain.SourceJira,
						Cursor:   "2024-03-01T10:00:00Z",
						LastSync: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
					},
					{Source: domain.SourceTeams},
				},
			},
		}

		ports := &Ports{Ask: &mockAskService{}, Ingest: mockIngest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://index/stats")
		result, err := server.handleStatsResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"chunk_count": 42`)
		assert.Contains(t, result.Contents[0].Text, "jira")
		assert.Contains(t, result.Contents[0].Text, "2024-03-01T10:00:00Z")
		assert.Contains(t, result.Contents[0].Text, "teams")
	})

	t.Run("returns error on status failure", func(t *testing.T) {
		mockIngest := &mockIngestService{
			err: errors.New("store error"),
		}

		ports := &Ports{Ask: &mockAskService{}, Ingest: mockIngest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://index/stats")
		_, err = server.handleStatsResource(ctx, req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading index status")
	})
}

func TestServer_handleSourceStateResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil ingest service returns not found", func(t *testing.T) {
		ports := &Ports{Ask: &mockAskService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://sources/jira/state")
		_, err = server.handleSourceStateResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		ports := &Ports{Ask: &mockAskService{}, Ingest: &mockIngestService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://invalid/uri")
		_, err = server.handleSourceStateResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("returns source state successfully", func(t *testing.T) {
		mockIngest := &mockIngestService{
			status: &driving.IngestStatus{
				Sources: []domain.SyncState{
					{
						Source:   domain.SourceConfluence,
						Cursor:   "page-cursor-7",
						LastSync: time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC),
					},
				},
			},
		}

		ports := &Ports{Ask: &mockAskService{}, Ingest: mockIngest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://sources/confluence/state")
		result, err := server.handleSourceStateResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "confluence")
		assert.Contains(t, result.Contents[0].Text, "page-cursor-7")
		assert.Contains(t, result.Contents[0].Text, "2024-03-02T08:30:00Z")
	})

	t.Run("unknown source returns not found", func(t *testing.T) {
		mockIngest := &mockIngestService{
			status: &driving.IngestStatus{
				Sources: []domain.SyncState{
					{Source: domain.SourceJira},
				},
			},
		}

		ports := &Ports{Ask: &mockAskService{}, Ingest: mockIngest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://sources/confluence/state")
		_, err = server.handleSourceStateResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("returns error on status failure", func(t *testing.T) {
		mockIngest := &mockIngestService{
			err: errors.New("store error"),
		}

		ports := &Ports{Ask: &mockAskService{}, Ingest: mockIngest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		req := makeReadResourceRequest("quarry://sources/jira/state")
		_, err = server.handleSourceStateResource(ctx, req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading index status")
	})
}
