package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for Quarry resources.
	uriScheme = "quarry://"
)

// indexStatsOutput mirrors the index status for resource consumers.
type indexStatsOutput struct {
	ChunkCount int64               `json:"chunk_count"`
	Sources    []sourceStateOutput `json:"sources"`
}

// sourceStateOutput is the per-source sync state in resource payloads.
type sourceStateOutput struct {
	Source   string `json:"source"`
	Cursor   string `json:"cursor,omitempty"`
	LastSync string `json:"last_sync,omitempty"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for index statistics.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index/stats",
		Name:        "index-stats",
		Description: "Chunk count and per-source sync state of the knowledge base index",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	// Template for per-source sync state.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{source}/state",
		Name:        "source-state",
		Description: "Sync cursor and last sync time for a specific source",
		MIMEType:    "application/json",
	}, s.handleSourceStateResource)
}

// handleStatsResource returns chunk count and sync state for the whole index.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingest == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "{}",
			}},
		}, nil
	}

	status, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index status: %w", err)
	}

	stats := indexStatsOutput{
		ChunkCount: status.ChunkCount,
		Sources:    make([]sourceStateOutput, len(status.Sources)),
	}
	for i, state := range status.Sources {
		stats.Sources[i] = sourceStateOutput{
			Source: state.Source.String(),
			Cursor: state.Cursor,
		}
		if !state.LastSync.IsZero() {
			stats.Sources[i].LastSync = state.LastSync.Format(time.RFC3339)
		}
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling index stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSourceStateResource returns the sync state of a single source.
func (s *Server) handleSourceStateResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingest == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract source from URI: quarry://sources/{source}/state
	source := extractSource(req.Params.URI)
	if source == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index status: %w", err)
	}

	for _, state := range status.Sources {
		if state.Source.String() != source {
			continue
		}

		out := sourceStateOutput{
			Source: source,
			Cursor: state.Cursor,
		}
		if !state.LastSync.IsZero() {
			out.LastSync = state.LastSync.Format(time.RFC3339)
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling source state: %w", err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	}

	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

// extractSource extracts the source name from a URI like quarry://sources/{source}/state.
func extractSource(uri string) string {
	const prefix = uriScheme + "sources/"
	const suffix = "/state"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
