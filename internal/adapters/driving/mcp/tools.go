package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchInput is the input schema for the knowledge search tool.
type SearchInput struct {
	Question string `json:"question" jsonschema:"the question to search the knowledge base with"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default from configuration)"`
}

// SearchOutput is the output schema for the knowledge search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
	Context string               `json:"context"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source,omitempty"`
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the indexed company knowledge base and return the best matching chunks with source attribution",
	}, s.handleSearchKnowledge)
}

// handleSearchKnowledge handles the search_knowledge tool invocation.
func (s *Server) handleSearchKnowledge(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	answerCtx, err := s.ports.Ask.Retrieve(ctx, input.Question, input.TopK)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(answerCtx.Chunks)),
		Count:   len(answerCtx.Chunks),
		Context: answerCtx.Context,
	}

	for i, chunk := range answerCtx.Chunks {
		output.Results[i] = SearchResultOutput{
			ChunkID: chunk.ChunkID,
			Source:  chunk.Metadata["source"],
			Title:   chunk.Metadata["title"],
			URL:     chunk.Metadata["url"],
			Score:   chunk.Score,
			Text:    chunk.Text,
		}
	}

	return nil, output, nil
}
