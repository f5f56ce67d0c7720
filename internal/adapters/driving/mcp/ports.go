package mcp

import (
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask provides retrieval over the indexed knowledge base.
	Ask driving.AskService

	// Ingest reports index size and per-source sync state.
	Ingest driving.IngestOrchestrator
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	// Ingest is optional; status resources degrade without it.
	return nil
}
