// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Quarry. It lets AI assistants like Claude search the indexed knowledge
// base with source attribution.
package mcp

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("mcp: ask service is required")
