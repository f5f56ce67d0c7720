// Package adf normalises Atlassian Document Format content, the rich-text
// JSON that Jira Cloud returns for issue descriptions and comments.
package adf

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-cli/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Atlassian Document Format records.
type Normaliser struct{}

// New creates a new ADF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedContentTypes returns the content types this normaliser handles.
func (n *Normaliser) SupportedContentTypes() []string {
	return []string{domain.ContentTypeADF}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Format-specific normaliser, higher than plaintext
}

// Normalise converts an ADF record to a canonical document.
// The body contains the document's text nodes joined in reading order.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawRecord) (*domain.CanonicalDocument, error) {
	if err := normalisers.Identify(raw); err != nil {
		return nil, err
	}
	return normalisers.BuildDocument(raw, ExtractText(raw.Content)), nil
}

// adfNode is the recursive shape of an ADF document. Only the fields
// needed for text extraction are decoded; everything else is markup.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// ExtractText flattens an ADF document into plain text: text nodes are
// collected depth-first and joined with single spaces.
//
// Content that does not parse as JSON is returned as-is; Jira REST API v2
// sites emit plain-text descriptions, and downgrading must not lose them.
// JSON that parses but is not an ADF doc is still walked for text nodes,
// yielding an empty body when there are none.
func ExtractText(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	var root adfNode
	if err := json.Unmarshal([]byte(trimmed), &root); err != nil {
		return trimmed
	}

	var parts []string
	collectText(&root, &parts)
	return strings.Join(parts, " ")
}

// collectText walks the node tree depth-first, gathering text node values.
func collectText(node *adfNode, parts *[]string) {
	if node.Type == "text" {
		if t := strings.TrimSpace(node.Text); t != "" {
			*parts = append(*parts, t)
		}
	}
	for i := range node.Content {
		collectText(&node.Content[i], parts)
	}
}
