package domain

import "time"

// Content types carried in RawRecord.ContentType.
// Normalisers register against these.
const (
	// ContentTypeADF is Atlassian Document Format JSON (Jira descriptions).
	ContentTypeADF = "application/vnd.atlassian.adf+json"

	// ContentTypeDocx is a Word document (SharePoint .docx files).
	// Content carries the archive bytes in standard base64 so the binary
	// survives the NDJSON envelope.
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// ContentTypeHTML is provider HTML (Confluence storage format, Teams messages).
	ContentTypeHTML = "text/html"

	// ContentTypeMarkdown is Markdown text (SharePoint .md files).
	ContentTypeMarkdown = "text/markdown"

	// ContentTypePlain is plain text.
	ContentTypePlain = "text/plain"
)

// RawRecord is the extraction envelope emitted by connectors, one JSON
// object per line on the extract/load boundary. Content is kept in the
// provider's markup; only normalisers interpret it. The envelope must
// round-trip losslessly through JSON.
type RawRecord struct {
	// Source is the provider that produced the record.
	Source SourceType `json:"source"`

	// SourceID is the provider-native identifier, unique within the source.
	SourceID string `json:"source_id"`

	// URL is the canonical web link for attribution.
	URL string `json:"url,omitempty"`

	// Title is the record's display title, may be empty.
	Title string `json:"title,omitempty"`

	// Content is the body in provider markup (ADF JSON, storage HTML, ...).
	Content string `json:"content"`

	// ContentType is the MIME type of Content.
	ContentType string `json:"content_type"`

	// Author is the display name of the creator, may be empty.
	Author string `json:"author,omitempty"`

	// CreatedAt is the creation timestamp as reported by the provider,
	// RFC 3339, may be empty.
	CreatedAt string `json:"created_at,omitempty"`

	// UpdatedAt is the last-modified timestamp as reported by the provider,
	// RFC 3339, may be empty. Records without one are treated as always
	// stale downstream.
	UpdatedAt string `json:"updated_at,omitempty"`

	// Metadata carries provider extras: comments, replies, project/space/
	// site/team keys, parent message references. Values stay generic so the
	// envelope round-trips without loss.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// timeFormats are the layouts providers actually emit, tried in order.
var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02",
}

// ParseTime parses a provider timestamp string.
// Returns nil for empty or unparseable values.
func ParseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
