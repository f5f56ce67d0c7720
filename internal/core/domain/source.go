package domain

import "time"

// SourceType identifies one of the supported providers.
// The set is closed: pipeline wiring, cursor formats, and normaliser
// selection all key off it.
type SourceType string

const (
	// SourceJira is the Atlassian Jira issue tracker.
	SourceJira SourceType = "jira"

	// SourceConfluence is the Atlassian Confluence wiki.
	SourceConfluence SourceType = "confluence"

	// SourceSharePoint is the Microsoft SharePoint file share.
	SourceSharePoint SourceType = "sharepoint"

	// SourceTeams is the Microsoft Teams chat transcript source.
	SourceTeams SourceType = "teams"
)

// AllSources returns the supported source types in pipeline order.
func AllSources() []SourceType {
	return []SourceType{SourceJira, SourceConfluence, SourceSharePoint, SourceTeams}
}

// ParseSource converts a string into a SourceType.
// Returns ErrUnsupportedType for anything outside the closed set.
func ParseSource(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourceJira, SourceConfluence, SourceSharePoint, SourceTeams:
		return SourceType(s), nil
	default:
		return "", ErrUnsupportedType
	}
}

// String returns the wire name of the source.
func (s SourceType) String() string {
	return string(s)
}

// SyncState tracks ingestion progress for a source.
type SyncState struct {
	// Source is the provider this state belongs to.
	Source SourceType

	// Cursor is an opaque token for incremental fetches.
	Cursor string

	// LastSync is when the last successful run completed.
	LastSync time.Time
}
