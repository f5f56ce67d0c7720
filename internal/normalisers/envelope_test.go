package normalisers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		name       string
		raw        *domain.RawRecord
		wantReason string
	}{
		{
			name: "valid record",
			raw:  &domain.RawRecord{Source: domain.SourceJira, SourceID: "1"},
		},
		{
			name:       "missing source",
			raw:        &domain.RawRecord{SourceID: "1"},
			wantReason: "missing source",
		},
		{
			name:       "unknown source",
			raw:        &domain.RawRecord{Source: "gitlab", SourceID: "1"},
			wantReason: "unknown source",
		},
		{
			name:       "missing source_id",
			raw:        &domain.RawRecord{Source: domain.SourceJira},
			wantReason: "missing source_id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Identify(tc.raw)
			if tc.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			merr, ok := domain.IsMalformedRecord(err)
			require.True(t, ok)
			assert.Equal(t, tc.wantReason, merr.Reason)
		})
	}
}

func TestIdentify_NilRecord(t *testing.T) {
	assert.ErrorIs(t, Identify(nil), domain.ErrInvalidInput)
}

func TestBuildDocument(t *testing.T) {
	raw := &domain.RawRecord{
		Source:    domain.SourceJira,
		SourceID:  "10001",
		URL:       "https://example.atlassian.net/browse/ENG-1",
		Title:     "  Fix login timeout  ",
		Author:    "Dana Kim",
		CreatedAt: "2024-02-01T08:00:00Z",
		UpdatedAt: "2024-03-01T10:00:00Z",
		Metadata: map[string]any{
			"jira_issue_key": "ENG-1",
			"comment_count":  float64(2),
			"resolved":       true,
			"labels":         []any{"auth", "backend"}, // non-scalar, dropped
		},
	}

	doc := BuildDocument(raw, "body text")

	assert.Equal(t, domain.SourceJira, doc.Source)
	assert.Equal(t, "10001", doc.ExternalID)
	assert.Equal(t, "Fix login timeout", doc.Title, "title is trimmed")
	assert.Equal(t, "body text", doc.Body)
	assert.Equal(t, "https://example.atlassian.net/browse/ENG-1", doc.Metadata["url"])
	assert.Equal(t, "Dana Kim", doc.Metadata["author"])
	assert.Equal(t, "2024-02-01T08:00:00Z", doc.Metadata["created_at"])
	assert.Equal(t, "ENG-1", doc.Metadata["jira_issue_key"])
	assert.Equal(t, "2", doc.Metadata["comment_count"], "integral floats render without a point")
	assert.Equal(t, "true", doc.Metadata["resolved"])
	assert.NotContains(t, doc.Metadata, "labels")

	require.NotNil(t, doc.UpdatedAt)
	assert.Equal(t, 2024, doc.UpdatedAt.Year())
}

func TestBuildDocument_CommentsSurviveAsJSON(t *testing.T) {
	raw := &domain.RawRecord{
		Source:   domain.SourceJira,
		SourceID: "10001",
		Metadata: map[string]any{
			"comments": []any{
				map[string]any{"author": "Sam", "content": "looks good"},
			},
		},
	}

	doc := BuildDocument(raw, "")

	assert.JSONEq(t, `[{"author":"Sam","content":"looks good"}]`, doc.Metadata["comments"])
}

func TestBuildDocument_NoTimestamp(t *testing.T) {
	raw := &domain.RawRecord{Source: domain.SourceTeams, SourceID: "m1"}

	doc := BuildDocument(raw, "hello")

	assert.Nil(t, doc.UpdatedAt, "records without a timestamp stay always-stale")
	assert.NotContains(t, doc.Metadata, "url")
	assert.NotContains(t, doc.Metadata, "author")
}
