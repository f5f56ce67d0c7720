package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRawRecord_RoundTrip tests that the envelope survives NDJSON serialisation
func TestRawRecord_RoundTrip(t *testing.T) {
	rec := RawRecord{
		Source:      SourceJira,
		SourceID:    "PROJ-123",
		URL:         "https://example.atlassian.net/browse/PROJ-123",
		Title:       "Fix the flux capacitor",
		Content:     `{"type":"doc","version":1,"content":[]}`,
		ContentType: ContentTypeADF,
		Author:      "Jane Doe",
		CreatedAt:   "2024-01-01T10:00:00Z",
		UpdatedAt:   "2024-02-01T12:30:00Z",
		Metadata: map[string]any{
			"project": "PROJ",
			"status":  "In Progress",
			"comments": []any{
				map[string]any{"author": "Bob", "body": "looks good"},
			},
		},
	}

	line, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded RawRecord
	require.NoError(t, json.Unmarshal(line, &decoded))

	assert.Equal(t, rec.Source, decoded.Source)
	assert.Equal(t, rec.SourceID, decoded.SourceID)
	assert.Equal(t, rec.Content, decoded.Content)
	assert.Equal(t, rec.ContentType, decoded.ContentType)
	assert.Equal(t, rec.UpdatedAt, decoded.UpdatedAt)

	// A second marshal must reproduce the same JSON: no field is lost or
	// reinterpreted on the way through.
	line2, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(line), string(line2))
}

// TestRawRecord_EmptyOptionalFields tests that optional fields are omitted
func TestRawRecord_EmptyOptionalFields(t *testing.T) {
	rec := RawRecord{
		Source:      SourceConfluence,
		SourceID:    "98765",
		Content:     "<p>hello</p>",
		ContentType: ContentTypeHTML,
	}

	line, err := json.Marshal(rec)
	require.NoError(t, err)

	assert.NotContains(t, string(line), "author")
	assert.NotContains(t, string(line), "updated_at")
	assert.NotContains(t, string(line), "metadata")
}

// TestRawRecord_PreservesMarkup tests that provider markup is not interpreted
func TestRawRecord_PreservesMarkup(t *testing.T) {
	adf := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a \"quoted\" word"}]}]}`
	rec := RawRecord{
		Source:      SourceJira,
		SourceID:    "PROJ-1",
		Content:     adf,
		ContentType: ContentTypeADF,
	}

	line, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded RawRecord
	require.NoError(t, json.Unmarshal(line, &decoded))
	assert.Equal(t, adf, decoded.Content)
}

// TestParseTime_Formats tests the timestamp layouts providers emit
func TestParseTime_Formats(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{
			name:  "rfc3339",
			value: "2024-02-01T12:30:00Z",
			want:  time.Date(2024, 2, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 nano",
			value: "2024-02-01T12:30:00.123456789Z",
			want:  time.Date(2024, 2, 1, 12, 30, 0, 123456789, time.UTC),
		},
		{
			name:  "jira zone without colon",
			value: "2024-02-01T12:30:00.000+0000",
			want:  time.Date(2024, 2, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name:  "date only",
			value: "2024-02-01",
			want:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTime(tt.value)
			require.NotNil(t, got)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

// TestParseTime_Invalid tests empty and garbage timestamps
func TestParseTime_Invalid(t *testing.T) {
	assert.Nil(t, ParseTime(""))
	assert.Nil(t, ParseTime("not a timestamp"))
	assert.Nil(t, ParseTime("12:30"))
}
