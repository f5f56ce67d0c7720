package teams

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/quarry-cli/internal/connectors/graph"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// stubConnector wires a connector to a test server.
func stubConnector(server *httptest.Server, cfg *Config) *Connector {
	client := graph.NewClientWithHTTPClient(domain.SourceTeams, server.URL, server.Client())
	return NewWithClient(cfg, client)
}

// testConnector builds a connector that never issues requests.
func testConnector(cfg *Config) *Connector {
	client := graph.NewClientWithHTTPClient(domain.SourceTeams, "https://graph.example.invalid", http.DefaultClient)
	return NewWithClient(cfg, client)
}

// messageJSON builds a channel message fixture.
func messageJSON(id, subject, modified string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"subject": %q,
		"messageType": "message",
		"webUrl": "https://teams.microsoft.com/l/message/%s",
		"createdDateTime": "2024-02-01T09:00:00Z",
		"lastModifiedDateTime": %q,
		"body": {"contentType": "html", "content": "<p>body of %s</p>"},
		"from": {"user": {"displayName": "Morgan Poster"}}
	}`, id, subject, id, modified, id)
}

// drain collects every record and then the terminal error.
func drain(t *testing.T, records <-chan domain.RawRecord, errs <-chan error) ([]domain.RawRecord, error) {
	t.Helper()
	var out []domain.RawRecord
	for rec := range records {
		out = append(out, rec)
	}
	return out, <-errs
}

func TestNewWithClient(t *testing.T) {
	t.Run("applies page size defaults", func(t *testing.T) {
		connector := testConnector(&Config{})

		assert.Equal(t, DefaultPageSize, connector.config.PageSize)
		assert.Equal(t, domain.SourceTeams, connector.Source())
	})

	t.Run("clamps page size to the messages cap", func(t *testing.T) {
		connector := testConnector(&Config{PageSize: 500})

		assert.Equal(t, MaxPageSize, connector.config.PageSize)
	})

	t.Run("implements Connector interface", func(t *testing.T) {
		var _ driven.Connector = testConnector(&Config{})
	})
}

func TestConnector_FetchAll(t *testing.T) {
	t.Run("walks teams and channels following next links", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/teams/team-1":
				fmt.Fprint(w, `{"id":"team-1","displayName":"Platform"}`)
			case "/teams/team-1/channels":
				fmt.Fprint(w, `{"value":[{"id":"ch-1","displayName":"General"},{"id":"ch-2","displayName":"Oncall"}]}`)
			case "/teams/team-1/channels/ch-1/messages":
				fmt.Fprintf(w, `{"value":[%s],"@odata.nextLink":%q}`,
					messageJSON("m1", "Deploy plan", "2024-03-01T10:00:00Z"),
					server.URL+"/teams/team-1/channels/ch-1/messages/page2")
			case "/teams/team-1/channels/ch-1/messages/page2":
				fmt.Fprintf(w, `{"value":[%s]}`,
					messageJSON("m2", "", "2024-03-02T11:00:00Z"))
			case "/teams/team-1/channels/ch-2/messages":
				fmt.Fprintf(w, `{"value":[%s]}`,
					messageJSON("m3", "Pager handoff", "2024-03-03T12:00:00Z"))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		connector := stubConnector(server, &Config{TeamIDs: []string{"team-1"}})

		recordsCh, errsCh := connector.FetchAll(context.Background())
		records, err := drain(t, recordsCh, errsCh)

		complete, ok := driven.IsSyncComplete(err)
		require.True(t, ok, "expected sync completion, got %v", err)
		require.Len(t, records, 3)

		assert.Equal(t, "m1", records[0].SourceID)
		assert.Equal(t, "Deploy plan", records[0].Title)
		assert.Equal(t, domain.ContentTypeHTML, records[0].ContentType)
		assert.Equal(t, "Morgan Poster", records[0].Author)
		assert.Equal(t, "Platform", records[0].Metadata["teams_team_name"])
		assert.Equal(t, "General", records[0].Metadata["teams_channel_name"])

		// Subjectless messages fall back to a channel-scoped title.
		assert.Equal(t, "Teams Message in General", records[1].Title)
		assert.Equal(t, "Oncall", records[2].Metadata["teams_channel_name"])

		cursor, decodeErr := DecodeCursor(complete.Cursor)
		require.NoError(t, decodeErr)
		assert.Equal(t, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), cursor.UpdatedSince.UTC())
	})

	t.Run("discovers teams when none configured", func(t *testing.T) {
		var gotFilter string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/groups":
				gotFilter = r.URL.Query().Get("$filter")
				fmt.Fprint(w, `{"value":[{"id":"team-1","displayName":"Platform"}]}`)
			case "/teams/team-1/channels":
				fmt.Fprint(w, `{"value":[]}`)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		connector := stubConnector(server, &Config{})

		recordsCh, errsCh := connector.FetchAll(context.Background())
		_, err := drain(t, recordsCh, errsCh)

		_, ok := driven.IsSyncComplete(err)
		require.True(t, ok)
		assert.Equal(t, teamFilter, gotFilter)
	})

	t.Run("expands replies only when enabled", func(t *testing.T) {
		var expands []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/teams/team-1":
				fmt.Fprint(w, `{"id":"team-1","displayName":"Platform"}`)
			case "/teams/team-1/channels":
				fmt.Fprint(w, `{"value":[{"id":"ch-1","displayName":"General"}]}`)
			case "/teams/team-1/channels/ch-1/messages":
				expands = append(expands, r.URL.Query().Get("$expand"))
				fmt.Fprint(w, `{"value":[{
					"id": "m1",
					"messageType": "message",
					"createdDateTime": "2024-03-01T10:00:00Z",
					"lastModifiedDateTime": "2024-03-01T10:00:00Z",
					"body": {"contentType": "html", "content": "<p>question</p>"},
					"from": {"user": {"displayName": "Morgan Poster"}},
					"replies": [{
						"id": "r1",
						"createdDateTime": "2024-03-01T10:05:00Z",
						"body": {"contentType": "html", "content": "<p>answer</p>"},
						"from": {"user": {"displayName": "Jo Replier"}}
					}]
				}]}`)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		without := stubConnector(server, &Config{TeamIDs: []string{"team-1"}})
		recordsCh, errsCh := without.FetchAll(context.Background())
		_, err := drain(t, recordsCh, errsCh)
		_, ok := driven.IsSyncComplete(err)
		require.True(t, ok)

		with := stubConnector(server, &Config{TeamIDs: []string{"team-1"}, FetchReplies: true})
		recordsCh, errsCh = with.FetchAll(context.Background())
		records, err := drain(t, recordsCh, errsCh)
		_, ok = driven.IsSyncComplete(err)
		require.True(t, ok)

		require.Equal(t, []string{"", "replies"}, expands)
		require.Len(t, records, 1)

		replies, ok := records[0].Metadata["replies"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, replies, 1)
		assert.Equal(t, "r1", replies[0]["id"])
		assert.Equal(t, "m1", replies[0]["parent_id"])
		assert.Equal(t, "Jo Replier", replies[0]["author"])
		assert.Equal(t, "<p>answer</p>", replies[0]["content"])
	})

	t.Run("skips system event messages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/teams/team-1":
				fmt.Fprint(w, `{"id":"team-1","displayName":"Platform"}`)
			case "/teams/team-1/channels":
				fmt.Fprint(w, `{"value":[{"id":"ch-1","displayName":"General"}]}`)
			case "/teams/team-1/channels/ch-1/messages":
				fmt.Fprintf(w, `{"value":[
					{"id": "sys-1", "messageType": "systemEventMessage",
					 "body": {"contentType": "html", "content": "<systemEventMessage/>"}},
					%s
				]}`, messageJSON("m1", "Real one", "2024-03-01T10:00:00Z"))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		connector := stubConnector(server, &Config{TeamIDs: []string{"team-1"}})

		recordsCh, errsCh := connector.FetchAll(context.Background())
		records, err := drain(t, recordsCh, errsCh)

		_, ok := driven.IsSyncComplete(err)
		require.True(t, ok)
		require.Len(t, records, 1)
		assert.Equal(t, "m1", records[0].SourceID)
	})

	t.Run("transport error aborts after partial results", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/teams/team-1":
				fmt.Fprint(w, `{"id":"team-1","displayName":"Platform"}`)
			case "/teams/team-1/channels":
				fmt.Fprint(w, `{"value":[{"id":"ch-1","displayName":"General"}]}`)
			case "/teams/team-1/channels/ch-1/messages":
				fmt.Fprintf(w, `{"value":[%s],"@odata.nextLink":%q}`,
					messageJSON("m1", "First", "2024-03-01T10:00:00Z"),
					server.URL+"/teams/team-1/channels/ch-1/messages/page2")
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		connector := stubConnector(server, &Config{TeamIDs: []string{"team-1"}})

		recordsCh, errsCh := connector.FetchAll(context.Background())
		records, err := drain(t, recordsCh, errsCh)

		te, ok := domain.IsTransport(err)
		require.True(t, ok, "expected transport error, got %v", err)
		assert.Equal(t, domain.SourceTeams, te.Source)
		// Records yielded before the abort stay valid.
		assert.Len(t, records, 1)
	})

	t.Run("rejects fetch after close", func(t *testing.T) {
		connector := testConnector(&Config{TeamIDs: []string{"team-1"}})
		require.NoError(t, connector.Close())

		recordsCh, errsCh := connector.FetchAll(context.Background())
		_, err := drain(t, recordsCh, errsCh)

		assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	})
}

func TestConnector_FetchSince(t *testing.T) {
	t.Run("bounds message listings by modification time", func(t *testing.T) {
		var filters []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/teams/team-1":
				fmt.Fprint(w, `{"id":"team-1","displayName":"Platform"}`)
			case "/teams/team-1/channels":
				fmt.Fprint(w, `{"value":[{"id":"ch-1","displayName":"General"}]}`)
			case "/teams/team-1/channels/ch-1/messages":
				filters = append(filters, r.URL.Query().Get("$filter"))
				fmt.Fprint(w, `{"value":[]}`)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		connector := stubConnector(server, &Config{TeamIDs: []string{"team-1"}})

		cursor := NewCursor()
		cursor.Advance(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
		state := domain.SyncState{Source: domain.SourceTeams, Cursor: cursor.Encode()}

		recordsCh, errsCh := connector.FetchSince(context.Background(), state)
		_, err := drain(t, recordsCh, errsCh)

		_, ok := driven.IsSyncComplete(err)
		require.True(t, ok)
		require.Len(t, filters, 1)
		assert.Equal(t, "lastModifiedDateTime ge 2024-03-01T10:00:00Z", filters[0])
	})

	t.Run("invalid cursor fails fast", func(t *testing.T) {
		connector := testConnector(&Config{})

		state := domain.SyncState{Source: domain.SourceTeams, Cursor: "not-base64!!!"}
		recordsCh, errsCh := connector.FetchSince(context.Background(), state)
		records, err := drain(t, recordsCh, errsCh)

		assert.ErrorIs(t, err, ErrInvalidCursor)
		assert.Empty(t, records)
	})
}

func TestBuildRecord(t *testing.T) {
	t.Run("degrades missing fields to placeholders", func(t *testing.T) {
		rec := buildRecord(
			team{ID: "team-1", DisplayName: "Platform"},
			channel{ID: "ch-1", DisplayName: "General"},
			message{ID: "m9"},
		)

		assert.Equal(t, domain.SourceTeams, rec.Source)
		assert.Equal(t, "m9", rec.SourceID)
		assert.Equal(t, "Teams Message in General", rec.Title)
		assert.Empty(t, rec.Content)
		assert.Equal(t, domain.ContentTypeHTML, rec.ContentType)
		assert.Equal(t, "Unknown", rec.Author)
		assert.NotContains(t, rec.Metadata, "replies")
	})

	t.Run("text bodies map to plain content", func(t *testing.T) {
		rec := buildRecord(team{}, channel{DisplayName: "General"}, message{
			ID:   "m1",
			Body: &itemBody{ContentType: "text", Content: "plain words"},
		})

		assert.Equal(t, domain.ContentTypePlain, rec.ContentType)
		assert.Equal(t, "plain words", rec.Content)
	})

	t.Run("application senders attribute to the bot", func(t *testing.T) {
		rec := buildRecord(team{}, channel{DisplayName: "General"}, message{
			ID:   "m1",
			From: &identitySet{Application: &identity{DisplayName: "Deploy Bot"}},
		})

		assert.Equal(t, "Deploy Bot", rec.Author)
	})
}
