package teams

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/connectors/graph"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// teamFilter selects groups provisioned as Teams.
const teamFilter = "resourceProvisioningOptions/any(x:x eq 'Team')"

// ListTeams returns every team visible to the application, following
// next links until absent.
func ListTeams(ctx context.Context, client *graph.Client) ([]team, error) {
	query := url.Values{}
	query.Set("$filter", teamFilter)
	query.Set("$select", "id,displayName")

	var teams []team
	err := client.ListAll(ctx, "list teams", "/groups", query, func(raw json.RawMessage) error {
		var t team
		if err := json.Unmarshal(raw, &t); err != nil {
			return decodeError("list teams", err)
		}
		teams = append(teams, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// GetTeam fetches one team by ID.
func GetTeam(ctx context.Context, client *graph.Client, teamID string) (team, error) {
	var t team
	if err := client.GetJSON(ctx, "get team", "/teams/"+teamID, nil, &t); err != nil {
		return team{}, err
	}
	return t, nil
}

// ListChannels returns every channel of a team.
func ListChannels(ctx context.Context, client *graph.Client, teamID string) ([]channel, error) {
	var channels []channel
	err := client.ListAll(ctx, "list channels", "/teams/"+teamID+"/channels", nil,
		func(raw json.RawMessage) error {
			var ch channel
			if err := json.Unmarshal(raw, &ch); err != nil {
				return decodeError("list channels", err)
			}
			channels = append(channels, ch)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// ListMessages pages through one channel's message threads, invoking fn
// per thread. A non-zero since bounds the listing by modification time;
// expandReplies pulls reply threads in place.
func ListMessages(
	ctx context.Context, client *graph.Client,
	teamID, channelID string, pageSize int, expandReplies bool, since time.Time,
	fn func(message) error,
) error {
	query := url.Values{}
	query.Set("$top", strconv.Itoa(pageSize))
	if expandReplies {
		query.Set("$expand", "replies")
	}
	if !since.IsZero() {
		query.Set("$filter", "lastModifiedDateTime ge "+since.UTC().Format(time.RFC3339))
	}

	path := "/teams/" + teamID + "/channels/" + channelID + "/messages"
	return client.ListAll(ctx, "list messages", path, query, func(raw json.RawMessage) error {
		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return decodeError("list messages", err)
		}
		return fn(msg)
	})
}

// decodeError reports an undecodable collection item as a transport
// problem.
func decodeError(op string, err error) error {
	return &domain.TransportError{Source: domain.SourceTeams, Op: op, Err: err}
}

// buildRecord maps a message thread onto the extraction envelope.
// Replies become metadata entries that keep a reference to their parent
// so conversation order survives normalisation.
func buildRecord(tm team, ch channel, msg message) domain.RawRecord {
	metadata := map[string]any{
		"teams_team_id":      tm.ID,
		"teams_team_name":    tm.DisplayName,
		"teams_channel_id":   ch.ID,
		"teams_channel_name": ch.DisplayName,
		"message_type":       msg.MessageType,
	}

	if len(msg.Replies) > 0 {
		replies := make([]map[string]any, 0, len(msg.Replies))
		for _, reply := range msg.Replies {
			replies = append(replies, map[string]any{
				"id":         reply.ID,
				"parent_id":  msg.ID,
				"author":     displayNameOf(reply.From, "Unknown"),
				"created_at": reply.CreatedDateTime,
				"content":    bodyContent(reply.Body),
			})
		}
		metadata["replies"] = replies
	}

	return domain.RawRecord{
		Source:      domain.SourceTeams,
		SourceID:    msg.ID,
		URL:         msg.WebURL,
		Title:       messageTitle(msg, ch),
		Content:     bodyContent(msg.Body),
		ContentType: bodyContentType(msg.Body),
		Author:      displayNameOf(msg.From, "Unknown"),
		CreatedAt:   msg.CreatedDateTime,
		UpdatedAt:   msg.LastModifiedDateTime,
		Metadata:    metadata,
	}
}

// messageTitle prefers the thread subject; most channel messages have
// none and fall back to a channel-scoped placeholder.
func messageTitle(msg message, ch channel) string {
	if msg.Subject != "" {
		return msg.Subject
	}
	return "Teams Message in " + ch.DisplayName
}

func bodyContent(b *itemBody) string {
	if b == nil {
		return ""
	}
	return b.Content
}

// bodyContentType maps the declared body content type onto the canonical
// content types the normalisers dispatch on. Teams defaults to HTML.
func bodyContentType(b *itemBody) string {
	if b != nil && b.ContentType == "text" {
		return domain.ContentTypePlain
	}
	return domain.ContentTypeHTML
}
