package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/connectors/atlassian"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// searchPath is the token-paged issue search endpoint.
const searchPath = "/rest/api/3/search/jql"

// jqlTimeLayout is the timestamp format JQL accepts for updated bounds.
const jqlTimeLayout = "2006-01-02 15:04"

// searchFields lists the issue fields requested per search call.
func searchFields(includeComments bool) string {
	fields := "summary,description,status,priority,reporter,assignee,issuetype,created,updated"
	if includeComments {
		fields += ",comment"
	}
	return fields
}

// buildJQL combines the project filter, the configured extra clause, and
// the incremental lower bound into one query ordered by update time.
func buildJQL(projectKey, extra string, since time.Time) string {
	var clauses []string
	if projectKey != "" {
		clauses = append(clauses, fmt.Sprintf("project = %q", projectKey))
	}
	if extra != "" {
		clauses = append(clauses, "("+extra+")")
	}
	if !since.IsZero() {
		clauses = append(clauses, fmt.Sprintf("updated >= %q", since.UTC().Format(jqlTimeLayout)))
	}

	query := strings.Join(clauses, " AND ")
	if query != "" {
		query += " "
	}
	return query + "ORDER BY updated DESC"
}

// SearchIssues pages through every issue matching jql, invoking fn per
// issue. The loop terminates when a page is empty, flags itself as last,
// or returns no new token.
func SearchIssues(
	ctx context.Context, client *atlassian.Client,
	jql string, maxResults int, includeComments bool,
	fn func(issue) error,
) error {
	token := ""
	for {
		query := url.Values{}
		query.Set("jql", jql)
		query.Set("maxResults", strconv.Itoa(maxResults))
		query.Set("fields", searchFields(includeComments))
		if token != "" {
			query.Set("nextPageToken", token)
		}

		var page searchPage
		if err := client.GetJSON(ctx, "search issues", searchPath, query, &page); err != nil {
			return err
		}

		if len(page.Issues) == 0 {
			return nil
		}
		for _, is := range page.Issues {
			if err := fn(is); err != nil {
				return err
			}
		}

		if page.IsLast || page.NextPageToken == "" || page.NextPageToken == token {
			return nil
		}
		token = page.NextPageToken
	}
}

// ListProjects returns every project visible to the account, paging until
// the API flags the last page. The reported total is never consulted.
func ListProjects(ctx context.Context, client *atlassian.Client) ([]project, error) {
	var all []project
	startAt := 0
	for {
		query := url.Values{}
		query.Set("startAt", strconv.Itoa(startAt))
		query.Set("maxResults", strconv.Itoa(DefaultMaxResults))

		var page projectPage
		if err := client.GetJSON(ctx, "list projects", "/rest/api/3/project/search", query, &page); err != nil {
			return nil, err
		}

		if len(page.Values) == 0 {
			return all, nil
		}
		all = append(all, page.Values...)
		if page.IsLast {
			return all, nil
		}
		startAt += len(page.Values)
	}
}

// buildRecord maps an issue onto the extraction envelope. Missing fields
// degrade to the same placeholders the rest of the pipeline expects; the
// record is never dropped here.
func buildRecord(baseURL string, is issue) domain.RawRecord {
	f := is.Fields

	metadata := map[string]any{
		"jira_project_key": projectKeyOf(is.Key),
		"jira_issue_key":   is.Key,
		"jira_issue_type":  nameOf(f.IssueType, "Unknown"),
		"status":           nameOf(f.Status, "Unknown"),
		"priority":         nameOf(f.Priority, "None"),
		"assignee":         displayNameOf(f.Assignee, "Unassigned"),
	}

	if f.Comment != nil && len(f.Comment.Comments) > 0 {
		comments := make([]map[string]any, 0, len(f.Comment.Comments))
		for _, cm := range f.Comment.Comments {
			comments = append(comments, map[string]any{
				"id":         cm.ID,
				"author":     displayNameOf(cm.Author, "Unknown"),
				"created_at": cm.Created,
				"content":    rawOrNull(cm.Body),
			})
		}
		metadata["comments"] = comments
	}

	return domain.RawRecord{
		Source:      domain.SourceJira,
		SourceID:    is.ID,
		URL:         baseURL + "/browse/" + is.Key,
		Title:       f.Summary,
		Content:     contentOf(f.Description),
		ContentType: domain.ContentTypeADF,
		Author:      displayNameOf(f.Reporter, "Unknown"),
		CreatedAt:   f.Created,
		UpdatedAt:   f.Updated,
		Metadata:    metadata,
	}
}

// projectKeyOf derives the project key from an issue key like "OPS-42".
func projectKeyOf(issueKey string) string {
	if key, _, found := strings.Cut(issueKey, "-"); found {
		return key
	}
	return issueKey
}

// contentOf returns the raw description, empty for absent or null values.
func contentOf(raw json.RawMessage) string {
	s := string(raw)
	if s == "" || s == "null" {
		return ""
	}
	return s
}

// rawOrNull keeps a raw JSON value embeddable in metadata.
func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func nameOf(f *namedField, fallback string) string {
	if f == nil || f.Name == "" {
		return fallback
	}
	return f.Name
}

func displayNameOf(u *userField, fallback string) string {
	if u == nil || u.DisplayName == "" {
		return fallback
	}
	return u.DisplayName
}
