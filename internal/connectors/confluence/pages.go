package confluence

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/connectors/atlassian"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

const (
	// contentPath lists pages of a space.
	contentPath = "/rest/api/content"

	// searchPath runs CQL queries for incremental fetches.
	searchPath = "/rest/api/content/search"

	// spacePath lists spaces visible to the account.
	spacePath = "/rest/api/space"

	// spaceListLimit is the page size used for space discovery.
	spaceListLimit = 50

	// commentLimit is the page size used for comment listing;
	// Confluence caps comment pages at 100.
	commentLimit = 100

	// pageExpand names the expansions requested per page.
	pageExpand = "body.storage,version,history"

	// commentExpand names the expansions requested per comment.
	commentExpand = "body.storage,history"
)

// cqlTimeLayout is the timestamp format CQL accepts for lastModified bounds.
const cqlTimeLayout = "2006/01/02 15:04"

// buildCQL combines the space filter and the incremental lower bound into
// one query ordered by modification time.
func buildCQL(spaceKey string, since time.Time) string {
	return fmt.Sprintf("space = %q AND type = page AND lastModified >= %q ORDER BY lastmodified ASC",
		spaceKey, since.UTC().Format(cqlTimeLayout))
}

// ListSpaces returns every space visible to the account. A page shorter
// than the requested limit is the last one; the offset advances by the
// returned size.
func ListSpaces(ctx context.Context, client *atlassian.Client) ([]space, error) {
	var all []space
	start := 0
	for {
		query := url.Values{}
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(spaceListLimit))

		var page spacePage
		if err := client.GetJSON(ctx, "list spaces", spacePath, query, &page); err != nil {
			return nil, err
		}

		if len(page.Results) == 0 {
			return all, nil
		}
		all = append(all, page.Results...)
		if len(page.Results) < spaceListLimit {
			return all, nil
		}
		start += len(page.Results)
	}
}

// ListPages pages through one space's pages, invoking fn per page. A zero
// since time lists the whole space; otherwise a CQL search bounds the
// fetch by lastModified. The loop terminates when a page is empty or
// shorter than the requested limit, and advances the offset by the
// returned size so a provider returning fewer items than asked neither
// skips nor duplicates records. The reported total is never consulted.
func ListPages(
	ctx context.Context, client *atlassian.Client,
	spaceKey string, limit int, since time.Time,
	fn func(page) error,
) error {
	start := 0
	for {
		query := url.Values{}
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(limit))
		query.Set("expand", pageExpand)

		path := contentPath
		if since.IsZero() {
			query.Set("type", "page")
			query.Set("spaceKey", spaceKey)
		} else {
			path = searchPath
			query.Set("cql", buildCQL(spaceKey, since))
		}

		var pg contentPage
		if err := client.GetJSON(ctx, "list pages", path, query, &pg); err != nil {
			return err
		}

		if len(pg.Results) == 0 {
			return nil
		}
		for _, p := range pg.Results {
			if err := fn(p); err != nil {
				return err
			}
		}

		if len(pg.Results) < limit {
			return nil
		}
		start += len(pg.Results)
	}
}

// ListComments returns every comment on a page, following the same
// short-page rule as the content listing.
func ListComments(ctx context.Context, client *atlassian.Client, pageID string) ([]comment, error) {
	var all []comment
	start := 0
	for {
		query := url.Values{}
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(commentLimit))
		query.Set("expand", commentExpand)

		path := contentPath + "/" + pageID + "/child/comment"

		var page commentPage
		if err := client.GetJSON(ctx, "list comments", path, query, &page); err != nil {
			return nil, err
		}

		if len(page.Results) == 0 {
			return all, nil
		}
		all = append(all, page.Results...)
		if len(page.Results) < commentLimit {
			return all, nil
		}
		start += len(page.Results)
	}
}

// buildRecord maps a page onto the extraction envelope. Missing fields
// degrade to the same placeholders the rest of the pipeline expects; the
// record is never dropped here.
func buildRecord(baseURL string, sp space, pg page, comments []comment) domain.RawRecord {
	metadata := map[string]any{
		"confluence_space_key":  sp.Key,
		"confluence_space_name": nameOrKey(sp),
		"last_updated_author":   versionAuthor(pg.Version),
	}

	if len(comments) > 0 {
		list := make([]map[string]any, 0, len(comments))
		for _, cm := range comments {
			list = append(list, map[string]any{
				"id":         cm.ID,
				"author":     historyAuthor(cm.History),
				"created_at": createdDate(cm.History),
				"content":    bodyValue(cm.Body),
			})
		}
		metadata["comments"] = list
	}

	return domain.RawRecord{
		Source:      domain.SourceConfluence,
		SourceID:    pg.ID,
		URL:         pageURL(baseURL, pg.Links),
		Title:       pg.Title,
		Content:     bodyValue(pg.Body),
		ContentType: domain.ContentTypeHTML,
		Author:      historyAuthor(pg.History),
		CreatedAt:   createdDate(pg.History),
		UpdatedAt:   versionWhen(pg.Version),
		Metadata:    metadata,
	}
}

// pageURL resolves the web UI link against the site root.
func pageURL(baseURL string, links *pageLinks) string {
	if links == nil || links.WebUI == "" {
		return baseURL
	}
	return baseURL + links.WebUI
}

func nameOrKey(sp space) string {
	if sp.Name != "" {
		return sp.Name
	}
	return sp.Key
}

func bodyValue(b *pageBody) string {
	if b == nil {
		return ""
	}
	return b.Storage.Value
}

func versionWhen(v *pageVersion) string {
	if v == nil {
		return ""
	}
	return v.When
}

func versionAuthor(v *pageVersion) string {
	if v == nil || v.By == nil || v.By.DisplayName == "" {
		return "Unknown"
	}
	return v.By.DisplayName
}

func historyAuthor(h *pageHistory) string {
	if h == nil || h.CreatedBy == nil || h.CreatedBy.DisplayName == "" {
		return "Unknown"
	}
	return h.CreatedBy.DisplayName
}

func createdDate(h *pageHistory) string {
	if h == nil {
		return ""
	}
	return h.CreatedDate
}
