package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/connectors/graph"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches document-library files via Microsoft Graph.
type Connector struct {
	config *Config
	client *graph.Client
	mu     sync.Mutex
	closed bool
}

// New creates a SharePoint connector using app-only Graph credentials.
func New(cfg *Config, creds *graph.Config) *Connector {
	return NewWithClient(cfg, graph.NewClient(domain.SourceSharePoint, creds))
}

// NewWithClient creates a connector around an existing Graph client.
// Tests use it to point at stub servers.
func NewWithClient(cfg *Config, client *graph.Client) *Connector {
	return &Connector{
		config: cfg.withDefaults(),
		client: client,
	}
}

// Source returns the source this connector serves.
func (c *Connector) Source() domain.SourceType {
	return domain.SourceSharePoint
}

// Validate checks the credentials with a cheap authenticated call.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}

	if _, err := GetSite(ctx, c.client, "root"); err != nil {
		if te, ok := domain.IsTransport(err); ok &&
			(te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return err
	}
	return nil
}

// FetchAll streams every indexable document-library file visible to the app.
func (c *Connector) FetchAll(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	return c.fetch(ctx, time.Time{})
}

// FetchSince streams files modified since the cursor in state.
// An empty cursor falls back to a full fetch.
func (c *Connector) FetchSince(
	ctx context.Context, state domain.SyncState,
) (<-chan domain.RawRecord, <-chan error) {
	cursor, err := DecodeCursor(state.Cursor)
	if err != nil {
		return failFetch(fmt.Errorf("decode cursor: %w", err))
	}
	return c.fetch(ctx, cursor.UpdatedSince)
}

// fetch runs the shared traversal. A zero since time means a full fetch;
// otherwise every children listing gains a lastModifiedDateTime lower
// bound, which SharePoint propagates up the folder tree so stale
// subtrees are pruned wholesale.
func (c *Connector) fetch(ctx context.Context, since time.Time) (<-chan domain.RawRecord, <-chan error) {
	records := make(chan domain.RawRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			errs <- domain.ErrConnectorClosed
			return
		}
		c.mu.Unlock()

		cursor := NewCursor()
		cursor.Advance(since)

		sites, err := c.resolveSites(ctx)
		if err != nil {
			errs <- err
			return
		}

		for _, sp := range sites {
			d, err := GetDrive(ctx, c.client, sp.ID)
			if err != nil {
				errs <- err
				return
			}

			err = c.walkChildren(ctx, d.ID, "", since, func(item driveItem) error {
				rec, ok, err := c.fileRecord(ctx, sp, item)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}

				if t := domain.ParseTime(rec.UpdatedAt); t != nil {
					cursor.Advance(*t)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case records <- rec:
					return nil
				}
			})
			if err != nil {
				errs <- err
				return
			}
		}

		errs <- &driven.SyncComplete{Cursor: cursor.Encode()}
	}()

	return records, errs
}

// resolveSites returns the configured sites, or discovers every visible
// site when none are configured.
func (c *Connector) resolveSites(ctx context.Context) ([]site, error) {
	if len(c.config.SiteIDs) == 0 {
		return ListSites(ctx, c.client)
	}

	sites := make([]site, 0, len(c.config.SiteIDs))
	for _, id := range c.config.SiteIDs {
		sp, err := GetSite(ctx, c.client, id)
		if err != nil {
			return nil, err
		}
		sites = append(sites, sp)
	}
	return sites, nil
}

// walkChildren lists one folder's children and recurses into subfolders,
// invoking fn for every file item.
func (c *Connector) walkChildren(
	ctx context.Context, driveID, itemID string, since time.Time,
	fn func(driveItem) error,
) error {
	path := "/drives/" + driveID + "/root/children"
	if itemID != "" {
		path = "/drives/" + driveID + "/items/" + itemID + "/children"
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(c.config.PageSize))
	if !since.IsZero() {
		query.Set("$filter", "lastModifiedDateTime ge "+since.UTC().Format(time.RFC3339))
	}

	return c.client.ListAll(ctx, "list drive children", path, query, func(raw json.RawMessage) error {
		var item driveItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return decodeError("list drive children", err)
		}

		if item.Folder != nil {
			return c.walkChildren(ctx, driveID, item.ID, since, fn)
		}
		if item.File == nil {
			return nil
		}
		return fn(item)
	})
}

// fileRecord downloads one file and maps it onto the extraction
// envelope. Files of other formats, oversized ones, and ones lacking a
// download URL are skipped (reported as ok=false) rather than indexed
// as placeholders.
func (c *Connector) fileRecord(ctx context.Context, sp site, item driveItem) (domain.RawRecord, bool, error) {
	contentType, ok := recordContentType(item)
	if !ok || item.Size > MaxFileBytes || item.DownloadURL == "" {
		return domain.RawRecord{}, false, nil
	}

	content, err := c.client.Download(ctx, "download file", item.DownloadURL)
	if err != nil {
		return domain.RawRecord{}, false, err
	}
	return buildRecord(sp, item, encodeContent(content, contentType), contentType), true, nil
}

// Close releases connector resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// failFetch returns a closed record channel and a single pre-loaded error.
func failFetch(err error) (<-chan domain.RawRecord, <-chan error) {
	records := make(chan domain.RawRecord)
	close(records)
	errs := make(chan error, 1)
	errs <- err
	close(errs)
	return records, errs
}
