package jira

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/connectors/atlassian"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches issues from a Jira Cloud site.
type Connector struct {
	config *Config
	client *atlassian.Client
	mu     sync.Mutex
	closed bool
}

// New creates a Jira connector for the configured site.
func New(cfg *Config) *Connector {
	cfg = cfg.withDefaults()
	return &Connector{
		config: cfg,
		client: atlassian.NewClient(domain.SourceJira, cfg.BaseURL, cfg.Email, cfg.APIToken),
	}
}

// Source returns the source this connector serves.
func (c *Connector) Source() domain.SourceType {
	return domain.SourceJira
}

// Validate checks the credentials with a cheap authenticated call.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}

	var me struct {
		AccountID string `json:"accountId"`
	}
	if err := c.client.GetJSON(ctx, "get myself", "/rest/api/3/myself", nil, &me); err != nil {
		if te, ok := domain.IsTransport(err); ok &&
			(te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return err
	}
	return nil
}

// FetchAll streams every issue visible to the configured account.
func (c *Connector) FetchAll(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	return c.fetch(ctx, time.Time{})
}

// FetchSince streams issues updated since the cursor in state.
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

// fetch runs the shared pagination pass. A zero since time means a full
// fetch; otherwise the JQL gains an updated lower bound.
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

		keys := c.config.ProjectKeys
		if len(keys) == 0 {
			projects, err := ListProjects(ctx, c.client)
			if err != nil {
				errs <- err
				return
			}
			for _, p := range projects {
				keys = append(keys, p.Key)
			}
		}

		for _, key := range keys {
			jql := buildJQL(key, c.config.JQL, since)
			err := SearchIssues(ctx, c.client, jql, c.config.MaxResults, c.config.FetchComments, func(is issue) error {
				rec := buildRecord(c.client.BaseURL(), is)
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
