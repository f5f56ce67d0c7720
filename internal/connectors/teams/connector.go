package teams

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/connectors/graph"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector fetches channel messages via Microsoft Graph.
type Connector struct {
	config *Config
	client *graph.Client
	mu     sync.Mutex
	closed bool
}

// New creates a Teams connector using app-only Graph credentials.
func New(cfg *Config, creds *graph.Config) *Connector {
	return NewWithClient(cfg, graph.NewClient(domain.SourceTeams, creds))
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
	return domain.SourceTeams
}

// Validate checks the credentials with a cheap authenticated call.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectorClosed
	}

	query := url.Values{}
	query.Set("$filter", teamFilter)
	query.Set("$select", "id")
	query.Set("$top", "1")
	if err := c.client.GetJSON(ctx, "validate credentials", "/groups", query, nil); err != nil {
		if te, ok := domain.IsTransport(err); ok &&
			(te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return err
	}
	return nil
}

// FetchAll streams every channel message thread visible to the app.
func (c *Connector) FetchAll(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	return c.fetch(ctx, time.Time{})
}

// FetchSince streams message threads modified since the cursor in state.
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

// fetch runs the shared traversal: teams, channels, message threads.
// System event messages are skipped; the index only wants things people
// wrote.
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

		teams, err := c.resolveTeams(ctx)
		if err != nil {
			errs <- err
			return
		}

		for _, tm := range teams {
			channels, err := ListChannels(ctx, c.client, tm.ID)
			if err != nil {
				errs <- err
				return
			}

			for _, ch := range channels {
				err := ListMessages(ctx, c.client, tm.ID, ch.ID,
					c.config.PageSize, c.config.FetchReplies, since,
					func(msg message) error {
						if msg.MessageType != "" && msg.MessageType != "message" {
							return nil
						}

						rec := buildRecord(tm, ch, msg)
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
		}

		errs <- &driven.SyncComplete{Cursor: cursor.Encode()}
	}()

	return records, errs
}

// resolveTeams returns the configured teams, or discovers every visible
// team when none are configured.
func (c *Connector) resolveTeams(ctx context.Context) ([]team, error) {
	if len(c.config.TeamIDs) == 0 {
		return ListTeams(ctx, c.client)
	}

	teams := make([]team, 0, len(c.config.TeamIDs))
	for _, id := range c.config.TeamIDs {
		tm, err := GetTeam(ctx, c.client, id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, tm)
	}
	return teams, nil
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
