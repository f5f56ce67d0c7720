package graph

import (
	"context"
	"encoding/json"
	"net/url"
)

// listPage is the collection envelope shared by Graph list responses.
// Items stay raw; each caller decodes into its own shape.
type listPage struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// ListAll pages through a Graph collection, invoking fn once per item.
// The loop issues the first request against path with query, then follows
// @odata.nextLink verbatim (the link already embeds the query) until the
// response carries none.
func (c *Client) ListAll(
	ctx context.Context, op, path string, query url.Values,
	fn func(json.RawMessage) error,
) error {
	next := path
	for {
		var page listPage
		if err := c.GetJSON(ctx, op, next, query, &page); err != nil {
			return err
		}
		query = nil

		for _, item := range page.Value {
			if err := fn(item); err != nil {
				return err
			}
		}

		if page.NextLink == "" {
			return nil
		}
		next = page.NextLink
	}
}
