package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries after a 429 response.
	MaxRetries = 3

	// maxErrorBody bounds how much of an error response is kept for context.
	maxErrorBody = 512
)

// Client is a basic-auth Atlassian Cloud REST client shared by the Jira and
// Confluence connectors. Every failed request is reported as a
// *domain.TransportError attributed to the owning source.
type Client struct {
	source     domain.SourceType
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewClient creates a client for one Atlassian site.
// baseURL is the site root, e.g. https://example.atlassian.net (Confluence
// sites include the /wiki path).
func NewClient(source domain.SourceType, baseURL, email, apiToken string) *Client {
	return &Client{
		source:     source,
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    NewRateLimiter(ServiceType(source)),
	}
}

// NewClientWithHTTPClient creates a client around a caller-supplied
// http.Client. Tests use it to tighten timeouts against stub servers.
func NewClientWithHTTPClient(
	source domain.SourceType, baseURL, email, apiToken string, httpClient *http.Client,
) *Client {
	c := NewClient(source, baseURL, email, apiToken)
	c.httpClient = httpClient
	return c
}

// BaseURL returns the site root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RateLimiter returns the rate limiter for external inspection.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// GetJSON performs a rate-limited GET against path and decodes the JSON
// response into out. 429 responses are retried after the server's
// Retry-After delay; any other non-2xx status becomes a TransportError
// carrying op and the status code.
func (c *Client) GetJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		reqURL := c.baseURL + path
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.SetBasicAuth(c.email, c.apiToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &domain.TransportError{Source: c.source, Op: op, Err: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < MaxRetries {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			drainBody(resp)
			c.limiter.RecordRateLimitError(retryAfter)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			detail := readErrorBody(resp)
			drainBody(resp)
			return &domain.TransportError{
				Source:     c.source,
				Op:         op,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("request failed: %s", detail),
			}
		}

		if out == nil {
			drainBody(resp)
			return nil
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		drainBody(resp)
		if err != nil {
			return &domain.TransportError{
				Source: c.source, Op: op,
				Err: fmt.Errorf("decode response: %w", err),
			}
		}
		return nil
	}
}

// parseRetryAfter reads a Retry-After header value in seconds.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return seconds
}

// readErrorBody returns a bounded excerpt of an error response body.
func readErrorBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return resp.Status
	}
	return strings.TrimSpace(string(body))
}

// drainBody consumes and closes the response body so the connection can be
// reused.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
