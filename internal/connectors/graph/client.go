package graph

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

	"golang.org/x/oauth2/clientcredentials"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

const (
	// DefaultBaseURL is the Graph v1.0 endpoint root.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries after a 429 response.
	MaxRetries = 3

	// maxErrorBody bounds how much of an error response is kept for context.
	maxErrorBody = 512

	// scope is the app-only scope; .default resolves to the application
	// permissions granted to the registration.
	scope = "https://graph.microsoft.com/.default"
)

// Config holds Microsoft Graph app-only credentials.
type Config struct {
	// TenantID is the Entra ID tenant.
	TenantID string

	// ClientID is the app registration client ID.
	ClientID string

	// ClientSecret is the app registration client secret.
	ClientSecret string
}

// tokenURL returns the tenant's client-credentials token endpoint.
func tokenURL(tenantID string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/token"
}

// Client is an app-only Microsoft Graph REST client. Every failed request
// is reported as a *domain.TransportError attributed to the owning source.
type Client struct {
	source     domain.SourceType
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewClient creates a client that authenticates with the client-credentials
// grant. The oauth2 transport caches and refreshes tokens as needed.
func NewClient(source domain.SourceType, cfg *Config) *Client {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL(cfg.TenantID),
		Scopes:       []string{scope},
	}
	httpClient := creds.Client(context.Background())
	httpClient.Timeout = DefaultTimeout

	return &Client{
		source:     source,
		baseURL:    DefaultBaseURL,
		httpClient: httpClient,
		limiter:    NewRateLimiter(),
	}
}

// NewClientWithHTTPClient creates a client around a caller-supplied
// http.Client and base URL. Tests use it to point at stub servers.
func NewClientWithHTTPClient(source domain.SourceType, baseURL string, httpClient *http.Client) *Client {
	return &Client{
		source:     source,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    NewRateLimiter(),
	}
}

// BaseURL returns the endpoint root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RateLimiter returns the rate limiter for external inspection.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// resolve turns a path into a request URL. Absolute URLs pass through
// untouched so @odata.nextLink values can be followed as given.
func (c *Client) resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return c.baseURL + pathOrURL
}

// GetJSON performs a rate-limited GET against pathOrURL and decodes the
// JSON response into out. 429 responses are retried after the server's
// Retry-After delay; any other non-2xx status becomes a TransportError
// carrying op and the status code.
func (c *Client) GetJSON(ctx context.Context, op, pathOrURL string, query url.Values, out any) error {
	reqURL := c.resolve(pathOrURL)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(reqURL, "?") {
			sep = "&"
		}
		reqURL += sep + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
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

// Download fetches the body of downloadURL as text. Drive download URLs
// are pre-authenticated, so the bearer transport adding a token is
// harmless. The caller is expected to bound file sizes before calling.
func (c *Client) Download(ctx context.Context, op, downloadURL string) (string, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", &domain.TransportError{Source: c.source, Op: op, Err: err}
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
			return "", &domain.TransportError{
				Source:     c.source,
				Op:         op,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("download failed: %s", detail),
			}
		}

		body, err := io.ReadAll(resp.Body)
		drainBody(resp)
		if err != nil {
			return "", &domain.TransportError{
				Source: c.source, Op: op,
				Err: fmt.Errorf("read download: %w", err),
			}
		}
		return string(body), nil
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
