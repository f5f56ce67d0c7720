// Package atlassian provides the shared HTTP plumbing for the Atlassian
// Cloud connectors (Jira, Confluence): a basic-auth REST client with bounded
// timeouts, per-service rate limiting with 429 backoff, and mapping of
// failed requests onto transport errors.
package atlassian
