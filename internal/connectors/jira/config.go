package jira

const (
	// DefaultMaxResults is the page size requested when none is configured.
	DefaultMaxResults = 50

	// MaxPageSize is the largest page size Jira Cloud honours per search.
	MaxPageSize = 100
)

// Config holds the settings for a Jira Cloud site.
type Config struct {
	// BaseURL is the site root, e.g. https://example.atlassian.net.
	BaseURL string

	// Email is the account the API token belongs to.
	Email string

	// APIToken is an Atlassian API token.
	APIToken string

	// ProjectKeys restricts fetching to the given projects.
	// Empty discovers every project visible to the account.
	ProjectKeys []string

	// JQL is an extra filter clause combined with the project filter.
	// It must not contain an ORDER BY clause.
	JQL string

	// MaxResults is the page size requested per search call.
	MaxResults int

	// FetchComments requests the comment field so issue comments ride
	// along in record metadata.
	FetchComments bool
}

// withDefaults returns a copy of the config with page sizing normalised.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.MaxResults <= 0 {
		out.MaxResults = DefaultMaxResults
	}
	if out.MaxResults > MaxPageSize {
		out.MaxResults = MaxPageSize
	}
	return &out
}
