package confluence

const (
	// DefaultPageLimit is the page size requested when none is configured.
	DefaultPageLimit = 25

	// MaxPageLimit is the largest page size Confluence Cloud honours for
	// expanded content listings.
	MaxPageLimit = 100
)

// Config holds the settings for a Confluence Cloud site.
type Config struct {
	// BaseURL is the wiki root, e.g. https://example.atlassian.net/wiki.
	BaseURL string

	// Email is the account the API token belongs to.
	Email string

	// APIToken is an Atlassian API token.
	APIToken string

	// SpaceKeys restricts fetching to the given spaces.
	// Empty discovers every space visible to the account.
	SpaceKeys []string

	// PageLimit is the page size requested per list call.
	PageLimit int

	// FetchComments pulls page comments so they ride along in record
	// metadata.
	FetchComments bool
}

// withDefaults returns a copy of the config with page sizing normalised.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.PageLimit <= 0 {
		out.PageLimit = DefaultPageLimit
	}
	if out.PageLimit > MaxPageLimit {
		out.PageLimit = MaxPageLimit
	}
	return &out
}
