package sharepoint

const (
	// DefaultPageSize is the $top value requested when none is configured.
	DefaultPageSize = 100

	// MaxPageSize is the largest $top value Graph honours for drive
	// children.
	MaxPageSize = 200

	// MaxFileBytes bounds how large a file the connector will download.
	MaxFileBytes = 4 << 20
)

// Config holds the settings for the SharePoint connector.
type Config struct {
	// SiteIDs restricts fetching to the given Graph site IDs.
	// Empty discovers every site visible to the application.
	SiteIDs []string

	// PageSize is the $top value requested per listing call.
	PageSize int
}

// withDefaults returns a copy of the config with page sizing normalised.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}
	return &out
}
