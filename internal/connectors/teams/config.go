package teams

const (
	// DefaultPageSize is the $top value requested when none is configured.
	DefaultPageSize = 50

	// MaxPageSize is the largest $top value Graph honours for channel
	// messages.
	MaxPageSize = 50
)

// Config holds the settings for the Teams connector.
type Config struct {
	// TeamIDs restricts fetching to the given team IDs.
	// Empty discovers every team visible to the application.
	TeamIDs []string

	// PageSize is the $top value requested per message listing.
	PageSize int

	// FetchReplies expands reply threads so they ride along in record
	// metadata.
	FetchReplies bool
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
