// Package config loads and validates the quarry configuration file.
//
// Configuration lives in a TOML file, ~/.quarry/config.toml by default.
// String values may reference environment variables as ${VAR}; references
// are expanded at load time so tokens never have to live in the file
// itself. Missing variables expand to the empty string and are caught by
// validation when the field is required.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// Default pipeline parameters. These mirror the values the pipeline was
// tuned with; all of them can be overridden in the config file.
const (
	DefaultChunkSize       = 100
	DefaultChunkOverlap    = 50
	DefaultTopK            = 3
	DefaultContextBudget   = 6000
	DefaultEmbedBatchSize  = 16
	DefaultParallelSources = 4
	DefaultJiraMaxResults  = 50
	DefaultConfluenceLimit = 25
	DefaultGraphPageSize   = 50
)

// Config is the root of the quarry configuration tree.
type Config struct {
	// Index configures the vector store backend.
	Index IndexConfig `toml:"index"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `toml:"embedding"`

	// LLM configures the optional answer model.
	LLM LLMConfig `toml:"llm"`

	// Chunking configures the sliding-window chunker.
	Chunking ChunkingConfig `toml:"chunking"`

	// Ingest configures pipeline execution.
	Ingest IngestConfig `toml:"ingest"`

	// Ask configures retrieval and prompt assembly.
	Ask AskConfig `toml:"ask"`

	// Jira configures the Jira Cloud connector.
	Jira JiraConfig `toml:"jira"`

	// Confluence configures the Confluence Cloud connector.
	Confluence ConfluenceConfig `toml:"confluence"`

	// Graph holds the Microsoft Graph app credentials shared by the
	// SharePoint and Teams connectors.
	Graph GraphConfig `toml:"graph"`

	// SharePoint configures the SharePoint connector.
	SharePoint SharePointConfig `toml:"sharepoint"`

	// Teams configures the Microsoft Teams connector.
	Teams TeamsConfig `toml:"teams"`
}

// IndexConfig selects and configures the vector store backend.
type IndexConfig struct {
	// Backend is one of "sqlite", "qdrant", or "memory".
	Backend string `toml:"backend"`

	// Path is the SQLite database file. Defaults to ~/.quarry/index.db.
	Path string `toml:"path"`

	// Collection is the Qdrant collection name.
	Collection string `toml:"collection"`

	// Host is the Qdrant gRPC host.
	Host string `toml:"host"`

	// Port is the Qdrant gRPC port.
	Port int `toml:"port"`

	// UseTLS enables TLS for the Qdrant connection.
	UseTLS bool `toml:"use_tls"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "openai" or "local".
	Provider string `toml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider endpoint, for OpenAI-compatible
	// servers. Empty uses the provider default.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// Dimensions is the embedding vector size produced by Model.
	Dimensions int `toml:"dimensions"`

	// BatchSize is the number of chunks embedded per request.
	BatchSize int `toml:"batch_size"`
}

// LLMConfig configures the optional answer model.
type LLMConfig struct {
	// Enabled turns answer generation on. When false, `quarry ask`
	// prints retrieved context and the assembled prompt only.
	Enabled bool `toml:"enabled"`

	// APIKey authenticates against the provider. Falls back to the
	// embedding API key when empty.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the chat model name.
	Model string `toml:"model"`

	// MaxTokens caps the answer length.
	MaxTokens int `toml:"max_tokens"`

	// Temperature controls answer randomness.
	Temperature float64 `toml:"temperature"`
}

// ChunkingConfig configures the sliding-window chunker.
type ChunkingConfig struct {
	// Size is the window length in runes.
	Size int `toml:"size"`

	// Overlap is the number of runes shared between consecutive chunks.
	// Must be smaller than Size.
	Overlap int `toml:"overlap"`
}

// IngestConfig configures pipeline execution.
type IngestConfig struct {
	// ParallelSources is the number of sources fetched concurrently.
	ParallelSources int `toml:"parallel_sources"`

	// SpoolDir is where `quarry load --watch` looks for NDJSON files.
	SpoolDir string `toml:"spool_dir"`
}

// AskConfig configures retrieval and prompt assembly.
type AskConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `toml:"top_k"`

	// ContextBudget is the maximum combined length, in runes, of the
	// chunk texts placed into the prompt.
	ContextBudget int `toml:"context_budget"`
}

// JiraConfig configures the Jira Cloud connector.
type JiraConfig struct {
	// Enabled turns the connector on.
	Enabled bool `toml:"enabled"`

	// BaseURL is the site URL, e.g. https://example.atlassian.net.
	BaseURL string `toml:"base_url"`

	// Email is the account the API token belongs to.
	Email string `toml:"email"`

	// APIToken is an Atlassian API token.
	APIToken string `toml:"api_token"`

	// ProjectKeys restricts fetching to the given projects.
	// Empty discovers every project visible to the account.
	ProjectKeys []string `toml:"project_keys"`

	// JQL is an extra filter clause combined with the project filter.
	// It must not contain an ORDER BY clause.
	JQL string `toml:"jql"`

	// MaxResults is the page size requested per search call.
	MaxResults int `toml:"max_results"`

	// FetchComments includes issue comments in the record body.
	FetchComments bool `toml:"fetch_comments"`
}

// ConfluenceConfig configures the Confluence Cloud connector.
type ConfluenceConfig struct {
	// Enabled turns the connector on.
	Enabled bool `toml:"enabled"`

	// BaseURL is the site URL, e.g. https://example.atlassian.net/wiki.
	BaseURL string `toml:"base_url"`

	// Email is the account the API token belongs to.
	Email string `toml:"email"`

	// APIToken is an Atlassian API token.
	APIToken string `toml:"api_token"`

	// SpaceKeys restricts fetching to the given spaces. Empty fetches all.
	SpaceKeys []string `toml:"space_keys"`

	// PageLimit is the page size requested per list call.
	PageLimit int `toml:"page_limit"`

	// FetchComments includes page comments in the record body.
	FetchComments bool `toml:"fetch_comments"`
}

// GraphConfig holds Microsoft Graph app-only credentials.
type GraphConfig struct {
	// TenantID is the Entra ID tenant.
	TenantID string `toml:"tenant_id"`

	// ClientID is the app registration client ID.
	ClientID string `toml:"client_id"`

	// ClientSecret is the app registration client secret.
	ClientSecret string `toml:"client_secret"`

	// PageSize is the $top value requested per Graph call.
	PageSize int `toml:"page_size"`
}

// SharePointConfig configures the SharePoint connector.
type SharePointConfig struct {
	// Enabled turns the connector on.
	Enabled bool `toml:"enabled"`

	// SiteIDs lists the sites to fetch pages from.
	SiteIDs []string `toml:"site_ids"`
}

// TeamsConfig configures the Microsoft Teams connector.
type TeamsConfig struct {
	// Enabled turns the connector on.
	Enabled bool `toml:"enabled"`

	// TeamIDs lists the teams to fetch channel messages from.
	TeamIDs []string `toml:"team_ids"`

	// FetchReplies includes reply threads in the record body.
	FetchReplies bool `toml:"fetch_replies"`
}

// DefaultDir returns the quarry configuration directory, ~/.quarry.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".quarry"), nil
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads, expands, and defaults the configuration at path.
// An empty path falls back to DefaultPath. A missing file is not an
// error; it yields a default configuration with every source disabled.
// Load does not validate; call Validate before using the result.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		expanded := expandEnv(string(data))
		if err := toml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnvFallbacks()
	cfg.applyDefaults()
	return cfg, nil
}

// envRef matches ${VAR} references. Plain $VAR is left untouched so
// values containing dollar signs survive expansion.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with environment values.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[2 : len(ref)-1]
		return os.Getenv(name)
	})
}

// applyEnvFallbacks fills empty credential fields from well-known
// environment variables, so a config file is not required for the
// common case.
func (c *Config) applyEnvFallbacks() {
	fallback := func(field *string, envVar string) {
		if *field == "" {
			*field = os.Getenv(envVar)
		}
	}

	fallback(&c.Embedding.APIKey, "OPENAI_API_KEY")
	fallback(&c.LLM.APIKey, "OPENAI_API_KEY")

	fallback(&c.Jira.BaseURL, "JIRA_BASE_URL")
	fallback(&c.Jira.Email, "JIRA_EMAIL")
	fallback(&c.Jira.APIToken, "JIRA_API_TOKEN")

	fallback(&c.Confluence.BaseURL, "CONFLUENCE_BASE_URL")
	fallback(&c.Confluence.Email, "CONFLUENCE_EMAIL")
	fallback(&c.Confluence.APIToken, "CONFLUENCE_API_TOKEN")

	fallback(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	fallback(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	fallback(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
}

// applyDefaults fills zero values with pipeline defaults.
func (c *Config) applyDefaults() {
	if c.Index.Backend == "" {
		c.Index.Backend = "sqlite"
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "quarry_chunks"
	}
	if c.Index.Port == 0 {
		c.Index.Port = 6334
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = DefaultEmbedBatchSize
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 700
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = DefaultChunkSize
		if c.Chunking.Overlap == 0 {
			c.Chunking.Overlap = DefaultChunkOverlap
		}
	}
	if c.Ingest.ParallelSources == 0 {
		c.Ingest.ParallelSources = DefaultParallelSources
	}
	if c.Ask.TopK == 0 {
		c.Ask.TopK = DefaultTopK
	}
	if c.Ask.ContextBudget == 0 {
		c.Ask.ContextBudget = DefaultContextBudget
	}
	if c.Jira.MaxResults == 0 {
		c.Jira.MaxResults = DefaultJiraMaxResults
	}
	if c.Confluence.PageLimit == 0 {
		c.Confluence.PageLimit = DefaultConfluenceLimit
	}
	if c.Graph.PageSize == 0 {
		c.Graph.PageSize = DefaultGraphPageSize
	}
}

// Sources returns the enabled sources in canonical order.
func (c *Config) Sources() []domain.SourceType {
	var sources []domain.SourceType
	for _, s := range domain.AllSources() {
		if c.SourceEnabled(s) {
			sources = append(sources, s)
		}
	}
	return sources
}

// SourceEnabled reports whether the given source is enabled.
func (c *Config) SourceEnabled(source domain.SourceType) bool {
	switch source {
	case domain.SourceJira:
		return c.Jira.Enabled
	case domain.SourceConfluence:
		return c.Confluence.Enabled
	case domain.SourceSharePoint:
		return c.SharePoint.Enabled
	case domain.SourceTeams:
		return c.Teams.Enabled
	default:
		return false
	}
}
