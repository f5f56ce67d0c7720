package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// writeConfig writes a TOML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// clearEnvFallbacks blanks the well-known credential variables so tests
// are not affected by the invoking environment.
func clearEnvFallbacks(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"OPENAI_API_KEY",
		"JIRA_BASE_URL", "JIRA_EMAIL", "JIRA_API_TOKEN",
		"CONFLUENCE_BASE_URL", "CONFLUENCE_EMAIL", "CONFLUENCE_API_TOKEN",
		"GRAPH_TENANT_ID", "GRAPH_CLIENT_ID", "GRAPH_CLIENT_SECRET",
	} {
		t.Setenv(v, "")
	}
}

// TestLoad_MissingFileYieldsDefaults tests that a missing config file is not
// an error and produces the documented defaults.
func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	clearEnvFallbacks(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, "quarry_chunks", cfg.Index.Collection)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.Size)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.Overlap)
	assert.Equal(t, DefaultTopK, cfg.Ask.TopK)
	assert.Equal(t, DefaultContextBudget, cfg.Ask.ContextBudget)
	assert.Equal(t, DefaultEmbedBatchSize, cfg.Embedding.BatchSize)
	assert.Equal(t, DefaultParallelSources, cfg.Ingest.ParallelSources)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Empty(t, cfg.Sources())
}

// TestLoad_ParsesFile tests that explicit values survive loading.
func TestLoad_ParsesFile(t *testing.T) {
	clearEnvFallbacks(t)

	path := writeConfig(t, `
[index]
backend = "qdrant"
host = "localhost"
collection = "kb"

[chunking]
size = 400
overlap = 80

[jira]
enabled = true
base_url = "https://example.atlassian.net"
email = "bot@example.com"
api_token = "tok-123"
jql = "project = ENG"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant", cfg.Index.Backend)
	assert.Equal(t, "localhost", cfg.Index.Host)
	assert.Equal(t, 6334, cfg.Index.Port) // default gRPC port
	assert.Equal(t, "kb", cfg.Index.Collection)
	assert.Equal(t, 400, cfg.Chunking.Size)
	assert.Equal(t, 80, cfg.Chunking.Overlap)
	assert.True(t, cfg.Jira.Enabled)
	assert.Equal(t, "project = ENG", cfg.Jira.JQL)
	assert.Equal(t, DefaultJiraMaxResults, cfg.Jira.MaxResults)
}

// TestLoad_ExpandsEnvRefs tests that ${VAR} references are expanded and
// plain dollar signs are left alone.
func TestLoad_ExpandsEnvRefs(t *testing.T) {
	clearEnvFallbacks(t)
	t.Setenv("QUARRY_TEST_TOKEN", "s3cret")

	path := writeConfig(t, `
[jira]
api_token = "${QUARRY_TEST_TOKEN}"
jql = "text ~ '$100 budget'"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Jira.APIToken)
	assert.Equal(t, "text ~ '$100 budget'", cfg.Jira.JQL)
}

// TestLoad_MissingEnvRefExpandsEmpty tests that a reference to an unset
// variable becomes the empty string rather than a literal.
func TestLoad_MissingEnvRefExpandsEmpty(t *testing.T) {
	clearEnvFallbacks(t)
	t.Setenv("QUARRY_TEST_UNSET", "")

	path := writeConfig(t, `
[confluence]
api_token = "${QUARRY_TEST_UNSET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Confluence.APIToken)
}

// TestLoad_EnvFallbacksFillEmptyCredentials tests that well-known variables
// back-fill credentials the file omits, without overriding explicit values.
func TestLoad_EnvFallbacksFillEmptyCredentials(t *testing.T) {
	clearEnvFallbacks(t)
	t.Setenv("JIRA_API_TOKEN", "env-token")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	path := writeConfig(t, `
[jira]
enabled = true
base_url = "https://example.atlassian.net"
email = "bot@example.com"

[embedding]
api_key = "sk-file"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Jira.APIToken)
	assert.Equal(t, "sk-file", cfg.Embedding.APIKey, "explicit value wins over env")
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
}

// TestLoad_MalformedTOML tests that unparseable files are surfaced as errors.
func TestLoad_MalformedTOML(t *testing.T) {
	clearEnvFallbacks(t)

	path := writeConfig(t, `[index` + "\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

// TestConfig_Sources tests that enabled sources come back in canonical order.
func TestConfig_Sources(t *testing.T) {
	cfg := &Config{}
	cfg.Teams.Enabled = true
	cfg.Jira.Enabled = true

	assert.Equal(t, []domain.SourceType{domain.SourceJira, domain.SourceTeams}, cfg.Sources())
	assert.True(t, cfg.SourceEnabled(domain.SourceJira))
	assert.False(t, cfg.SourceEnabled(domain.SourceConfluence))
}
