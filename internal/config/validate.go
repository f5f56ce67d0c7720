package config

import (
	"fmt"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// Validate checks the configuration and reports every problem found as a
// single *domain.ConfigurationError rather than stopping at the first.
// A nil return means the configuration is usable.
func (c *Config) Validate() error {
	var problems []string

	problems = append(problems, c.validateIndex()...)
	problems = append(problems, c.validateEmbedding()...)
	problems = append(problems, c.validateLLM()...)
	problems = append(problems, c.validateChunking()...)
	problems = append(problems, c.validatePipeline()...)
	problems = append(problems, c.validateSources()...)

	if len(problems) > 0 {
		return domain.NewConfigurationError(problems...)
	}
	return nil
}

func (c *Config) validateIndex() []string {
	var problems []string

	switch c.Index.Backend {
	case "sqlite", "memory":
	case "qdrant":
		if c.Index.Host == "" {
			problems = append(problems, "index: host is required for the qdrant backend")
		}
		if c.Index.Port <= 0 || c.Index.Port > 65535 {
			problems = append(problems, fmt.Sprintf("index: port %d is out of range", c.Index.Port))
		}
	default:
		problems = append(problems, fmt.Sprintf("index: unknown backend %q (expected sqlite, qdrant, or memory)", c.Index.Backend))
	}

	return problems
}

func (c *Config) validateEmbedding() []string {
	var problems []string

	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" {
			problems = append(problems, "embedding: api_key is required for the openai provider (or set OPENAI_API_KEY)")
		}
	case "local":
	default:
		problems = append(problems, fmt.Sprintf("embedding: unknown provider %q (expected openai or local)", c.Embedding.Provider))
	}

	if c.Embedding.Dimensions <= 0 {
		problems = append(problems, "embedding: dimensions must be positive")
	}
	if c.Embedding.BatchSize <= 0 {
		problems = append(problems, "embedding: batch_size must be positive")
	}

	return problems
}

func (c *Config) validateLLM() []string {
	var problems []string

	if c.LLM.Enabled && c.LLM.APIKey == "" {
		problems = append(problems, "llm: api_key is required when enabled (or set OPENAI_API_KEY)")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("llm: temperature %.2f is out of range [0, 2]", c.LLM.Temperature))
	}

	return problems
}

func (c *Config) validateChunking() []string {
	var problems []string

	if c.Chunking.Size <= 0 {
		problems = append(problems, fmt.Sprintf("chunking: size must be positive, got %d", c.Chunking.Size))
	}
	if c.Chunking.Overlap < 0 {
		problems = append(problems, fmt.Sprintf("chunking: overlap must not be negative, got %d", c.Chunking.Overlap))
	}
	if c.Chunking.Size > 0 && c.Chunking.Overlap >= c.Chunking.Size {
		problems = append(problems, fmt.Sprintf("chunking: overlap %d must be smaller than size %d", c.Chunking.Overlap, c.Chunking.Size))
	}

	return problems
}

func (c *Config) validatePipeline() []string {
	var problems []string

	if c.Ingest.ParallelSources <= 0 {
		problems = append(problems, "ingest: parallel_sources must be positive")
	}
	if c.Ask.TopK <= 0 {
		problems = append(problems, "ask: top_k must be positive")
	}
	if c.Ask.ContextBudget <= 0 {
		problems = append(problems, "ask: context_budget must be positive")
	}

	return problems
}

func (c *Config) validateSources() []string {
	var problems []string

	if c.Jira.Enabled {
		if c.Jira.BaseURL == "" {
			problems = append(problems, "jira: base_url is required")
		}
		if c.Jira.Email == "" {
			problems = append(problems, "jira: email is required")
		}
		if c.Jira.APIToken == "" {
			problems = append(problems, "jira: api_token is required")
		}
		if c.Jira.MaxResults <= 0 || c.Jira.MaxResults > 100 {
			problems = append(problems, fmt.Sprintf("jira: max_results %d is out of range [1, 100]", c.Jira.MaxResults))
		}
	}

	if c.Confluence.Enabled {
		if c.Confluence.BaseURL == "" {
			problems = append(problems, "confluence: base_url is required")
		}
		if c.Confluence.Email == "" {
			problems = append(problems, "confluence: email is required")
		}
		if c.Confluence.APIToken == "" {
			problems = append(problems, "confluence: api_token is required")
		}
		if c.Confluence.PageLimit <= 0 || c.Confluence.PageLimit > 250 {
			problems = append(problems, fmt.Sprintf("confluence: page_limit %d is out of range [1, 250]", c.Confluence.PageLimit))
		}
	}

	needsGraph := c.SharePoint.Enabled || c.Teams.Enabled
	if needsGraph {
		if c.Graph.TenantID == "" {
			problems = append(problems, "graph: tenant_id is required")
		}
		if c.Graph.ClientID == "" {
			problems = append(problems, "graph: client_id is required")
		}
		if c.Graph.ClientSecret == "" {
			problems = append(problems, "graph: client_secret is required")
		}
		if c.Graph.PageSize <= 0 || c.Graph.PageSize > 999 {
			problems = append(problems, fmt.Sprintf("graph: page_size %d is out of range [1, 999]", c.Graph.PageSize))
		}
	}

	return problems
}
