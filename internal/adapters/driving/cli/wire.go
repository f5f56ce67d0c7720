package cli

import (
	"context"
	"fmt"
	"io"

	localembed "github.com/quarry-labs/quarry-cli/internal/adapters/driven/embedding/local"
	openaiembed "github.com/quarry-labs/quarry-cli/internal/adapters/driven/embedding/openai"
	openaillm "github.com/quarry-labs/quarry-cli/internal/adapters/driven/llm/openai"
	"github.com/quarry-labs/quarry-cli/internal/adapters/driven/storage/memory"
	"github.com/quarry-labs/quarry-cli/internal/adapters/driven/storage/qdrant"
	"github.com/quarry-labs/quarry-cli/internal/adapters/driven/storage/sqlite"
	"github.com/quarry-labs/quarry-cli/internal/chunker"
	"github.com/quarry-labs/quarry-cli/internal/config"
	"github.com/quarry-labs/quarry-cli/internal/connectors/confluence"
	"github.com/quarry-labs/quarry-cli/internal/connectors/graph"
	"github.com/quarry-labs/quarry-cli/internal/connectors/jira"
	"github.com/quarry-labs/quarry-cli/internal/connectors/sharepoint"
	"github.com/quarry-labs/quarry-cli/internal/connectors/teams"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-cli/internal/core/services"
	"github.com/quarry-labs/quarry-cli/internal/normalisers"
	"github.com/quarry-labs/quarry-cli/internal/normalisers/adf"
	"github.com/quarry-labs/quarry-cli/internal/normalisers/docx"
	"github.com/quarry-labs/quarry-cli/internal/normalisers/html"
	"github.com/quarry-labs/quarry-cli/internal/normalisers/markdown"
	"github.com/quarry-labs/quarry-cli/internal/normalisers/plaintext"
)

// The loaded configuration and backend handles stay addressable after
// wiring for commands that need more than the two service ports.
var (
	appConfig        *config.Config
	embeddingBackend driven.EmbeddingService
	llmBackend       driven.LLMService
	closers          []io.Closer
)

// wireServices loads configuration and assembles the adapter graph the
// services run on.
func wireServices(ctx context.Context) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	splitter, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	index, states, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	ingestService = services.NewIngestService(
		buildConnectors(cfg),
		buildRegistry(),
		splitter,
		embedder,
		index,
		states,
		cfg.Embedding.BatchSize,
		cfg.Ingest.ParallelSources,
	)
	askService = services.NewAskService(
		embedder,
		index,
		llm,
		cfg.Ask.TopK,
		cfg.Ask.ContextBudget,
		cfg.LLM.MaxTokens,
		cfg.LLM.Temperature,
	)

	appConfig = cfg
	embeddingBackend = embedder
	llmBackend = llm
	return nil
}

// closeServices releases adapter resources in reverse wiring order.
func closeServices() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close() //nolint:errcheck
	}
	closers = nil
}

// buildRegistry registers a normaliser for every content type the
// connectors emit.
func buildRegistry() driven.NormaliserRegistry {
	registry := normalisers.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(markdown.New())
	registry.Register(html.New())
	registry.Register(adf.New())
	registry.Register(docx.New())
	return registry
}

// buildConnectors creates a connector for every enabled source.
func buildConnectors(cfg *config.Config) []driven.Connector {
	var conns []driven.Connector

	if cfg.Jira.Enabled {
		conns = append(conns, jira.New(&jira.Config{
			BaseURL:       cfg.Jira.BaseURL,
			Email:         cfg.Jira.Email,
			APIToken:      cfg.Jira.APIToken,
			ProjectKeys:   cfg.Jira.ProjectKeys,
			JQL:           cfg.Jira.JQL,
			MaxResults:    cfg.Jira.MaxResults,
			FetchComments: cfg.Jira.FetchComments,
		}))
	}

	if cfg.Confluence.Enabled {
		conns = append(conns, confluence.New(&confluence.Config{
			BaseURL:       cfg.Confluence.BaseURL,
			Email:         cfg.Confluence.Email,
			APIToken:      cfg.Confluence.APIToken,
			SpaceKeys:     cfg.Confluence.SpaceKeys,
			PageLimit:     cfg.Confluence.PageLimit,
			FetchComments: cfg.Confluence.FetchComments,
		}))
	}

	creds := &graph.Config{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
	}

	if cfg.SharePoint.Enabled {
		conns = append(conns, sharepoint.New(&sharepoint.Config{
			SiteIDs:  cfg.SharePoint.SiteIDs,
			PageSize: cfg.Graph.PageSize,
		}, creds))
	}

	if cfg.Teams.Enabled {
		conns = append(conns, teams.New(&teams.Config{
			TeamIDs:      cfg.Teams.TeamIDs,
			PageSize:     cfg.Graph.PageSize,
			FetchReplies: cfg.Teams.FetchReplies,
		}, creds))
	}

	for _, c := range conns {
		closers = append(closers, c)
	}
	return conns
}

// buildEmbedder creates the configured embedding provider.
func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "local":
		return localembed.NewEmbeddingService(cfg.Embedding.Dimensions), nil

	case "openai":
		embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
		closers = append(closers, embedder)
		return embedder, nil

	default:
		return nil, fmt.Errorf("embedding provider %q is not supported", cfg.Embedding.Provider)
	}
}

// buildStores creates the vector index and the sync state store.
func buildStores(ctx context.Context, cfg *config.Config) (driven.VectorStore, driven.SyncStateStore, error) {
	switch cfg.Index.Backend {
	case "memory":
		return memory.NewIndexStore(), memory.NewSyncStateStore(), nil

	case "sqlite":
		store, err := sqlite.NewStore(cfg.Index.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening index: %w", err)
		}
		closers = append(closers, store)
		return store.IndexStore(), store.SyncStateStore(), nil

	case "qdrant":
		index, err := qdrant.NewStore(ctx, qdrant.Config{
			Host:       cfg.Index.Host,
			Port:       cfg.Index.Port,
			UseTLS:     cfg.Index.UseTLS,
			Collection: cfg.Index.Collection,
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, nil, err
		}

		// Cursors stay local even when the index is remote.
		store, err := sqlite.NewStore(cfg.Index.Path)
		if err != nil {
			index.Close() //nolint:errcheck
			return nil, nil, fmt.Errorf("opening sync state store: %w", err)
		}
		closers = append(closers, index, store)
		return index, store.SyncStateStore(), nil

	default:
		return nil, nil, fmt.Errorf("index backend %q is not supported", cfg.Index.Backend)
	}
}

// buildLLM creates the answer model when one is enabled.
func buildLLM(cfg *config.Config) (driven.LLMService, error) {
	if !cfg.LLM.Enabled {
		return nil, nil
	}

	llm, err := openaillm.NewLLMService(openaillm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	closers = append(closers, llm)
	return llm, nil
}
