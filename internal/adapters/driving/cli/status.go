package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
)

var (
	statusJSON  bool
	statusCheck bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index size and per-source sync state",
	Long: `Reports how many chunks the vector index holds and when each source
was last synchronised. With --check, also pings the configured
embedding and answer providers.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	statusCmd.Flags().BoolVar(&statusCheck, "check", false,
		"ping the embedding and answer providers")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	status, err := ingestService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		if err := outputStatusJSON(cmd, status); err != nil {
			return err
		}
	} else {
		cmd.Printf("Index: %d chunk(s)\n", status.ChunkCount)
		if len(status.Sources) > 0 {
			cmd.Println("Sources:")
			for _, state := range status.Sources {
				cmd.Printf("  %-11s %s\n", state.Source, describeSyncState(state))
			}
		}
	}

	if statusCheck {
		return runProviderChecks(cmd)
	}
	return nil
}

// describeSyncState renders one source's sync position.
func describeSyncState(state domain.SyncState) string {
	if state.LastSync.IsZero() {
		return "never synced"
	}
	return "last sync " + state.LastSync.Format(time.RFC3339)
}

type statusSourceOutput struct {
	Source   string `json:"source"`
	Cursor   string `json:"cursor,omitempty"`
	LastSync string `json:"last_sync,omitempty"`
}

type statusOutput struct {
	ChunkCount int64                `json:"chunk_count"`
	Sources    []statusSourceOutput `json:"sources"`
}

func outputStatusJSON(cmd *cobra.Command, status *driving.IngestStatus) error {
	out := statusOutput{
		ChunkCount: status.ChunkCount,
		Sources:    make([]statusSourceOutput, len(status.Sources)),
	}
	for i, state := range status.Sources {
		out.Sources[i] = statusSourceOutput{
			Source: state.Source.String(),
			Cursor: state.Cursor,
		}
		if !state.LastSync.IsZero() {
			out.Sources[i].LastSync = state.LastSync.Format(time.RFC3339)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling status: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// runProviderChecks pings the configured providers and reports every
// failure instead of stopping at the first.
func runProviderChecks(cmd *cobra.Command) error {
	ctx := cmd.Context()
	failed := false

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			failed = true
			cmd.Printf("  %-11s unreachable: %v\n", name, err)
			return
		}
		cmd.Printf("  %-11s ok\n", name)
	}

	cmd.Println("Providers:")
	switch {
	case embeddingBackend == nil && llmBackend == nil:
		cmd.Println("  none configured")
	default:
		if embeddingBackend != nil {
			check("embedding", embeddingBackend.Ping)
		}
		if llmBackend != nil {
			check("llm", llmBackend.Ping)
		}
	}

	if failed {
		return errors.New("provider check failed")
	}
	return nil
}
