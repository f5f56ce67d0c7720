package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

var (
	ingestSources []string
	ingestFull    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, chunk, embed, and index configured sources",
	Long: `Runs the ingestion pipeline: fetch records from each enabled source,
normalise them to plain text, chunk, embed, and upsert into the
vector index.

Repeat runs are incremental. Connectors resume from their stored
cursor, and unchanged chunks are skipped by content hash, so only new
and edited content costs embedding calls. Use --full to discard the
cursors and re-fetch everything.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestSources, "source", "s", nil,
		"ingest only the given sources (jira, confluence, sharepoint, teams)")
	ingestCmd.Flags().BoolVar(&ingestFull, "full", false,
		"ignore stored cursors and re-fetch everything")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	sources, err := parseSources(ingestSources)
	if err != nil {
		return err
	}

	if ingestFull {
		if err := ingestService.Reset(ctx, sources); err != nil {
			return fmt.Errorf("resetting sync state: %w", err)
		}
	}

	var summary *domain.RunSummary
	if len(sources) == 0 {
		cmd.Println("Ingesting all configured sources...")
		summary, err = ingestService.IngestAll(ctx)
	} else {
		summary, err = ingestSelected(cmd, sources)
	}

	if summary != nil {
		printRunSummary(cmd, summary)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

// ingestSelected runs the pipeline for the chosen sources one at a time
// and folds the results into a single summary.
func ingestSelected(cmd *cobra.Command, sources []domain.SourceType) (*domain.RunSummary, error) {
	total := &domain.RunSummary{}
	for _, source := range sources {
		cmd.Printf("Ingesting %s...\n", source)
		summary, err := ingestService.IngestSource(cmd.Context(), source)
		if summary != nil {
			mergeSummary(total, summary)
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// mergeSummary folds one run summary into another.
func mergeSummary(total, summary *domain.RunSummary) {
	total.New += summary.New
	total.Updated += summary.Updated
	total.Skipped += summary.Skipped
	total.Failed += summary.Failed
	total.Duration += summary.Duration
	total.Reports = append(total.Reports, summary.Reports...)
}

// printRunSummary renders the per-source breakdown and the final tally.
func printRunSummary(cmd *cobra.Command, summary *domain.RunSummary) {
	for _, report := range summary.Reports {
		line := fmt.Sprintf("  %-11s %d records, %d chunks: %d new, %d updated, %d skipped, %d failed",
			report.Source, report.Records, report.Chunks,
			report.New, report.Updated, report.Skipped, report.Failed)
		if report.Malformed > 0 {
			line += fmt.Sprintf(", %d malformed", report.Malformed)
		}
		cmd.Println(line)
		if report.Err != nil {
			cmd.Printf("  %-11s aborted: %v\n", report.Source, report.Err)
		}
	}
	cmd.Printf("Done in %s: %s\n", summary.Duration.Round(time.Millisecond), summary)
}

// parseSources converts --source flag values into source types.
func parseSources(names []string) ([]domain.SourceType, error) {
	sources := make([]domain.SourceType, 0, len(names))
	for _, name := range names {
		source, err := domain.ParseSource(name)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		sources = append(sources, source)
	}
	return sources, nil
}
