// Package cli implements the quarry command-line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
	"github.com/quarry-labs/quarry-cli/internal/logger"
)

// version is stamped by Execute; "dev" outside a release build.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

// Services used by the commands. Execute wires them from configuration;
// tests inject fakes directly.
var (
	ingestService driving.IngestOrchestrator
	askService    driving.AskService
)

// wireOnRun gates configuration loading. Execute enables it, so building
// commands in tests never touches the filesystem or the network.
var wireOnRun bool

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Extract, index, and query a company knowledge base",
	Long: `Quarry ingests documents from Jira, Confluence, SharePoint, and
Microsoft Teams into a vector index and answers questions against it
with source attribution.

Records flow through a fixed pipeline: fetch, normalise to plain text,
chunk, embed, upsert. Re-runs are incremental twice over: connectors
resume from per-source cursors, and unchanged chunks are skipped by
content hash before any embedding call is made.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"config file (default ~/.quarry/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose logging to stderr")
}

// Execute wires the application from configuration and runs the root
// command. The passed version is what `quarry version` reports.
func Execute(ctx context.Context, v string) error {
	version = v
	wireOnRun = true
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// initServices builds the service graph once flags are parsed. Commands
// that never touch a service skip wiring, so `quarry version` works
// without a config file.
func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if !wireOnRun || !needsServices(cmd) {
		return nil
	}
	if ingestService != nil || askService != nil {
		return nil
	}
	return wireServices(cmd.Context())
}

// needsServices reports whether the command requires the wired pipeline.
func needsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion",
		cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return false
	}
	if cmd.Parent() != nil && cmd.Parent().Name() == "completion" {
		return false
	}
	return true
}
