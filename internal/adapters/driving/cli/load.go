package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarry-labs/quarry-cli/internal/spool"
)

var loadWatch bool

var loadCmd = &cobra.Command{
	Use:   "load [file...]",
	Short: "Index previously extracted NDJSON records",
	Long: `Replays record dumps produced by 'quarry extract' through the
normalise-chunk-embed-index pipeline.

With file arguments the named dumps are loaded in order; '-' or no
arguments reads from stdin. With --watch, quarry first loads every
.ndjson file already in the spool directory, then keeps watching it,
loading new dumps as they settle and renaming them afterwards.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVarP(&loadWatch, "watch", "w", false,
		"watch a spool directory for dumps (first argument, or ingest.spool_dir)")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if loadWatch {
		dir := ""
		switch {
		case len(args) > 0:
			dir = args[0]
		case appConfig != nil:
			dir = appConfig.Ingest.SpoolDir
		}
		if dir == "" {
			return errors.New("no spool directory: pass one or set ingest.spool_dir")
		}
		return watchSpool(cmd, dir)
	}

	if len(args) == 0 {
		args = []string{"-"}
	}
	for _, path := range args {
		if err := loadOne(cmd, path); err != nil {
			return err
		}
	}
	return nil
}

// loadOne replays a single dump ('-' reads stdin).
func loadOne(cmd *cobra.Command, path string) error {
	var r io.Reader
	if path == "-" {
		cmd.Println("Loading from stdin...")
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		cmd.Printf("Loading %s...\n", path)
		r = f
	}

	summary, err := ingestService.Load(cmd.Context(), r)
	if summary != nil {
		printRunSummary(cmd, summary)
	}
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	return nil
}

// watchSpool clears the backlog, then loads new dumps as they settle.
// A failed dump is reported and left in place; watching continues.
func watchSpool(cmd *cobra.Command, dir string) error {
	backlog, err := spool.ListPending(dir)
	if err != nil {
		return err
	}
	for _, path := range backlog {
		if err := loadSpooled(cmd, path); err != nil {
			cmd.PrintErrf("Load %s failed: %v\n", path, err)
		}
	}

	watcher, err := spool.NewWatcher(dir, spool.DefaultSettle)
	if err != nil {
		return err
	}
	defer watcher.Close()

	paths, err := watcher.Watch(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s for record dumps (Ctrl-C to stop)...\n", dir)
	for path := range paths {
		if err := loadSpooled(cmd, path); err != nil {
			cmd.PrintErrf("Load %s failed: %v\n", path, err)
		}
	}
	return nil
}

// loadSpooled replays one settled dump and renames it out of the way.
func loadSpooled(cmd *cobra.Command, path string) error {
	if err := loadOne(cmd, path); err != nil {
		return err
	}
	if err := spool.MarkLoaded(path); err != nil {
		return fmt.Errorf("marking %s loaded: %w", path, err)
	}
	return nil
}
