package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/quarry-labs/quarry-cli/internal/adapters/driving/cli"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cobra prints the error itself; the exit code is all that is left to do.
	if err := cli.Execute(ctx, version); err != nil {
		os.Exit(1)
	}
}
