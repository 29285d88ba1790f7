// Command platemap analyzes Opentrons dispense protocols, enumerates the
// sulfonamide library and reconciles both into the authoritative plate map.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/platemap/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

//Personal.AI order the ending
