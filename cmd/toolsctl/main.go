/*
Package main is the entry point for toolsctl.

Usage:

	toolsctl [command]

Available Commands:

	seed        Upsert catalogue entries from a JSON file
	count       Print the number of stored tools
	search      Search and rank the catalogue
	favorites   Manage the device-local favourites list
	migrate     Apply pending database migrations
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Clark-Hu/ai-tool-finder/internal/cli"
)

// Set via ldflags during build.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
