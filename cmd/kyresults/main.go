// Package main provides the kyresults command for building the county
// results tree.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kyrealign/cmd/kyresults/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
