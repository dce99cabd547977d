// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/openztcc/openzt-eval/cmd"
)

// main is the entry point for the openzt-eval application.
func main() {
	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM)
	// so in-flight cargo invocations are killed on shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.ExecuteContext(ctx)
}
