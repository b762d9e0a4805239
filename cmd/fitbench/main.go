// Command fitbench fits anchored growth curves to the benchmark catalog
// offline and checks that the published table is current.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"takeoverbench/internal/config"
)

const (
	exitStale = 1
	exitError = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(config.Load())
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, errStale) {
			os.Exit(exitStale)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}
