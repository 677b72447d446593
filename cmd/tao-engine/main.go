// Package main provides the command-line entry point of the TAO dosing engine.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tao-dosing-engine/internal/cli"
)

func main() {
	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, cancelling...")
		cancel()
	}()

	app := cli.New(os.Stdout, os.Stderr, os.Stdin)
	if err := app.Run(ctx, os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Fatalf("tao-engine: %v", err)
	}
}
