// cmd/autoscraper/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kameel77/auto-scraper/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Cancelling the context lets the runner finish the current listing
	// and still print its summary
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			log.Warn().Msg("Interrupt received, shutting down gracefully...")
		case <-finished:
		}
	}()

	return cli.Execute(ctx)
}
