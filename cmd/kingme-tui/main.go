package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/kingme/client"
	"github.com/domino14/kingme/config"
	"github.com/domino14/kingme/tui"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	c, err := client.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not start client:", err)
		os.Exit(1)
	}
	defer c.Close()

	var lobby tui.Lobby
	if c.HTTP != nil {
		lobby = c.HTTP
	}
	// NewTUIApp takes over logging, so it comes before the synchronizer
	// starts.
	app := tui.NewTUIApp(cfg, c.Sync, lobby, c.Token)
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	g.Go(func() error {
		return c.Sync.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return app.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "exited with error:", err)
		os.Exit(1)
	}
}
