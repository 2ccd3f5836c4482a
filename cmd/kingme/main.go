package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/kingme/client"
	"github.com/domino14/kingme/config"
	"github.com/domino14/kingme/shell"
)

var (
	GitVersion string
)

//go:embed kingme.txt
var kingmebanner string

func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	var logger zerolog.Logger
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		logger = zerolog.New(output).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

func main() {
	fmt.Println(kingmebanner)
	fmt.Println(GitVersion)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())

	c, err := client.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not start client")
	}
	defer c.Close()

	// The lobby and history are optional; keep the interfaces nil when
	// their backing value is.
	var lobby shell.Lobby
	if c.HTTP != nil {
		lobby = c.HTTP
	}
	var history shell.History
	if c.Journal != nil {
		history = c.Journal
	}
	sc := shell.NewShellController(cfg, c.Sync, lobby, history, c.Token)
	c.Sync.OnChange(sc.Announce)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	g.Go(func() error {
		return c.Sync.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return sc.Loop(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		sc.Cleanup()
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Err(err).Msg("exited with error")
	}
	log.Info().Msg("client shutting down")
}
