package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/config"
	"github.com/domino14/kingme/replay"
)

const (
	GracefulShutdownTimeout = 20 * time.Second
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	level := zerolog.InfoLevel
	if cfg.GetBool(config.ConfigDebug) {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(output).Level(level).With().Timestamp().Logger()

	script := replay.DefaultScript()
	if path := cfg.GetString(config.ConfigReplayScript); path != "" {
		s, err := replay.LoadScript(path)
		if err != nil {
			log.Fatal().Err(err).Str("script", path).Msg("could not load script")
		}
		script = s
	}
	server := replay.NewServer(script)

	// With the nats transport selected the server answers there as well
	// as over http.
	if cfg.GetString(config.ConfigTransport) == config.TransportNATS {
		natsURL := cfg.GetString(config.ConfigNatsURL)
		prefix := cfg.GetString(config.ConfigNatsSubjectPrefix)
		nc, err := nats.Connect(natsURL, nats.Name("kingme-replayserver"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to nats")
		}
		defer nc.Drain()
		if err := server.ServeNATS(nc, prefix); err != nil {
			log.Fatal().Err(err).Msg("could not subscribe")
		}
		log.Info().Str("nats", natsURL).Str("prefix", prefix).Msg("serving-nats")
	}

	addr := cfg.GetString(config.ConfigReplayAddr)
	srv := &http.Server{Addr: addr, Handler: server}

	idleConnsClosed := make(chan struct{})
	sig := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		// We received an interrupt signal, shut down.
		log.Info().Msg("got quit signal...")
		ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)

		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Msgf("HTTP server Shutdown: %v", err)
		}
		cancel()
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", addr).Int("game-id", script.GameID).Msg("serving-http")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("")
	}
	<-idleConnsClosed
	log.Info().Msg("server gracefully shutting down")
}
