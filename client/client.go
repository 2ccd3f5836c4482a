// Package client wires a configured transport, journal and synchronizer
// together for the binaries.
package client

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/config"
	"github.com/domino14/kingme/journal"
	"github.com/domino14/kingme/syncer"
	"github.com/domino14/kingme/transport"
)

// Client is everything a front end needs. HTTP is nil over NATS, since
// the lobby is an HTTP-only surface; Journal is nil when disabled.
type Client struct {
	Sync    *syncer.Synchronizer
	HTTP    *transport.HTTPClient
	Journal *journal.Journal
	Token   string

	nats *transport.NATSClient
}

// New builds a client from cfg. A player token is generated when none is
// configured.
func New(cfg *config.Config) (*Client, error) {
	c := &Client{Token: cfg.GetString(config.ConfigPlayerToken)}
	if c.Token == "" {
		c.Token = uuid.NewString()
		log.Info().Msg("generated-player-token")
	}

	var tr transport.Transport
	timeout := cfg.GetDuration(config.ConfigRequestTimeout)
	switch cfg.GetString(config.ConfigTransport) {
	case config.TransportHTTP:
		h, err := transport.NewHTTPClient(cfg.GetString(config.ConfigServerURL), timeout,
			uint(cfg.GetInt(config.ConfigRetryAttempts)))
		if err != nil {
			return nil, err
		}
		c.HTTP = h
		tr = h
	case config.TransportNATS:
		n, err := transport.DialNATS(cfg.GetString(config.ConfigNatsURL),
			cfg.GetString(config.ConfigNatsSubjectPrefix), timeout)
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		c.nats = n
		tr = n
	default:
		return nil, errors.New("unknown transport " + cfg.GetString(config.ConfigTransport))
	}

	c.Sync = syncer.New(tr, cfg.GetInt(config.ConfigGameID), c.Token)
	c.Sync.SetInterval(cfg.GetDuration(config.ConfigPollInterval))
	c.Sync.SetBackstopEvery(cfg.GetInt(config.ConfigPollBackstopEvery))

	if path := cfg.GetString(config.ConfigJournalPath); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		c.Journal = j
		c.Sync.SetRecorder(j)
	}
	log.Info().Str("transport", cfg.GetString(config.ConfigTransport)).
		Int("game-id", cfg.GetInt(config.ConfigGameID)).Msg("client-ready")
	return c, nil
}

func (c *Client) Close() {
	if c.nats != nil {
		if err := c.nats.Close(); err != nil {
			log.Err(err).Msg("closing-nats")
		}
	}
	if c.Journal != nil {
		if err := c.Journal.Close(); err != nil {
			log.Err(err).Msg("closing-journal")
		}
	}
}
