package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigServerURL         = "server-url"
	ConfigTransport         = "transport"
	ConfigNatsURL           = "nats-url"
	ConfigNatsSubjectPrefix = "nats-subject-prefix"
	ConfigGameID            = "game-id"
	ConfigPlayerToken       = "player-token"
	ConfigPlayerName        = "player-name"
	ConfigPollInterval      = "poll-interval"
	ConfigPollBackstopEvery = "poll-backstop-every"
	ConfigRequestTimeout    = "request-timeout"
	ConfigRetryAttempts     = "retry-attempts"
	ConfigJournalPath       = "journal-path"
	ConfigDebug             = "debug"
	ConfigReplayAddr        = "replay-addr"
	ConfigReplayScript      = "replay-script"
	ConfigFile              = "config"
)

// Transport kinds.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

type Config struct {
	viper.Viper
}

// Load reads flags from args, then KINGME_ environment variables, then an
// optional config file given with --config. Flags win over the
// environment, which wins over the file.
func (c *Config) Load(args []string) error {
	c.Viper = *viper.New()

	fs := pflag.NewFlagSet("kingme", pflag.ContinueOnError)
	fs.String(ConfigServerURL, "http://localhost:8098", "base URL of the checkers server")
	fs.String(ConfigTransport, TransportHTTP, "how to reach the server: http or nats")
	fs.String(ConfigNatsURL, "nats://127.0.0.1:4222", "the NATS server, when transport is nats")
	fs.String(ConfigNatsSubjectPrefix, "checkers", "prefix of the NATS request subjects")
	fs.Int(ConfigGameID, 0, "the game to play")
	fs.String(ConfigPlayerToken, "", "the player's session token; generated when empty")
	fs.String(ConfigPlayerName, "", "the name to join games with")
	fs.Duration(ConfigPollInterval, 2*time.Second, "how often to poll the game status")
	fs.Int(ConfigPollBackstopEvery, 15, "poll unconditionally every this many ticks")
	fs.Duration(ConfigRequestTimeout, 5*time.Second, "timeout of a single server request")
	fs.Int(ConfigRetryAttempts, 3, "attempts per server request")
	fs.String(ConfigJournalPath, "", "sqlite file to journal moves to; empty disables it")
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigReplayAddr, ":8098", "listen address of the replay server")
	fs.String(ConfigReplayScript, "", "YAML game script for the replay server; the built-in opening when empty")
	fs.String(ConfigFile, "", "an optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetEnvPrefix("kingme")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if path := c.GetString(ConfigFile); path != "" {
		c.SetConfigFile(path)
		if err := c.ReadInConfig(); err != nil {
			return err
		}
	}
	return c.Validate()
}

// Validate checks values that the rest of the program relies on.
func (c *Config) Validate() error {
	switch c.GetString(ConfigTransport) {
	case TransportHTTP, TransportNATS:
	default:
		return errors.New("transport must be http or nats")
	}
	if c.GetDuration(ConfigPollInterval) <= 0 {
		return errors.New("poll-interval must be positive")
	}
	if c.GetInt(ConfigRetryAttempts) < 1 {
		return errors.New("retry-attempts must be at least 1")
	}
	return nil
}

// SanitizedSettings returns the settings with secrets removed, for logs.
func (c *Config) SanitizedSettings() map[string]any {
	s := c.AllSettings()
	delete(s, ConfigPlayerToken)
	return s
}
