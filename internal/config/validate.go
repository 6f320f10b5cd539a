package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rickgao/tradestream/internal/marketdata"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	seen := make(map[string]bool)
	for i, s := range c.Streams {
		prefix := fmt.Sprintf("streams[%d]", i)
		if s.ID == "" {
			return fmt.Errorf("%s.id is required", prefix)
		}
		if seen[s.ID] {
			return fmt.Errorf("%s.id %q is duplicated", prefix, s.ID)
		}
		seen[s.ID] = true

		if err := validateWebsocketURL(prefix+".url", s.URL); err != nil {
			return err
		}
		if s.ReconnectInterval < 0 {
			return fmt.Errorf("%s.reconnect_interval must be >= 0", prefix)
		}
	}

	if c.MarketData.Enabled {
		if seen[c.MarketData.StreamID] {
			return fmt.Errorf("market_data.stream_id %q collides with a configured stream", c.MarketData.StreamID)
		}
		if _, err := marketdata.ParseFeed(c.MarketData.Feed); err != nil {
			return fmt.Errorf("market_data.feed: %w", err)
		}
		if c.MarketData.BaseURL != "" {
			if err := validateWebsocketURL("market_data.base_url", c.MarketData.BaseURL); err != nil {
				return err
			}
		}
	}

	switch c.Journal.Driver {
	case "":
	case "postgres":
		if err := c.Journal.Postgres.validate("journal.postgres"); err != nil {
			return err
		}
	case "sqlite":
		if c.Journal.SQLitePath == "" {
			return errors.New("journal.sqlite_path is required")
		}
	default:
		return fmt.Errorf("journal.driver must be postgres or sqlite, got %q", c.Journal.Driver)
	}
	if c.Journal.Driver != "" {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Bridge.NATSURL != "" {
		if _, err := url.Parse(c.Bridge.NATSURL); err != nil {
			return fmt.Errorf("bridge.nats_url: %w", err)
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}

func validateWebsocketURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%s must use ws:// or wss://, got %q", field, raw)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
