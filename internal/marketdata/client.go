package marketdata

import (
	"errors"
	"log/slog"

	"github.com/rickgao/tradestream/internal/connection"
)

// ClientConfig configures a market-data Client.
type ClientConfig struct {
	Key    string
	Secret string

	// BaseURL overrides the streaming host (default BaseURL).
	BaseURL string

	// Stream carries timing settings for every stream the client opens.
	// URL, Auth and Decoder are set by Connect.
	Stream connection.StreamConfig
}

// Client opens market-data streams on a Manager and delivers typed frames.
type Client struct {
	cfg     ClientConfig
	manager *connection.Manager
	decoder *Decoder
	logger  *slog.Logger
}

// NewClient creates a new Client.
func NewClient(manager *connection.Manager, cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	return &Client{
		cfg:     cfg,
		manager: manager,
		decoder: NewDecoder(logger),
		logger:  logger,
	}
}

// Connect opens (or replaces) stream id on the given feed. Streams
// authenticate when the client has credentials.
func (c *Client) Connect(id string, feed Feed) error {
	if _, err := ParseFeed(string(feed)); err != nil {
		return err
	}
	if (c.cfg.Key == "") != (c.cfg.Secret == "") {
		return errors.New("market data credentials need both key and secret")
	}

	sc := c.cfg.Stream
	sc.URL = feed.Endpoint(c.cfg.BaseURL)
	sc.Decoder = c.decoder
	// The provider has no ping action and answers unknown ones with errors.
	sc.DisableHeartbeat = true
	if c.cfg.Key != "" {
		sc.Auth = Authenticator{Key: c.cfg.Key, Secret: c.cfg.Secret}
	}

	c.logger.Info("connecting market data stream", "stream", id, "feed", feed, "url", sc.URL)
	return c.manager.Connect(id, sc)
}

// Subscribe adds symbols to the stream.
func (c *Client) Subscribe(id string, t connection.Topics) error {
	return c.manager.Subscribe(id, t)
}

// Unsubscribe removes symbols from the stream.
func (c *Client) Unsubscribe(id string, t connection.Topics) error {
	return c.manager.Unsubscribe(id, t)
}

// OnTrade registers a trade callback and returns its unregister function.
func (c *Client) OnTrade(id string, fn func(Trade)) func() {
	return c.onFrame(id, func(f Frame) {
		if v, ok := f.(Trade); ok {
			fn(v)
		}
	})
}

// OnQuote registers a quote callback.
func (c *Client) OnQuote(id string, fn func(Quote)) func() {
	return c.onFrame(id, func(f Frame) {
		if v, ok := f.(Quote); ok {
			fn(v)
		}
	})
}

// OnBar registers a bar callback.
func (c *Client) OnBar(id string, fn func(Bar)) func() {
	return c.onFrame(id, func(f Frame) {
		if v, ok := f.(Bar); ok {
			fn(v)
		}
	})
}

// OnError registers a callback for provider error frames.
func (c *Client) OnError(id string, fn func(*ProviderError)) func() {
	return c.onFrame(id, func(f Frame) {
		if v, ok := f.(Error); ok {
			fn(&ProviderError{Code: v.Code, Msg: v.Msg})
		}
	})
}

// OnStatus registers a status callback.
func (c *Client) OnStatus(id string, fn func(connection.StatusEvent)) func() {
	return c.manager.OnStatus(id, fn)
}

// DecoderStats returns decoder counters across all streams.
func (c *Client) DecoderStats() DecoderStats {
	return c.decoder.Stats()
}

func (c *Client) onFrame(id string, fn func(Frame)) func() {
	return c.manager.OnMessage(id, func(msg connection.Message) {
		frames, ok := msg.Payload.(Frames)
		if !ok {
			return
		}
		for _, f := range frames {
			fn(f)
		}
	})
}
