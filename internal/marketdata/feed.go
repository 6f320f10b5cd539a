package marketdata

import (
	"fmt"
	"strings"
)

// BaseURL is the market-data streaming host.
const BaseURL = "wss://stream.data.alpaca.markets"

// Feed selects a market-data source.
type Feed string

const (
	FeedIEX    Feed = "iex"
	FeedSIP    Feed = "sip"
	FeedCrypto Feed = "crypto"
	FeedTest   Feed = "test"
)

// TestSymbol is the only symbol published on the test feed.
const TestSymbol = "FAKEPACA"

// URL returns the stream endpoint for the feed.
func (f Feed) URL() string {
	return f.Endpoint(BaseURL)
}

// Endpoint returns the feed path joined to base.
func (f Feed) Endpoint(base string) string {
	base = strings.TrimRight(base, "/")
	switch f {
	case FeedCrypto:
		return base + "/v1beta3/crypto/us"
	default:
		return base + "/v2/" + string(f)
	}
}

func (f Feed) String() string {
	return string(f)
}

// ParseFeed validates a feed name.
func ParseFeed(s string) (Feed, error) {
	switch f := Feed(strings.ToLower(strings.TrimSpace(s))); f {
	case FeedIEX, FeedSIP, FeedCrypto, FeedTest:
		return f, nil
	default:
		return "", fmt.Errorf("unknown feed %q (want iex, sip, crypto or test)", s)
	}
}
