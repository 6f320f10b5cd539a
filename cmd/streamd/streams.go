package main

import (
	"net/http"

	"github.com/rickgao/tradestream/internal/config"
	"github.com/rickgao/tradestream/internal/connection"
)

// connectStream opens a configured stream and queues its initial topics.
func connectStream(manager *connection.Manager, sc config.StreamConfig) error {
	if err := manager.Connect(sc.ID, streamConfig(sc)); err != nil {
		return err
	}
	return manager.Subscribe(sc.ID, topics(sc.Subscribe))
}

// streamConfig maps a config stream (defaults already inherited) to the
// manager's stream settings.
func streamConfig(sc config.StreamConfig) connection.StreamConfig {
	var header http.Header
	if len(sc.Headers) > 0 {
		header = make(http.Header, len(sc.Headers))
		for k, v := range sc.Headers {
			header.Set(k, v)
		}
	}
	return connection.StreamConfig{
		URL:                  sc.URL,
		Protocols:            sc.Protocols,
		Header:               header,
		ReconnectInterval:    sc.ReconnectInterval,
		MaxReconnectAttempts: sc.MaxReconnectAttempts,
		HeartbeatInterval:    sc.HeartbeatInterval,
		DisableHeartbeat:     sc.DisableHeartbeat,
		HandshakeTimeout:     sc.HandshakeTimeout,
	}
}

func timing(d config.StreamDefaults) connection.StreamConfig {
	return connection.StreamConfig{
		ReconnectInterval:    d.ReconnectInterval,
		MaxReconnectAttempts: d.MaxReconnectAttempts,
		HeartbeatInterval:    d.HeartbeatInterval,
		DisableHeartbeat:     d.DisableHeartbeat,
		HandshakeTimeout:     d.HandshakeTimeout,
	}
}

func topics(t config.TopicsConfig) connection.Topics {
	return connection.Topics{Trades: t.Trades, Quotes: t.Quotes, Bars: t.Bars}
}
