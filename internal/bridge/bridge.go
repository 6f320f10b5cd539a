// Package bridge republishes stream events to NATS so other processes can
// follow connection health and data without holding their own sockets.
//
// Subjects are <prefix>.<instance>.<stream>.status for status transitions and
// <prefix>.<instance>.<stream>.message for data frames.
package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rickgao/tradestream/internal/connection"
)

// Message headers set on republished data frames.
const (
	HeaderStream    = "Stream-Id"
	HeaderSession   = "Session-Id"
	HeaderSeq       = "Seq"
	HeaderLatencyMs = "Latency-Ms"
	HeaderRaw       = "Raw"
)

// Publisher is the subset of *nats.Conn used by Bridge.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// Config configures a Bridge.
type Config struct {
	Prefix          string
	Instance        string
	PublishMessages bool
}

// Stats counts bridge activity.
type Stats struct {
	Published int64
	Errors    int64
}

// StatusPayload is the JSON body of a status subject.
type StatusPayload struct {
	Stream        string    `json:"stream"`
	Session       string    `json:"session,omitempty"`
	Status        string    `json:"status"`
	Code          int       `json:"code,omitempty"`
	Attempt       int       `json:"attempt,omitempty"`
	RetryInMs     int64     `json:"retry_in_ms,omitempty"`
	Terminal      bool      `json:"terminal"`
	Authenticated bool      `json:"authenticated"`
	Error         string    `json:"error,omitempty"`
	At            time.Time `json:"at"`
}

// Bridge is a connection.Recorder that republishes events to NATS.
type Bridge struct {
	pub    Publisher
	cfg    Config
	logger *slog.Logger

	published atomic.Int64
	errors    atomic.Int64
}

var _ connection.Recorder = (*Bridge)(nil)

// New creates a Bridge publishing through pub.
func New(pub Publisher, cfg Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "streams"
	}
	return &Bridge{pub: pub, cfg: cfg, logger: logger}
}

// Subject returns the subject for a stream and kind ("status" or "message").
func (b *Bridge) Subject(streamID, kind string) string {
	return strings.Join([]string{b.cfg.Prefix, token(b.cfg.Instance), token(streamID), kind}, ".")
}

// RecordStatus publishes a status transition.
func (b *Bridge) RecordStatus(ev connection.StatusEvent) {
	p := StatusPayload{
		Stream:        ev.StreamID,
		Session:       ev.SessionID,
		Status:        ev.Status.String(),
		Code:          ev.Code,
		Attempt:       ev.Attempt,
		RetryInMs:     ev.RetryIn.Milliseconds(),
		Terminal:      ev.Terminal,
		Authenticated: ev.Authenticated,
		At:            ev.At,
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}

	data, err := json.Marshal(p)
	if err != nil {
		b.fail(ev.StreamID, fmt.Errorf("marshal status: %w", err))
		return
	}
	b.publish(ev.StreamID, &nats.Msg{Subject: b.Subject(ev.StreamID, "status"), Data: data})
}

// RecordMessage republishes the raw frame when message publishing is on.
func (b *Bridge) RecordMessage(msg connection.Message) {
	if !b.cfg.PublishMessages {
		return
	}

	m := nats.NewMsg(b.Subject(msg.StreamID, "message"))
	m.Data = msg.Data
	m.Header.Set(HeaderStream, msg.StreamID)
	m.Header.Set(HeaderSession, msg.SessionID)
	m.Header.Set(HeaderSeq, strconv.FormatInt(msg.Seq, 10))
	m.Header.Set(HeaderLatencyMs, strconv.FormatInt(msg.LatencyMs, 10))
	if msg.Raw {
		m.Header.Set(HeaderRaw, "true")
	}
	b.publish(msg.StreamID, m)
}

// Stats returns publish counters.
func (b *Bridge) Stats() Stats {
	return Stats{Published: b.published.Load(), Errors: b.errors.Load()}
}

func (b *Bridge) publish(streamID string, m *nats.Msg) {
	if err := b.pub.PublishMsg(m); err != nil {
		b.fail(streamID, err)
		return
	}
	b.published.Add(1)
}

func (b *Bridge) fail(streamID string, err error) {
	b.errors.Add(1)
	b.logger.Warn("bridge publish failed", "stream", streamID, "error", err)
}

// token makes s safe as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
