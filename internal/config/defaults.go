package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultLogMaxSizeMB         = 10
	DefaultLogMaxBackups        = 3
	DefaultLogMaxAgeDays        = 28
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultMarketDataStreamID   = "market"
	DefaultFeed                 = "iex"
	DefaultSQLitePath           = "journal.db"
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 10000
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultSubjectPrefix        = "streams"
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

func (c *Config) applyDefaults() {
	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Stream defaults
	if c.Defaults.ReconnectInterval == 0 {
		c.Defaults.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Defaults.MaxReconnectAttempts == 0 {
		c.Defaults.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Defaults.HeartbeatInterval == 0 {
		c.Defaults.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Defaults.HandshakeTimeout == 0 {
		c.Defaults.HandshakeTimeout = DefaultHandshakeTimeout
	}
	for i := range c.Streams {
		c.Defaults.inherit(&c.Streams[i])
	}

	// Market data defaults
	if c.MarketData.StreamID == "" {
		c.MarketData.StreamID = DefaultMarketDataStreamID
	}
	if c.MarketData.Feed == "" {
		c.MarketData.Feed = DefaultFeed
	}

	// Journal defaults
	if c.Journal.SQLitePath == "" {
		c.Journal.SQLitePath = DefaultSQLitePath
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Journal.Postgres)

	// Bridge defaults
	if c.Bridge.SubjectPrefix == "" {
		c.Bridge.SubjectPrefix = DefaultSubjectPrefix
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// inherit fills zero timing fields of s.
func (d StreamDefaults) inherit(s *StreamConfig) {
	if s.ReconnectInterval == 0 {
		s.ReconnectInterval = d.ReconnectInterval
	}
	if s.MaxReconnectAttempts == 0 {
		s.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if s.HeartbeatInterval == 0 {
		s.HeartbeatInterval = d.HeartbeatInterval
	}
	s.DisableHeartbeat = s.DisableHeartbeat || d.DisableHeartbeat
	if s.HandshakeTimeout == 0 {
		s.HandshakeTimeout = d.HandshakeTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
