package config

import "time"

// Config is the root configuration for a streamd instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Logging    LoggingConfig    `yaml:"logging"`
	Defaults   StreamDefaults   `yaml:"defaults"`
	Streams    []StreamConfig   `yaml:"streams"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Journal    JournalConfig    `yaml:"journal"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // Optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// StreamDefaults are inherited by every stream.
type StreamDefaults struct {
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // Negative disables reconnect
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`     // Negative disables heartbeats
	DisableHeartbeat     bool          `yaml:"disable_heartbeat"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
}

// StreamConfig declares one generic stream opened at startup.
type StreamConfig struct {
	ID        string            `yaml:"id"`
	URL       string            `yaml:"url"`
	Protocols []string          `yaml:"protocols"`
	Headers   map[string]string `yaml:"headers"`
	Subscribe TopicsConfig      `yaml:"subscribe"`

	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	DisableHeartbeat     bool          `yaml:"disable_heartbeat"` // Also set when the defaults disable it
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
}

// TopicsConfig lists symbols per category.
type TopicsConfig struct {
	Trades []string `yaml:"trades"`
	Quotes []string `yaml:"quotes"`
	Bars   []string `yaml:"bars"`
}

// MarketDataConfig configures the authenticated market-data stream.
type MarketDataConfig struct {
	Enabled  bool   `yaml:"enabled"`
	StreamID string `yaml:"stream_id"`
	Feed     string `yaml:"feed"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`      // Falls back to APCA_API_KEY_ID
	Secret   string `yaml:"secret"`   // Falls back to APCA_API_SECRET_KEY
	EnvFile  string `yaml:"env_file"` // Optional .env file with credentials

	TopicsConfig `yaml:",inline"`
}

// JournalConfig configures the status-transition journal.
type JournalConfig struct {
	Driver        string        `yaml:"driver"` // "", "postgres" or "sqlite"
	SQLitePath    string        `yaml:"sqlite_path"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Postgres      DBConfig      `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// BridgeConfig configures NATS republishing. An empty URL disables it.
type BridgeConfig struct {
	NATSURL         string `yaml:"nats_url"`
	SubjectPrefix   string `yaml:"subject_prefix"`
	PublishMessages bool   `yaml:"publish_messages"` // Also republish data frames, not only status
}

// MetricsConfig holds Prometheus metrics and health endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
