package connection

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrUnknownStream    = errors.New("unknown stream")
	ErrInvalidConfig    = errors.New("invalid stream config")
	ErrManagerClosed    = errors.New("manager closed")
	ErrNotConnected     = errors.New("not connected")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrHandshakeTimeout = errors.New("handshake timeout")
)

// Close codes used by the manager.
const (
	CloseNormal   = websocket.CloseNormalClosure   // 1000, explicit close
	CloseAbnormal = websocket.CloseAbnormalClosure // 1006, no close frame received
)

// MaxBackoff caps the delay between reconnect attempts.
const MaxBackoff = 30 * time.Second

// Status is the lifecycle state of a stream.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StreamConfig configures a single stream.
type StreamConfig struct {
	URL       string      // ws:// or wss:// endpoint (required)
	Protocols []string    // Optional sub-protocols
	Header    http.Header // Optional handshake headers

	ReconnectInterval    time.Duration // Base backoff interval (default 5s)
	MaxReconnectAttempts int           // Default 10, negative disables reconnect
	HeartbeatInterval    time.Duration // Default 30s, negative disables heartbeats
	DisableHeartbeat     bool          // Never send keep-alive frames, whatever the interval
	HandshakeTimeout     time.Duration // Bounds dial and auth acknowledgment (default 10s)

	Auth    Authenticator // nil = no authentication handshake
	Decoder Decoder       // nil = JSON with raw fallback
}

// Defaults applied to zero-valued StreamConfig fields.
const (
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
)

func (c StreamConfig) withDefaults() StreamConfig {
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Decoder == nil {
		c.Decoder = JSONDecoder{}
	}
	c.Protocols = append([]string(nil), c.Protocols...)
	return c
}

// Authenticator performs a provider authentication handshake after the
// socket opens.
type Authenticator interface {
	// AuthFrame returns the frame sent as soon as the socket opens.
	AuthFrame() ControlFrame

	// CheckAuth inspects a decoded inbound payload while the stream awaits
	// acknowledgment. It returns done=true once the provider accepted the
	// credentials, or a non-nil error when the provider rejected them.
	CheckAuth(payload any) (done bool, err error)
}

// Decoder turns an inbound frame into a structured payload.
type Decoder interface {
	Decode(data []byte) (any, error)
}

// ControlFrame is an outbound control message.
type ControlFrame struct {
	Action    string   `json:"action"` // "auth", "subscribe", "unsubscribe", "ping"
	Key       string   `json:"key,omitempty"`
	Secret    string   `json:"secret,omitempty"`
	Trades    []string `json:"trades,omitempty"`
	Quotes    []string `json:"quotes,omitempty"`
	Bars      []string `json:"bars,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"` // Unix milliseconds (ping only)
}

// Topics is a set of symbols partitioned by message category.
type Topics struct {
	Trades []string `json:"trades,omitempty"`
	Quotes []string `json:"quotes,omitempty"`
	Bars   []string `json:"bars,omitempty"`
}

// Empty reports whether no category holds a symbol.
func (t Topics) Empty() bool {
	return len(t.Trades) == 0 && len(t.Quotes) == 0 && len(t.Bars) == 0
}

func (t Topics) frame(action string) ControlFrame {
	return ControlFrame{
		Action: action,
		Trades: t.Trades,
		Quotes: t.Quotes,
		Bars:   t.Bars,
	}
}

// Message is an inbound frame delivered to message observers.
type Message struct {
	StreamID   string
	SessionID  string    // Transport session the frame arrived on
	Seq        int64     // Per-stream message counter
	Data       []byte    // Raw frame bytes
	Payload    any       // Decoded payload, or the raw frame as a string when decoding failed
	Raw        bool      // True if decoding failed
	LatencyMs  int64     // Latest latency estimate for the stream
	ReceivedAt time.Time // Local receive time
}

// StatusEvent is a status transition delivered to status observers.
type StatusEvent struct {
	StreamID      string
	SessionID     string
	Status        Status
	Err           error         // Set for StatusError
	Code          int           // Close code, for disconnected
	Attempt       int           // Reconnect attempt number
	RetryIn       time.Duration // Scheduled reconnect delay, 0 if none
	Terminal      bool          // No reconnect will follow without Reconnect()
	Authenticated bool          // Provider acknowledged the credentials
	At            time.Time
}

// Snapshot is a point-in-time copy of a stream's registry entry.
type Snapshot struct {
	ID                   string        `json:"id"`
	URL                  string        `json:"url"`
	Protocols            []string      `json:"protocols,omitempty"`
	Status               Status        `json:"status"`
	SessionID            string        `json:"session_id,omitempty"`
	Authenticated        bool          `json:"authenticated"`
	ReconnectAttempts    int           `json:"reconnect_attempts"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`
	ReconnectInterval    time.Duration `json:"reconnect_interval"`
	ReconnectPending     bool          `json:"reconnect_pending"`
	MessageCount         int64         `json:"message_count"`
	LastMessageAt        time.Time     `json:"last_message_at"`
	LatencyMs            int64         `json:"latency_ms"`
	Topics               Topics        `json:"topics"`
	LastError            string        `json:"last_error,omitempty"`
}

// Recorder receives every event emitted for every stream, before observers.
type Recorder interface {
	RecordStatus(ev StatusEvent)
	RecordMessage(msg Message)
}
