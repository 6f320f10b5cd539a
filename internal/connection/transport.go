package connection

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one physical streaming socket.
type Transport interface {
	// Read blocks until the next data frame arrives. A closed socket is
	// reported as *websocket.CloseError when a close frame was received.
	Read() ([]byte, error)

	// Write sends a single text frame.
	Write(data []byte) error

	// Close sends a close frame with the given code and releases the socket.
	Close(code int, reason string) error

	// Subprotocol returns the negotiated sub-protocol.
	Subprotocol() string
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context, url string, protocols []string, header http.Header) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string, protocols []string, header http.Header) (Transport, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, url string, protocols []string, header http.Header) (Transport, error) {
	return f(ctx, url, protocols, header)
}

// WebsocketDialer dials gorilla/websocket connections.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration // Upper bound on the HTTP upgrade
	WriteTimeout     time.Duration // Write deadline for sends
	ReadLimit        int64         // Max frame size, 0 = unlimited
}

// DefaultWebsocketDialer returns sensible defaults.
func DefaultWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Dial establishes the WebSocket connection.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, protocols []string, header http.Header) (Transport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		Subprotocols:     protocols,
	}

	if header == nil {
		header = http.Header{}
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	t := &wsTransport{
		conn:         conn,
		writeTimeout: d.WriteTimeout,
	}
	if t.writeTimeout <= 0 {
		t.writeTimeout = 5 * time.Second
	}

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		t.writeMu.Lock()
		defer t.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	return t, nil
}

// wsTransport implements Transport over a gorilla connection.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func (t *wsTransport) Read() ([]byte, error) {
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *wsTransport) Write(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close(code int, reason string) error {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)
		t.writeMu.Unlock()
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

func (t *wsTransport) Subprotocol() string {
	return t.conn.Subprotocol()
}
