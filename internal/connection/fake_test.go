package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/tradestream/internal/clock"
)

var errClosedTransport = errors.New("use of closed transport")

// fakeTransport is an in-memory Transport driven by the test.
type fakeTransport struct {
	inbound chan []byte
	readErr chan error
	writes  chan []byte
	done    chan struct{}

	// gate, when set, holds every Write until it is closed or the
	// transport is closed. blocked receives a signal as a Write starts
	// waiting.
	gate    chan struct{}
	blocked chan struct{}

	mu        sync.Mutex
	written   [][]byte
	closed    bool
	closeCode int
	once      sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 100),
		readErr: make(chan error, 1),
		writes:  make(chan []byte, 100),
		done:    make(chan struct{}),
	}
}

func (f *fakeTransport) Read() ([]byte, error) {
	select {
	case data := <-f.inbound:
		return data, nil
	case err := <-f.readErr:
		return nil, err
	case <-f.done:
		return nil, errClosedTransport
	}
}

// newGatedTransport returns a transport whose writes hang until the
// returned release function is called.
func newGatedTransport() (*fakeTransport, func()) {
	f := newFakeTransport()
	f.gate = make(chan struct{})
	f.blocked = make(chan struct{}, 1)
	var once sync.Once
	return f, func() { once.Do(func() { close(f.gate) }) }
}

func (f *fakeTransport) Write(data []byte) error {
	if f.gate != nil {
		select {
		case f.blocked <- struct{}{}:
		default:
		}
		select {
		case <-f.gate:
		case <-f.done:
			return errClosedTransport
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errClosedTransport
	}
	f.written = append(f.written, data)
	select {
	case f.writes <- data:
	default:
	}
	return nil
}

func (f *fakeTransport) Close(code int, reason string) error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.closeCode = code
		f.mu.Unlock()
		close(f.done)
	})
	return nil
}

func (f *fakeTransport) Subprotocol() string { return "" }

// peerClose simulates the server closing the socket with code.
func (f *fakeTransport) peerClose(code int) {
	f.readErr <- &websocket.CloseError{Code: code}
}

func (f *fakeTransport) push(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f.inbound <- data
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

func (f *fakeTransport) isClosed() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeCode
}

// fakeDialer hands out transports produced by next.
type fakeDialer struct {
	mu    sync.Mutex
	dials int
	next  func(n int) (Transport, error)
}

func (d *fakeDialer) Dial(ctx context.Context, url string, protocols []string, header http.Header) (Transport, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	d.mu.Unlock()
	return d.next(n)
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// failingDialer never opens a socket.
func failingDialer() *fakeDialer {
	return &fakeDialer{next: func(int) (Transport, error) {
		return nil, errors.New("connection refused")
	}}
}

// transportDialer opens the given transports in order.
func transportDialer(ts ...*fakeTransport) *fakeDialer {
	return &fakeDialer{next: func(n int) (Transport, error) {
		if n > len(ts) {
			return nil, errors.New("no more transports")
		}
		return ts[n-1], nil
	}}
}

var epoch = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, d Dialer, opts ...Option) (*Manager, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(epoch)
	opts = append([]Option{WithDialer(d), WithClock(clk)}, opts...)
	m := NewManager(nil, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		m.Close(ctx)
	})
	return m, clk
}

func watchStatus(m *Manager, id string) <-chan StatusEvent {
	ch := make(chan StatusEvent, 100)
	m.OnStatus(id, func(ev StatusEvent) { ch <- ev })
	return ch
}

func watchMessages(m *Manager, id string) <-chan Message {
	ch := make(chan Message, 100)
	m.OnMessage(id, func(msg Message) { ch <- msg })
	return ch
}

func nextStatus(t *testing.T, ch <-chan StatusEvent) StatusEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for status event")
		return StatusEvent{}
	}
}

func expectStatus(t *testing.T, ch <-chan StatusEvent, want Status) StatusEvent {
	t.Helper()
	ev := nextStatus(t, ch)
	if ev.Status != want {
		t.Fatalf("status = %s, want %s (event %+v)", ev.Status, want, ev)
	}
	return ev
}

func nextMessage(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return Message{}
	}
}

func nextWrite(t *testing.T, tr *fakeTransport) ControlFrame {
	t.Helper()
	select {
	case data := <-tr.writes:
		var f ControlFrame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("unmarshal frame %s: %v", data, err)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbound frame")
		return ControlFrame{}
	}
}

func expectNoStatus(t *testing.T, ch <-chan StatusEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected status event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeAuth accepts {"T":"success","msg":"authenticated"} and rejects
// {"T":"error"} objects.
type fakeAuth struct{}

func (fakeAuth) AuthFrame() ControlFrame {
	return ControlFrame{Action: "auth", Key: "key", Secret: "secret"}
}

func (fakeAuth) CheckAuth(payload any) (bool, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return false, nil
	}
	switch obj["T"] {
	case "success":
		return obj["msg"] == "authenticated", nil
	case "error":
		msg, _ := obj["msg"].(string)
		return false, errors.New(msg)
	}
	return false, nil
}

// settle waits until any critical section that emitted an already received
// event has released the manager lock, so timers it armed are registered.
func settle(m *Manager) {
	m.mu.Lock()
	m.mu.Unlock()
}

// waitClosed waits for the transport to be closed and returns the close code.
func waitClosed(t *testing.T, f *fakeTransport) int {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for transport close")
	}
	_, code := f.isClosed()
	return code
}
