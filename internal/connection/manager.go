package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/tradestream/internal/clock"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithClock replaces the real clock used for reconnect, heartbeat and
// handshake timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithRecorder adds recorders that see every event of every stream.
func WithRecorder(r ...Recorder) Option {
	return func(m *Manager) { m.recorders = append(m.recorders, r...) }
}

// session is one physical socket owned by a stream. Frames are queued on
// outbox while Manager.mu is held and written by flush after it is released,
// so a slow socket only stalls callers of its own stream.
type session struct {
	id        string
	transport Transport
	openedAt  time.Time

	outbox  *queue[[]byte]
	writeMu sync.Mutex
}

func newSession(tr Transport, openedAt time.Time) *session {
	return &session{
		id:        uuid.NewString(),
		transport: tr,
		openedAt:  openedAt,
		outbox:    newQueue[[]byte](4),
	}
}

// flush writes queued frames in order. It must be called without Manager.mu.
// When it returns, every frame queued before the call has been written.
func (s *session) flush() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var firstErr error
	for {
		data, ok := s.outbox.TryPop()
		if !ok {
			return firstErr
		}
		if err := s.transport.Write(data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
}

// stream is a registry entry. All fields are guarded by Manager.mu.
type stream struct {
	id     string
	cfg    StreamConfig
	logger *slog.Logger

	status        Status
	policy        *reconnectPolicy
	messageCount  int64
	lastMessageAt time.Time
	latencyMs     int64
	lastErr       error

	// gen identifies the current connection attempt; callbacks carrying an
	// older generation are stale.
	gen        uint64
	cancelDial context.CancelFunc
	session    *session
	authed     bool

	reconnectTimer clock.Timer
	heartbeatTimer clock.Timer
	handshakeTimer clock.Timer

	topics tracker
}

// Manager owns named streams. It is safe for concurrent use. Create it at
// the composition root and Close it on shutdown.
type Manager struct {
	logger    *slog.Logger
	dialer    Dialer
	clock     clock.Clock
	recorders []Recorder

	mu      sync.Mutex
	streams map[string]*stream
	fanouts map[string]*fanout
	closed  bool

	wg sync.WaitGroup
}

// NewManager creates a new Manager.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		logger:  logger,
		dialer:  DefaultWebsocketDialer(),
		clock:   clock.Real(),
		streams: make(map[string]*stream),
		fanouts: make(map[string]*fanout),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect registers a stream and starts connecting it. An existing stream
// with the same id is closed first; its tracked topics and observers carry
// over. Completion is reported through status observers.
func (m *Manager) Connect(id string, cfg StreamConfig) error {
	if err := validateStreamConfig(id, cfg); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	var stale *session
	st, exists := m.streams[id]
	if exists {
		stale = m.detachLocked(st)
		st.logger.Info("replacing stream", "url", cfg.URL)
	} else {
		st = &stream{id: id}
		m.streams[id] = st
	}
	st.cfg = cfg
	st.logger = m.logger.With("stream", id)
	st.policy = newReconnectPolicy(cfg.ReconnectInterval, cfg.MaxReconnectAttempts)
	st.lastErr = nil

	m.ensureFanoutLocked(id)
	m.startAttemptLocked(st)
	m.mu.Unlock()

	closeSession(stale, CloseNormal, "replaced")
	return nil
}

// Disconnect closes the stream with code 1000, cancels its pending timers
// and discards its registry entry and observers. For an id that never
// connected only the observers are dropped.
func (m *Manager) Disconnect(id string) {
	m.mu.Lock()
	st, ok := m.streams[id]
	if !ok {
		if f, ok := m.fanouts[id]; ok {
			f.events.Close()
			delete(m.fanouts, id)
		}
		m.mu.Unlock()
		return
	}
	logger := st.logger
	sess := m.removeLocked(st)
	m.mu.Unlock()

	closeSession(sess, CloseNormal, "disconnect")
	logger.Info("stream disconnected")
}

// Reconnect resets the attempt counter, force-closes the current socket and
// connects again immediately.
func (m *Manager) Reconnect(id string) error {
	m.mu.Lock()
	st, ok := m.streams[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("reconnect %q: %w", id, ErrUnknownStream)
	}

	logger := st.logger
	sess := m.detachLocked(st)
	st.policy.reset()
	st.lastErr = nil
	m.startAttemptLocked(st)
	m.mu.Unlock()

	closeSession(sess, CloseNormal, "reconnect")
	logger.Info("manual reconnect")
	return nil
}

// Send writes payload to the stream's socket. Strings and byte slices are
// sent as-is, other values are JSON encoded. It returns false if the stream
// is unknown, not open, or the write fails.
func (m *Manager) Send(id string, payload any) bool {
	m.mu.Lock()
	st, ok := m.streams[id]
	if !ok || st.session == nil {
		m.mu.Unlock()
		m.logger.Debug("send on closed stream", "stream", id)
		return false
	}
	sess, logger := st.session, st.logger
	err := m.queueFrameLocked(sess, payload)
	m.mu.Unlock()

	if err != nil {
		logger.Warn("failed to encode frame", "error", err)
		return false
	}
	if err := sess.flush(); err != nil {
		logger.Warn("failed to send frame", "error", err)
		return false
	}
	return true
}

// Subscribe adds topics to the stream's tracked sets. Only symbols that are
// not yet tracked are sent, and only when the stream is open and (if
// required) authenticated; otherwise they are replayed after authentication.
func (m *Manager) Subscribe(id string, t Topics) error {
	m.mu.Lock()
	st, ok := m.streams[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("subscribe %q: %w", id, ErrUnknownStream)
	}

	added := st.topics.add(t)
	if added.Empty() || !st.readyLocked() {
		m.mu.Unlock()
		return nil
	}

	sess := st.session
	if err := m.queueFrameLocked(sess, added.frame("subscribe")); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("send subscribe: %w", err)
	}
	st.logger.Debug("subscribed",
		"trades", added.Trades,
		"quotes", added.Quotes,
		"bars", added.Bars,
	)
	m.mu.Unlock()

	if err := sess.flush(); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	return nil
}

// Unsubscribe removes topics from the tracked sets and, when the stream is
// ready, sends an unsubscribe frame for the symbols that were tracked.
func (m *Manager) Unsubscribe(id string, t Topics) error {
	m.mu.Lock()
	st, ok := m.streams[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unsubscribe %q: %w", id, ErrUnknownStream)
	}

	removed := st.topics.remove(t)
	if removed.Empty() || !st.readyLocked() {
		m.mu.Unlock()
		return nil
	}

	sess := st.session
	err := m.queueFrameLocked(sess, removed.frame("unsubscribe"))
	m.mu.Unlock()
	if err == nil {
		err = sess.flush()
	}
	if err != nil {
		return fmt.Errorf("send unsubscribe: %w", err)
	}
	return nil
}

// OnMessage registers a message observer for id and returns a function that
// unregisters it. Observers may be registered before Connect.
func (m *Manager) OnMessage(id string, fn func(Message)) func() {
	m.mu.Lock()
	f := m.ensureFanoutLocked(id)
	m.mu.Unlock()
	return f.addMessage(fn)
}

// OnStatus registers a status observer for id and returns a function that
// unregisters it.
func (m *Manager) OnStatus(id string, fn func(StatusEvent)) func() {
	m.mu.Lock()
	f := m.ensureFanoutLocked(id)
	m.mu.Unlock()
	return f.addStatus(fn)
}

// Connection returns a snapshot of one stream.
func (m *Manager) Connection(id string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.streams[id]
	if !ok {
		return Snapshot{}, false
	}
	return st.snapshotLocked(), true
}

// Connections returns snapshots of all streams, sorted by id.
func (m *Manager) Connections() []Snapshot {
	m.mu.Lock()
	out := make([]Snapshot, 0, len(m.streams))
	for _, st := range m.streams {
		out = append(out, st.snapshotLocked())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close disconnects every stream and waits for background goroutines.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	var sessions []*session
	for _, st := range m.streams {
		sessions = append(sessions, m.removeLocked(st))
	}
	for id, f := range m.fanouts {
		f.events.Close()
		delete(m.fanouts, id)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		closeSession(sess, CloseNormal, "shutdown")
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("connection manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, goroutines still running")
		return ctx.Err()
	}
}

func validateStreamConfig(id string, cfg StreamConfig) error {
	if id == "" {
		return fmt.Errorf("%w: empty stream id", ErrInvalidConfig)
	}
	if cfg.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("%w: parse url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url scheme must be ws or wss, got %q", ErrInvalidConfig, u.Scheme)
	}
	return nil
}

// ensureFanoutLocked returns the fanout for id, starting its dispatcher if
// needed. Must be called with m.mu held.
func (m *Manager) ensureFanoutLocked(id string) *fanout {
	if f, ok := m.fanouts[id]; ok {
		return f
	}

	f := newFanout(id, m.logger)
	if m.closed {
		// Observers registered after Close are never invoked.
		f.events.Close()
		return f
	}
	m.fanouts[id] = f

	m.wg.Add(1)
	go m.dispatch(f)
	return f
}

// dispatch drains a fanout queue until it is closed.
func (m *Manager) dispatch(f *fanout) {
	defer m.wg.Done()

	for {
		ev, ok := f.events.Pop()
		if !ok {
			return
		}
		for _, r := range m.recorders {
			f.safeCall("recorder", func() {
				if ev.status != nil {
					r.RecordStatus(*ev.status)
				} else {
					r.RecordMessage(*ev.message)
				}
			})
		}
		f.deliver(ev)
	}
}

// emitStatusLocked records the transition and enqueues it for observers.
func (m *Manager) emitStatusLocked(st *stream, ev StatusEvent) {
	ev.StreamID = st.id
	ev.At = m.clock.Now()
	if ev.SessionID == "" && st.session != nil {
		ev.SessionID = st.session.id
	}
	st.status = ev.Status

	if f, ok := m.fanouts[st.id]; ok {
		f.events.Push(event{status: &ev})
	}
}

// startAttemptLocked moves the stream to connecting and dials in the
// background.
func (m *Manager) startAttemptLocked(st *stream) {
	st.gen++
	gen := st.gen

	ctx, cancel := context.WithCancel(context.Background())
	st.cancelDial = cancel

	m.emitStatusLocked(st, StatusEvent{
		Status:  StatusConnecting,
		Attempt: st.policy.attempts,
	})

	cfg := st.cfg
	m.wg.Add(1)
	go m.dial(ctx, st, gen, cfg)
}

// dial opens a transport for one connection attempt.
func (m *Manager) dial(ctx context.Context, st *stream, gen uint64, cfg StreamConfig) {
	defer m.wg.Done()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()

	tr, err := m.dialer.Dial(dialCtx, cfg.URL, cfg.Protocols, cfg.Header)

	m.mu.Lock()
	if !m.currentLocked(st, gen) {
		m.mu.Unlock()
		if tr != nil {
			tr.Close(CloseNormal, "superseded")
		}
		return
	}
	st.cancelDial = nil

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
		}
		st.logger.Warn("dial failed", "url", cfg.URL, "error", err)
		m.failLocked(st, fmt.Errorf("dial: %w", err))
		m.closedLocked(st, CloseAbnormal)
		m.mu.Unlock()
		return
	}

	sess := newSession(tr, m.clock.Now())
	st.session = sess
	st.authed = false
	st.policy.reset()

	m.emitStatusLocked(st, StatusEvent{Status: StatusConnected, SessionID: sess.id})
	st.logger.Info("stream connected", "session", sess.id, "subprotocol", tr.Subprotocol())

	m.scheduleHeartbeatLocked(st, sess)

	if cfg.Auth != nil {
		if err := m.queueFrameLocked(sess, cfg.Auth.AuthFrame()); err != nil {
			st.logger.Warn("failed to send auth frame", "error", err)
		}
		st.handshakeTimer = m.clock.AfterFunc(cfg.HandshakeTimeout, func() {
			m.handshakeExpired(st, sess)
		})
	} else {
		m.flushTopicsLocked(st, sess)
	}

	m.wg.Add(1)
	go m.readLoop(st, sess)
	logger := st.logger
	m.mu.Unlock()

	if err := sess.flush(); err != nil {
		logger.Warn("failed to send opening frames", "error", err)
	}
}

// readLoop reads frames until the transport fails.
func (m *Manager) readLoop(st *stream, sess *session) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.handleReadError(st, sess, fmt.Errorf("read loop panic: %v", r))
		}
	}()

	for {
		data, err := sess.transport.Read()
		if err != nil {
			m.handleReadError(st, sess, err)
			return
		}
		m.handleFrame(st, sess, data, m.clock.Now())
	}
}

// handleFrame decodes one inbound frame and fans it out.
func (m *Manager) handleFrame(st *stream, sess *session, data []byte, receivedAt time.Time) {
	m.mu.Lock()
	if st.session != sess {
		m.mu.Unlock()
		return
	}

	payload, err := st.cfg.Decoder.Decode(data)
	raw := false
	if err != nil {
		payload = string(data)
		raw = true
	}

	if !raw {
		if ts, ok := sentAt(payload); ok {
			st.latencyMs = latencyMs(receivedAt, ts)
		}
	}
	st.messageCount++
	st.lastMessageAt = receivedAt

	msg := Message{
		StreamID:   st.id,
		SessionID:  sess.id,
		Seq:        st.messageCount,
		Data:       data,
		Payload:    payload,
		Raw:        raw,
		LatencyMs:  st.latencyMs,
		ReceivedAt: receivedAt,
	}
	if f, ok := m.fanouts[st.id]; ok {
		f.events.Push(event{message: &msg})
	}

	if st.cfg.Auth == nil || st.authed || raw {
		m.mu.Unlock()
		return
	}
	m.checkAuthLocked(st, sess, payload)
	logger := st.logger
	m.mu.Unlock()

	if err := sess.flush(); err != nil {
		logger.Warn("failed to replay subscriptions", "error", err)
	}
}

// checkAuthLocked advances the authentication handshake.
func (m *Manager) checkAuthLocked(st *stream, sess *session, payload any) {
	done, err := st.cfg.Auth.CheckAuth(payload)
	if err != nil {
		stopTimer(&st.handshakeTimer)
		if !errors.Is(err, ErrAuthFailed) {
			err = fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		st.logger.Warn("authentication rejected", "error", err)
		m.failLocked(st, err)
		return
	}
	if !done {
		return
	}

	stopTimer(&st.handshakeTimer)
	st.authed = true
	m.emitStatusLocked(st, StatusEvent{
		Status:        StatusConnected,
		SessionID:     sess.id,
		Authenticated: true,
	})
	st.logger.Info("stream authenticated")
	m.flushTopicsLocked(st, sess)
}

// flushTopicsLocked sends the full tracked set in a single frame.
func (m *Manager) flushTopicsLocked(st *stream, sess *session) {
	all := st.topics.all()
	if all.Empty() {
		return
	}
	if err := m.queueFrameLocked(sess, all.frame("subscribe")); err != nil {
		st.logger.Warn("failed to replay subscriptions", "error", err)
		return
	}
	st.logger.Debug("replayed subscriptions",
		"trades", len(all.Trades),
		"quotes", len(all.Quotes),
		"bars", len(all.Bars),
	)
}

// handleReadError handles the end of a session.
func (m *Manager) handleReadError(st *stream, sess *session, err error) {
	code := CloseAbnormal
	var closeErr *websocket.CloseError
	isClose := errors.As(err, &closeErr)
	if isClose {
		code = closeErr.Code
	}

	m.mu.Lock()
	if st.session != sess {
		m.mu.Unlock()
		return
	}
	m.endSessionLocked(st)

	if !isClose {
		st.logger.Warn("transport error", "error", err)
		m.failLocked(st, fmt.Errorf("transport: %w", err))
	} else {
		st.logger.Info("stream closed", "code", code, "reason", closeErr.Text)
	}
	m.closedLocked(st, code)
	m.mu.Unlock()

	sess.transport.Close(CloseNormal, "")
}

// handshakeExpired fires when the provider never acknowledged the
// credentials in time.
func (m *Manager) handshakeExpired(st *stream, sess *session) {
	m.mu.Lock()
	if st.session != sess || st.authed {
		m.mu.Unlock()
		return
	}
	st.handshakeTimer = nil
	m.endSessionLocked(st)

	st.logger.Warn("authentication not acknowledged", "timeout", st.cfg.HandshakeTimeout)
	m.failLocked(st, fmt.Errorf("%w: no authentication acknowledgment after %s",
		ErrHandshakeTimeout, st.cfg.HandshakeTimeout))
	m.closedLocked(st, CloseAbnormal)
	m.mu.Unlock()

	sess.transport.Close(websocket.ClosePolicyViolation, "handshake timeout")
}

// failLocked reports an error status.
func (m *Manager) failLocked(st *stream, err error) {
	st.lastErr = err
	m.emitStatusLocked(st, StatusEvent{Status: StatusError, Err: err})
}

// closedLocked applies the close policy: code 1000 or exhausted attempts is
// terminal, anything else schedules a reconnect.
func (m *Manager) closedLocked(st *stream, code int) {
	st.authed = false

	if code == CloseNormal || st.policy.exhausted() {
		m.emitStatusLocked(st, StatusEvent{
			Status:   StatusDisconnected,
			Code:     code,
			Attempt:  st.policy.attempts,
			Terminal: true,
		})
		if code != CloseNormal {
			st.logger.Warn("reconnect attempts exhausted", "attempts", st.policy.attempts)
		}
		return
	}

	delay := st.policy.next()
	m.emitStatusLocked(st, StatusEvent{
		Status:  StatusDisconnected,
		Code:    code,
		Attempt: st.policy.attempts,
		RetryIn: delay,
	})
	st.logger.Info("scheduling reconnect",
		"attempt", st.policy.attempts,
		"max_attempts", st.policy.max,
		"delay", delay,
	)

	gen := st.gen
	st.reconnectTimer = m.clock.AfterFunc(delay, func() {
		m.retry(st, gen)
	})
}

// retry is the reconnect timer callback.
func (m *Manager) retry(st *stream, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(st, gen) {
		return
	}
	st.reconnectTimer = nil
	m.startAttemptLocked(st)
}

// scheduleHeartbeatLocked arms the next keep-alive frame.
func (m *Manager) scheduleHeartbeatLocked(st *stream, sess *session) {
	interval := st.cfg.HeartbeatInterval
	if st.cfg.DisableHeartbeat || interval <= 0 {
		return
	}
	st.heartbeatTimer = m.clock.AfterFunc(interval, func() {
		m.heartbeat(st, sess)
	})
}

func (m *Manager) heartbeat(st *stream, sess *session) {
	m.mu.Lock()
	if st.session != sess {
		m.mu.Unlock()
		return
	}

	ping := ControlFrame{Action: "ping", Timestamp: m.clock.Now().UnixMilli()}
	err := m.queueFrameLocked(sess, ping)
	m.scheduleHeartbeatLocked(st, sess)
	logger := st.logger
	m.mu.Unlock()

	if err == nil {
		err = sess.flush()
	}
	if err != nil {
		logger.Debug("failed to send heartbeat", "error", err)
	}
}

// queueFrameLocked encodes a frame onto the session outbox. The caller
// flushes the session after releasing the lock.
func (m *Manager) queueFrameLocked(sess *session, frame any) error {
	if sess == nil {
		return ErrNotConnected
	}
	data, err := encodeFrame(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if !sess.outbox.Push(data) {
		return ErrNotConnected
	}
	return nil
}

// currentLocked reports whether gen is still the live attempt of a
// registered stream.
func (m *Manager) currentLocked(st *stream, gen uint64) bool {
	return !m.closed && m.streams[st.id] == st && st.gen == gen
}

// endSessionLocked detaches the session and stops its timers.
func (m *Manager) endSessionLocked(st *stream) {
	if st.session != nil {
		st.session.outbox.Close()
	}
	st.session = nil
	st.authed = false
	stopTimer(&st.heartbeatTimer)
	stopTimer(&st.handshakeTimer)
}

// detachLocked cancels every pending timer and dial of st and returns the
// session that must be closed once the lock is released.
func (m *Manager) detachLocked(st *stream) *session {
	stopTimer(&st.reconnectTimer)
	if st.cancelDial != nil {
		st.cancelDial()
		st.cancelDial = nil
	}
	sess := st.session
	m.endSessionLocked(st)
	st.gen++
	return sess
}

// removeLocked detaches st, delivers its final status and drops every
// per-id record.
func (m *Manager) removeLocked(st *stream) *session {
	sess := m.detachLocked(st)

	m.emitStatusLocked(st, StatusEvent{
		Status:   StatusDisconnected,
		Code:     CloseNormal,
		Terminal: true,
	})

	delete(m.streams, st.id)
	if f, ok := m.fanouts[st.id]; ok {
		f.events.Close()
		delete(m.fanouts, st.id)
	}
	return sess
}

func (st *stream) readyLocked() bool {
	return st.session != nil && (st.cfg.Auth == nil || st.authed)
}

func (st *stream) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                   st.id,
		URL:                  st.cfg.URL,
		Protocols:            append([]string(nil), st.cfg.Protocols...),
		Status:               st.status,
		Authenticated:        st.authed,
		ReconnectAttempts:    st.policy.attempts,
		MaxReconnectAttempts: st.policy.max,
		ReconnectInterval:    st.cfg.ReconnectInterval,
		ReconnectPending:     st.reconnectTimer != nil,
		MessageCount:         st.messageCount,
		LastMessageAt:        st.lastMessageAt,
		LatencyMs:            st.latencyMs,
		Topics:               st.topics.all(),
	}
	if st.session != nil {
		snap.SessionID = st.session.id
	}
	if st.lastErr != nil {
		snap.LastError = st.lastErr.Error()
	}
	return snap
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func closeSession(sess *session, code int, reason string) {
	if sess != nil {
		sess.transport.Close(code, reason)
	}
}
