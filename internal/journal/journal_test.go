package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/tradestream/internal/connection"
)

type memSink struct {
	mu      sync.Mutex
	batches [][]Entry
	err     error
	closed  bool
}

func (s *memSink) Write(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]Entry(nil), entries...))
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *memSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func statusEvent(stream string, st connection.Status) connection.StatusEvent {
	return connection.StatusEvent{
		StreamID: stream,
		Status:   st,
		At:       time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewEntry(t *testing.T) {
	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))
	ev := connection.StatusEvent{
		StreamID:  "market",
		SessionID: "s-1",
		Status:    connection.StatusError,
		Err:       errors.New("boom"),
		Code:      1006,
		Attempt:   3,
		RetryIn:   4 * time.Second,
		Terminal:  false,
		At:        at,
	}

	e := newEntry("dash-1", ev)

	if e.Instance != "dash-1" || e.StreamID != "market" || e.SessionID != "s-1" {
		t.Errorf("identity fields = %+v", e)
	}
	if e.Status != "error" {
		t.Errorf("Status = %q, want error", e.Status)
	}
	if e.Error != "boom" {
		t.Errorf("Error = %q, want boom", e.Error)
	}
	if e.RetryInMs != 4000 {
		t.Errorf("RetryInMs = %d, want 4000", e.RetryInMs)
	}
	if e.Code != 1006 || e.Attempt != 3 {
		t.Errorf("Code/Attempt = %d/%d", e.Code, e.Attempt)
	}
	if e.At.Location() != time.UTC || !e.At.Equal(at) {
		t.Errorf("At = %v, want %v in UTC", e.At, at)
	}
}

func TestJournal_FlushOnBatchSize(t *testing.T) {
	sink := &memSink{}
	j := New(Config{Instance: "dash-1", BatchSize: 3, FlushInterval: time.Hour}, sink, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer j.Stop(context.Background())

	for _, st := range []connection.Status{connection.StatusConnecting, connection.StatusConnected, connection.StatusDisconnected} {
		j.RecordStatus(statusEvent("ops", st))
	}

	waitFor(t, func() bool { return sink.batchCount() == 1 })

	got := sink.entries()
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	want := []string{"connecting", "connected", "disconnected"}
	for i, e := range got {
		if e.Status != want[i] {
			t.Errorf("entry %d status = %q, want %q", i, e.Status, want[i])
		}
	}

	stats := j.Stats()
	if stats.Inserts != 3 || stats.Flushes != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestJournal_FlushOnInterval(t *testing.T) {
	sink := &memSink{}
	j := New(Config{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, sink, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer j.Stop(context.Background())

	j.RecordStatus(statusEvent("ops", connection.StatusConnecting))

	waitFor(t, func() bool { return len(sink.entries()) == 1 })
}

func TestJournal_StopFlushesAndCloses(t *testing.T) {
	sink := &memSink{}
	j := New(Config{BatchSize: 100, FlushInterval: time.Hour}, sink, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	j.RecordStatus(statusEvent("ops", connection.StatusConnecting))
	j.RecordStatus(statusEvent("ops", connection.StatusConnected))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := j.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if n := len(sink.entries()); n != 2 {
		t.Errorf("entries after stop = %d, want 2", n)
	}
	if !sink.closed {
		t.Error("sink not closed")
	}
}

func TestJournal_IgnoresMessages(t *testing.T) {
	sink := &memSink{}
	j := New(Config{BatchSize: 1, FlushInterval: time.Hour}, sink, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	j.RecordMessage(connection.Message{StreamID: "ops", Data: []byte(`{}`)})
	j.Stop(context.Background())

	if n := len(sink.entries()); n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
}

func TestJournal_DropsWhenFull(t *testing.T) {
	sink := &memSink{}
	// Not started, so nothing drains the buffer.
	j := New(Config{BufferSize: 2}, sink, nil)

	for i := 0; i < 5; i++ {
		j.RecordStatus(statusEvent("ops", connection.StatusConnecting))
	}

	if got := j.Stats().Dropped; got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}
}

func TestJournal_WriteErrorCounted(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	j := New(Config{BatchSize: 1, FlushInterval: time.Hour}, sink, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer j.Stop(context.Background())

	j.RecordStatus(statusEvent("ops", connection.StatusConnecting))

	waitFor(t, func() bool { return j.Stats().Errors == 1 })
	if got := j.Stats().Inserts; got != 0 {
		t.Errorf("Inserts = %d, want 0", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	j := New(Config{}, &memSink{}, nil)
	def := DefaultConfig()
	if j.cfg.BatchSize != def.BatchSize || j.cfg.FlushInterval != def.FlushInterval || j.cfg.BufferSize != def.BufferSize {
		t.Errorf("cfg = %+v, want defaults %+v", j.cfg, def)
	}
}
