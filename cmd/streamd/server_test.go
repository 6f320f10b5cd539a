package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/tradestream/internal/connection"
	"github.com/rickgao/tradestream/internal/journal"
	"github.com/rickgao/tradestream/internal/metrics"
)

type fakeRegistry struct {
	snaps      []connection.Snapshot
	reconnects []string
	err        error
}

func (f *fakeRegistry) Connections() []connection.Snapshot { return f.snaps }

func (f *fakeRegistry) Connection(id string) (connection.Snapshot, bool) {
	for _, s := range f.snaps {
		if s.ID == id {
			return s, true
		}
	}
	return connection.Snapshot{}, false
}

func (f *fakeRegistry) Reconnect(id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.Connection(id); !ok {
		return connection.ErrUnknownStream
	}
	f.reconnects = append(f.reconnects, id)
	return nil
}

type fakeHistory struct {
	stream string
	limit  int
	err    error
}

func (f *fakeHistory) Recent(ctx context.Context, streamID string, limit int) ([]journal.Entry, error) {
	f.stream, f.limit = streamID, limit
	if f.err != nil {
		return nil, f.err
	}
	return []journal.Entry{{StreamID: streamID, Status: "connected", At: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func snapshots(statuses ...connection.Status) []connection.Snapshot {
	ids := []string{"market", "ops", "news"}
	out := make([]connection.Snapshot, len(statuses))
	for i, st := range statuses {
		out[i] = connection.Snapshot{ID: ids[i], URL: "wss://example/" + ids[i], Status: st}
	}
	return out
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		statuses []connection.Status
		code     int
		status   string
	}{
		{"no streams", nil, http.StatusOK, "healthy"},
		{"all connected", []connection.Status{connection.StatusConnected, connection.StatusConnected}, http.StatusOK, "healthy"},
		{"some connected", []connection.Status{connection.StatusConnected, connection.StatusConnecting}, http.StatusOK, "degraded"},
		{"none connected", []connection.Status{connection.StatusError, connection.StatusDisconnected}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newOpsHandler(&fakeRegistry{snaps: snapshots(tt.statuses...)}, nil, nil, "/metrics", testLogger())
			rec := serve(t, h, http.MethodGet, "/health")

			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d", rec.Code, tt.code)
			}
			var resp healthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("status = %q, want %q", resp.Status, tt.status)
			}
			if len(resp.Streams) != len(tt.statuses) {
				t.Errorf("streams = %v", resp.Streams)
			}
		})
	}
}

func TestListConnections(t *testing.T) {
	h := newOpsHandler(&fakeRegistry{}, nil, nil, "/metrics", testLogger())
	rec := serve(t, h, http.MethodGet, "/connections")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty list body = %q, want []", got)
	}

	h = newOpsHandler(&fakeRegistry{snaps: snapshots(connection.StatusConnected, connection.StatusError)}, nil, nil, "/metrics", testLogger())
	rec = serve(t, h, http.MethodGet, "/connections")

	var got []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("connections = %d, want 2", len(got))
	}
	if got[0]["status"] != "connected" || got[1]["status"] != "error" {
		t.Errorf("statuses = %v, %v", got[0]["status"], got[1]["status"])
	}
}

func TestGetConnection(t *testing.T) {
	h := newOpsHandler(&fakeRegistry{snaps: snapshots(connection.StatusConnected)}, nil, nil, "/metrics", testLogger())

	rec := serve(t, h, http.MethodGet, "/connections/market")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var snap map[string]any
	json.NewDecoder(rec.Body).Decode(&snap)
	if snap["id"] != "market" {
		t.Errorf("id = %v", snap["id"])
	}

	rec = serve(t, h, http.MethodGet, "/connections/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing code = %d, want 404", rec.Code)
	}
}

func TestReconnect(t *testing.T) {
	reg := &fakeRegistry{snaps: snapshots(connection.StatusDisconnected)}
	h := newOpsHandler(reg, nil, nil, "/metrics", testLogger())

	rec := serve(t, h, http.MethodPost, "/connections/market/reconnect")
	if rec.Code != http.StatusAccepted {
		t.Errorf("code = %d, want 202", rec.Code)
	}
	if len(reg.reconnects) != 1 || reg.reconnects[0] != "market" {
		t.Errorf("reconnects = %v", reg.reconnects)
	}

	rec = serve(t, h, http.MethodPost, "/connections/missing/reconnect")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing code = %d, want 404", rec.Code)
	}

	rec = serve(t, h, http.MethodGet, "/connections/market/reconnect")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reconnect code = %d, want 405", rec.Code)
	}

	reg.err = connection.ErrManagerClosed
	rec = serve(t, h, http.MethodPost, "/connections/market/reconnect")
	if rec.Code != http.StatusConflict {
		t.Errorf("closed manager code = %d, want 409", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{}
	h := newOpsHandler(&fakeRegistry{}, hist, nil, "/metrics", testLogger())

	rec := serve(t, h, http.MethodGet, "/connections/market/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if hist.stream != "market" || hist.limit != defaultHistoryLimit {
		t.Errorf("query = %s/%d", hist.stream, hist.limit)
	}

	serve(t, h, http.MethodGet, "/connections/market/history?limit=5000")
	if hist.limit != maxHistoryLimit {
		t.Errorf("limit = %d, want capped %d", hist.limit, maxHistoryLimit)
	}

	rec = serve(t, h, http.MethodGet, "/connections/market/history?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit code = %d, want 400", rec.Code)
	}

	hist.err = errors.New("db down")
	rec = serve(t, h, http.MethodGet, "/connections/market/history")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("query error code = %d, want 500", rec.Code)
	}
}

func TestHistory_JournalDisabled(t *testing.T) {
	h := newOpsHandler(&fakeRegistry{}, nil, nil, "/metrics", testLogger())
	rec := serve(t, h, http.MethodGet, "/connections/market/history")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector()
	collector.RecordStatus(connection.StatusEvent{StreamID: "market", Status: connection.StatusConnected})

	h := newOpsHandler(&fakeRegistry{}, nil, collector, "/metrics", testLogger())
	rec := serve(t, h, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "streamd_stream_status") {
		t.Error("metrics output missing streamd_stream_status")
	}
}
