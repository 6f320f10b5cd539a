package connection

import (
	"encoding/json"
	"testing"
	"time"
)

type stampedPayload struct{ at time.Time }

func (p stampedPayload) SentAt() (time.Time, bool) { return p.at, true }

func TestSentAt(t *testing.T) {
	base := time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload any
		want    time.Time
		wantOK  bool
	}{
		{"millis field", map[string]any{"timestamp": float64(base.UnixMilli())}, base, true},
		{"seconds field", map[string]any{"ts": float64(base.Unix())}, base, true},
		{"micros field", map[string]any{"time": float64(base.UnixMicro())}, base, true},
		{"nanos field", map[string]any{"t": float64(base.UnixNano())}, base, true},
		{"rfc3339 field", map[string]any{"t": base.Format(time.RFC3339Nano)}, base, true},
		{"numeric string", map[string]any{"sent_at": "1772634600"}, base, true},
		{"array element", []any{map[string]any{"T": "t"}, map[string]any{"ts": float64(base.Unix())}}, base, true},
		{"interface", stampedPayload{at: base}, base, true},
		{"no timestamp", map[string]any{"S": "AAPL"}, time.Time{}, false},
		{"unparseable", map[string]any{"timestamp": "yesterday"}, time.Time{}, false},
		{"zero epoch", map[string]any{"timestamp": float64(0)}, time.Time{}, false},
		{"raw string", "hello", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sentAt(tt.payload)
			if ok != tt.wantOK {
				t.Fatalf("sentAt() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			// Float64 epoch conversion may lose sub-microsecond precision.
			if diff := got.Sub(tt.want); diff > time.Microsecond || diff < -time.Microsecond {
				t.Errorf("sentAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLatencyMs(t *testing.T) {
	now := time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)

	if got := latencyMs(now, now.Add(-1500*time.Millisecond)); got != 1500 {
		t.Errorf("latencyMs(past) = %d, want 1500", got)
	}
	if got := latencyMs(now, now.Add(time.Second)); got != 0 {
		t.Errorf("latencyMs(future) = %d, want 0", got)
	}
}

func TestJSONDecoder(t *testing.T) {
	var d JSONDecoder

	v, err := d.Decode([]byte(`[{"T":"success","msg":"connected"}]`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	arr, ok := v.([]any)
	if !ok || len(arr) != 1 {
		t.Fatalf("Decode() = %#v, want one-element array", v)
	}

	if _, err := d.Decode([]byte("{not json")); err == nil {
		t.Error("Decode() of invalid JSON succeeded")
	}
}

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"string as-is", "ping", "ping"},
		{"bytes as-is", []byte(`{"a":1}`), `{"a":1}`},
		{"raw message", json.RawMessage(`{"b":2}`), `{"b":2}`},
		{"struct", ControlFrame{Action: "subscribe", Trades: []string{"AAPL"}}, `{"action":"subscribe","trades":["AAPL"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeFrame(tt.payload)
			if err != nil {
				t.Fatalf("encodeFrame() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("encodeFrame() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := encodeFrame(make(chan int)); err == nil {
		t.Error("encodeFrame(chan) succeeded, want error")
	}
}
