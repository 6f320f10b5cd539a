package connection

import (
	"encoding/json"
	"strconv"
	"time"
)

// JSONDecoder decodes frames with encoding/json into generic values.
type JSONDecoder struct{}

// Decode implements Decoder.
func (JSONDecoder) Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Timestamped is implemented by decoded payloads that carry their own
// send-side timestamp.
type Timestamped interface {
	SentAt() (time.Time, bool)
}

// timestampFields are checked, in order, on decoded JSON objects.
var timestampFields = []string{"timestamp", "ts", "t", "time", "sent_at"}

// sentAt extracts a send-side timestamp from a decoded payload.
func sentAt(payload any) (time.Time, bool) {
	switch v := payload.(type) {
	case Timestamped:
		return v.SentAt()
	case map[string]any:
		for _, field := range timestampFields {
			if raw, ok := v[field]; ok {
				if ts, ok := parseTimestamp(raw); ok {
					return ts, true
				}
			}
		}
	case []any:
		for _, elem := range v {
			if ts, ok := sentAt(elem); ok {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// parseTimestamp accepts RFC 3339 strings and epoch numbers in seconds,
// milliseconds, microseconds or nanoseconds.
func parseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case float64:
		return fromEpoch(v)
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return ts, true
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return fromEpoch(f)
		}
	case time.Time:
		return v, !v.IsZero()
	}
	return time.Time{}, false
}

func fromEpoch(v float64) (time.Time, bool) {
	if v <= 0 {
		return time.Time{}, false
	}
	switch {
	case v >= 1e17:
		return time.Unix(0, int64(v)), true
	case v >= 1e14:
		return time.UnixMicro(int64(v)), true
	case v >= 1e11:
		return time.UnixMilli(int64(v)), true
	default:
		sec := int64(v)
		return time.Unix(sec, int64((v-float64(sec))*1e9)), true
	}
}

// latencyMs returns max(0, now - sent) in milliseconds.
func latencyMs(now, sent time.Time) int64 {
	d := now.Sub(sent).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}

// encodeFrame serializes a send payload. Strings and byte slices are sent
// unchanged; everything else is JSON encoded.
func encodeFrame(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
