package marketdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var errNotFrame = errors.New("payload is not a JSON object or array")

// DecoderStats contains decoder counters.
type DecoderStats struct {
	Elements  int64
	Unknown   int64
	Malformed int64
}

// Decoder parses inbound frames into Frames. It implements
// connection.Decoder and is safe for concurrent use.
type Decoder struct {
	logger *slog.Logger

	elements  atomic.Int64
	unknown   atomic.Int64
	malformed atomic.Int64
}

// NewDecoder creates a new Decoder.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{logger: logger}
}

// Decode parses a frame holding either one object or an array of objects.
// Elements with an unknown type or a malformed body become Raw; a payload
// that is not JSON at all returns an error so the caller can pass it
// through unchanged.
func (d *Decoder) Decode(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errNotFrame
	}

	var elems []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, fmt.Errorf("decode frame array: %w", err)
		}
	case '{':
		if !json.Valid(data) {
			return nil, fmt.Errorf("decode frame: invalid JSON object")
		}
		elems = []json.RawMessage{data}
	default:
		return nil, errNotFrame
	}

	frames := make(Frames, 0, len(elems))
	for _, elem := range elems {
		frames = append(frames, d.decodeElement(elem))
	}
	return frames, nil
}

// Stats returns current counters.
func (d *Decoder) Stats() DecoderStats {
	return DecoderStats{
		Elements:  d.elements.Load(),
		Unknown:   d.unknown.Load(),
		Malformed: d.malformed.Load(),
	}
}

func (d *Decoder) decodeElement(elem json.RawMessage) Frame {
	d.elements.Add(1)

	var env envelopeWire
	if err := json.Unmarshal(elem, &env); err != nil {
		d.malformed.Add(1)
		d.logger.Debug("frame element is not an object", "error", err)
		return Raw{Data: elem}
	}

	frame, err := parseElement(env.T, elem)
	if err != nil {
		d.malformed.Add(1)
		d.logger.Warn("failed to parse frame element", "type", env.T, "error", err)
		return Raw{T: env.T, Data: elem}
	}
	if frame == nil {
		d.unknown.Add(1)
		d.logger.Debug("skipping unknown frame type", "type", env.T)
		return Raw{T: env.T, Data: elem}
	}
	return frame
}

// parseElement returns nil, nil for unknown types.
func parseElement(msgType string, elem json.RawMessage) (Frame, error) {
	switch msgType {
	case TypeTrade:
		var w tradeWire
		if err := json.Unmarshal(elem, &w); err != nil {
			return nil, err
		}
		return Trade(w), nil

	case TypeQuote:
		var w quoteWire
		if err := json.Unmarshal(elem, &w); err != nil {
			return nil, err
		}
		return Quote(w), nil

	case TypeBar:
		var w barWire
		if err := json.Unmarshal(elem, &w); err != nil {
			return nil, err
		}
		return Bar(w), nil

	case TypeSuccess:
		var w successWire
		if err := json.Unmarshal(elem, &w); err != nil {
			return nil, err
		}
		return Success(w), nil

	case TypeError:
		var w errorWire
		if err := json.Unmarshal(elem, &w); err != nil {
			return nil, err
		}
		return Error(w), nil

	case TypeSubscription:
		var w subscriptionWire
		if err := json.Unmarshal(elem, &w); err != nil {
			return nil, err
		}
		return SubscriptionAck(w), nil
	}
	return nil, nil
}
