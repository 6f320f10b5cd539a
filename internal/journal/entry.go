package journal

import (
	"time"

	"github.com/rickgao/tradestream/internal/connection"
)

// Entry is one journaled status transition.
type Entry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Instance      string    `gorm:"index;not null" json:"instance"`
	StreamID      string    `gorm:"index:idx_stream_at;not null" json:"stream_id"`
	SessionID     string    `json:"session_id,omitempty"`
	Status        string    `gorm:"not null" json:"status"`
	Code          int       `json:"code,omitempty"`
	Attempt       int       `json:"attempt,omitempty"`
	RetryInMs     int64     `json:"retry_in_ms,omitempty"`
	Terminal      bool      `json:"terminal"`
	Authenticated bool      `json:"authenticated"`
	Error         string    `json:"error,omitempty"`
	At            time.Time `gorm:"index:idx_stream_at;not null" json:"at"`
}

// TableName pins the table name shared by both sinks.
func (Entry) TableName() string { return "stream_status_events" }

func newEntry(instance string, ev connection.StatusEvent) Entry {
	e := Entry{
		Instance:      instance,
		StreamID:      ev.StreamID,
		SessionID:     ev.SessionID,
		Status:        ev.Status.String(),
		Code:          ev.Code,
		Attempt:       ev.Attempt,
		RetryInMs:     ev.RetryIn.Milliseconds(),
		Terminal:      ev.Terminal,
		Authenticated: ev.Authenticated,
		At:            ev.At.UTC(),
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	return e
}
