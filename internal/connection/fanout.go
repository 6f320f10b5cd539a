package connection

import (
	"fmt"
	"log/slog"
	"sync"
)

// event is a queued notification: exactly one of status or message is set.
type event struct {
	status  *StatusEvent
	message *Message
}

type messageObserver struct {
	id uint64
	fn func(Message)
}

type statusObserver struct {
	id uint64
	fn func(StatusEvent)
}

// fanout holds the observers of one stream id and the queue their events
// are delivered from. A single dispatcher goroutine drains the queue, so
// observers of one stream see events in the order they were enqueued.
type fanout struct {
	streamID string
	logger   *slog.Logger
	events   *queue[event]

	mu       sync.Mutex
	nextID   uint64
	messages []messageObserver
	statuses []statusObserver
}

func newFanout(streamID string, logger *slog.Logger) *fanout {
	return &fanout{
		streamID: streamID,
		logger:   logger,
		events:   newQueue[event](16),
	}
}

func (f *fanout) addMessage(fn func(Message)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.messages = append(f.messages, messageObserver{id: id, fn: fn})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, o := range f.messages {
			if o.id == id {
				f.messages = append(f.messages[:i:i], f.messages[i+1:]...)
				return
			}
		}
	}
}

func (f *fanout) addStatus(fn func(StatusEvent)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.statuses = append(f.statuses, statusObserver{id: id, fn: fn})
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, o := range f.statuses {
			if o.id == id {
				f.statuses = append(f.statuses[:i:i], f.statuses[i+1:]...)
				return
			}
		}
	}
}

func (f *fanout) counts() (messages, statuses int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages), len(f.statuses)
}

// deliver invokes the current observers in registration order.
func (f *fanout) deliver(ev event) {
	f.mu.Lock()
	var msgObs []messageObserver
	var statusObs []statusObserver
	if ev.message != nil {
		msgObs = append(msgObs, f.messages...)
	}
	if ev.status != nil {
		statusObs = append(statusObs, f.statuses...)
	}
	f.mu.Unlock()

	for _, o := range msgObs {
		f.safeCall("message", func() { o.fn(*ev.message) })
	}
	for _, o := range statusObs {
		f.safeCall("status", func() { o.fn(*ev.status) })
	}
}

// safeCall runs fn, converting a panic into a log entry so later observers
// still receive the event.
func (f *fanout) safeCall(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("observer panicked",
				"stream", f.streamID,
				"observer", kind,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn()
}
