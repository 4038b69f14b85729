// Package events is the in-memory lifecycle feed behind the /events SSE stream.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types published by the supervisor.
const (
	ProcessLaunched   = "process.launched"
	ProcessExited     = "process.exited"
	ProcessTerminated = "process.terminated"
	ProbeReady        = "probe.ready"
	ProbeFallback     = "probe.fallback"
	URLOpened         = "url.opened"
	ReaperReaped      = "reaper.reaped"
)

type Event struct {
	ID   int64     `json:"id"`
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data []byte    `json:"data"` // JSON payload
}

// Hub fans events out to subscribers and keeps a bounded backlog so clients
// that connect late (or reconnect with Last-Event-ID) can catch up.
type Hub struct {
	mu       sync.Mutex
	lastID   int64
	backlog  []Event
	capacity int
	subs     map[chan Event]struct{}
	now      func() time.Time
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		capacity: capacity,
		subs:     make(map[chan Event]struct{}),
		now:      time.Now,
	}
}

// Publish records an event and delivers it to every subscriber. Slow
// subscribers miss events rather than blocking the publisher. A nil hub
// discards the event.
func (h *Hub) Publish(eventType string, data any) {
	if h == nil {
		return
	}

	payload := []byte("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev := Event{ID: h.lastID, Type: eventType, At: h.now().UTC(), Data: payload}

	h.backlog = append(h.backlog, ev)
	if over := len(h.backlog) - h.capacity; over > 0 {
		h.backlog = append([]Event(nil), h.backlog[over:]...)
	}

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new listener. The returned cancel func unregisters it
// and closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Since returns backlog events with ID greater than lastID, oldest first.
func (h *Hub) Since(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, len(h.backlog))
	for _, ev := range h.backlog {
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}
