package dashboard

import (
	"sync"

	"ServingDashboard/pkg/polling"
	"ServingDashboard/pkg/series"
)

// Event types sent on the live stream.
const (
	EventHello  = "hello"
	EventTick   = "tick"
	EventFamily = "family"
)

// Event is one server-sent notification. A hello event opens every stream
// and carries the current tick; a tick event announces that the clock moved;
// a family event that one family gained a sample.
type Event struct {
	Type   string             `json:"type"`
	Tick   series.Tick        `json:"tick"`
	Family string             `json:"family,omitempty"`
	Sealed bool               `json:"sealed,omitempty"`
	Stats  *series.MergeStats `json:"stats,omitempty"`
}

// Hub fans polling updates out to stream subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	buffer int

	mu   sync.Mutex
	subs map[chan Event]struct{}
	last series.Tick
	seen bool
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{buffer: buffer, subs: make(map[chan Event]struct{})}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	StreamSubscribers.Set(float64(n))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			n := len(h.subs)
			h.mu.Unlock()
			close(ch)
			StreamSubscribers.Set(float64(n))
		})
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish implements polling.Sink.
func (h *Hub) Publish(u polling.Update) {
	stats := u.Stats

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.seen || u.Tick != h.last {
		h.seen = true
		h.last = u.Tick
		h.broadcast(Event{Type: EventTick, Tick: u.Tick})
	}
	h.broadcast(Event{
		Type:   EventFamily,
		Tick:   u.Tick,
		Family: u.Family.Name,
		Sealed: u.Sealed,
		Stats:  &stats,
	})
}

// broadcast must be called with the lock held.
func (h *Hub) broadcast(ev Event) {
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			DroppedEventsTotal.Inc()
		}
	}
}
