package broadcast

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Change event types pushed to observers. The payload tells an observer that
// something changed and it should refetch the full task list; the task id is
// informational only.
const (
	TypeTaskCreated = "task:created"
	TypeTaskUpdated = "task:updated"
	TypeTaskDeleted = "task:deleted"
)

// observerBuffer is the per-observer event queue depth. A publish to an
// observer whose buffer is full drops that event for that observer only;
// delivery is best-effort and the observer catches up on its next refetch.
const observerBuffer = 16

// Event is a change notification delivered to observers.
type Event struct {
	Type   string    `json:"type"`
	TaskID string    `json:"task_id,omitempty"`
	At     time.Time `json:"ts,omitempty"`
}

// Observer is a registered notification receiver. Events arrive on its
// channel in publish order (FIFO per observer); the channel is closed on
// unsubscribe or hub shutdown.
type Observer struct {
	id string
	ch chan Event
}

// Events returns the observer's delivery channel.
func (o *Observer) Events() <-chan Event {
	return o.ch
}

// ID returns the observer's registry id.
func (o *Observer) ID() string {
	return o.id
}

// Hub is the registry of currently-connected observers. It is explicit,
// process-wide state with a clear lifecycle: created by the broadcast module
// at start, closed at stop, and passed by reference to whoever fans events
// in or out — never a package-level singleton.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]*Observer
	closed    bool
	dropped   uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		observers: make(map[string]*Observer),
	}
}

// Subscribe registers a new observer. Returns nil after the hub has been
// closed.
func (h *Hub) Subscribe() *Observer {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	o := &Observer{
		id: uuid.New().String(),
		ch: make(chan Event, observerBuffer),
	}
	h.observers[o.id] = o
	log.Printf("[broadcast] Observer %s subscribed (%d connected)", o.id, len(h.observers))
	return o
}

// Unsubscribe removes an observer and closes its channel. Idempotent: calling
// it twice, or after the connection already dropped, is harmless.
func (h *Hub) Unsubscribe(o *Observer) {
	if o == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.observers[o.id]; !ok {
		return
	}
	delete(h.observers, o.id)
	close(o.ch)
	log.Printf("[broadcast] Observer %s unsubscribed (%d connected)", o.id, len(h.observers))
}

// Publish delivers ev to every observer registered at this moment. The send
// is non-blocking: a slow observer whose buffer is full loses this event but
// never delays delivery to other observers or the publishing caller. Events
// published before an observer subscribed are never replayed.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, o := range h.observers {
		select {
		case o.ch <- ev:
		default:
			atomic.AddUint64(&h.dropped, 1)
			log.Printf("[broadcast] Observer %s buffer full, dropped %s event", o.id, ev.Type)
		}
	}
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Dropped returns the number of events discarded because an observer's
// buffer was full.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// Close unregisters every observer and rejects further subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, o := range h.observers {
		delete(h.observers, id)
		close(o.ch)
	}
}
