package run

import (
	"strings"
	"sync"
	"time"
)

const (
	completedSessionRetention = 30 * time.Second
	eventBufferSize           = 256
)

// EventKind discriminates bus events.
type EventKind string

const (
	EventStatus    EventKind = "status"
	EventLog       EventKind = "log"
	EventCompleted EventKind = "completed"
	EventError     EventKind = "error"
	EventStopped   EventKind = "stopped"
)

// Event is one transient message on the bus. It is not persisted beyond
// the StepRecord it mutates; late subscribers start from a snapshot.
type Event struct {
	SessionID string     `json:"sessionId"`
	Step      string     `json:"step,omitempty"`
	Kind      EventKind  `json:"type"`
	Status    StepStatus `json:"status,omitempty"`
	Message   string     `json:"message,omitempty"`
	Log       string     `json:"log,omitempty"`
}

func (e Event) terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventError || e.Kind == EventStopped
}

// Broker manages per-session event channels. The worker goroutine is the
// only publisher for a given session; the transport only receives.
type Broker struct {
	mu     sync.RWMutex
	events map[string]chan Event
}

func NewBroker() *Broker {
	return &Broker{events: make(map[string]chan Event)}
}

// Allocate creates and registers the event channel for a session.
func (b *Broker) Allocate(sessionID string) chan Event {
	ch := make(chan Event, eventBufferSize)
	b.mu.Lock()
	b.events[strings.TrimSpace(sessionID)] = ch
	b.mu.Unlock()
	return ch
}

// Get returns the event channel for a session.
func (b *Broker) Get(sessionID string) (chan Event, bool) {
	b.mu.RLock()
	ch, ok := b.events[strings.TrimSpace(sessionID)]
	b.mu.RUnlock()
	return ch, ok
}

// ScheduleCleanup removes a session's channel after a retention period so
// an observer connecting just after completion still sees the close.
func (b *Broker) ScheduleCleanup(sessionID string) {
	time.AfterFunc(completedSessionRetention, func() {
		b.mu.Lock()
		delete(b.events, strings.TrimSpace(sessionID))
		b.mu.Unlock()
	})
}

// publish enqueues without ever blocking the worker. Log events are
// coalesced under backpressure (oldest queued log dropped, or the new
// line discarded rather than evicting a state event). Status and
// terminal events evict queued logs until they fit; they are only ever
// dropped after the buffer is full of other state events, which a
// healthy subscriber never lets happen.
func publish(ch chan Event, ev Event) {
	if ch == nil {
		return
	}
	if ev.Kind == EventLog {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case old := <-ch:
			if old.Kind != EventLog {
				ch <- old
				return
			}
		default:
		}
		select {
		case ch <- ev:
		default:
		}
		return
	}
	for i := 0; i < eventBufferSize; i++ {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case old := <-ch:
			if old.Kind != EventLog {
				ch <- old
			}
		default:
		}
	}
}
