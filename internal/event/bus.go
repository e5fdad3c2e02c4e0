package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 100

type subscription struct {
	ch      chan Event
	types   map[Type]bool
	dropped int
}

func (s *subscription) accepts(t Type) bool {
	return len(s.types) == 0 || s.types[t]
}

// InMemoryBus fans events out to subscribers inside one process.
type InMemoryBus struct {
	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string]*subscription)}
}

// Publish never blocks. A subscriber whose buffer is full misses the event;
// the number of misses is logged once it receives again.
func (b *InMemoryBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		if !sub.accepts(e.Type) {
			continue
		}

		select {
		case sub.ch <- e:
			if sub.dropped > 0 {
				slog.Warn("slow subscriber caught up", "subscriber", id, "dropped", sub.dropped)
				sub.dropped = 0
			}
		default:
			if sub.dropped == 0 {
				slog.Warn("event dropped for slow subscriber", "subscriber", id, "type", e.Type, "session_id", e.SessionID)
			}
			sub.dropped++
		}
	}
}

// Subscribe receives the given event types, or every type when none are
// named. The returned function unsubscribes and may be called repeatedly.
func (b *InMemoryBus) Subscribe(types ...Type) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan Event, subscriberBuffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	if b.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := uuid.NewString()
	b.subs[id] = sub

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, exists := b.subs[id]; exists {
			close(sub.ch)
			delete(b.subs, id)
		}
	}

	return sub.ch, unsubscribe
}

// Close ends every subscription. Later events are discarded and later
// subscriptions start closed.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
