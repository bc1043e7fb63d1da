package bus

import (
	"strings"
	"sync"
)

// Bus fans events out to in-process subscribers, filtered by kind prefix:
// "rt." sees every realtime frame, "" sees everything. Delivery never
// blocks the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish delivers evt to every subscription whose prefix matches evt.Kind.
// A subscriber whose buffer is full loses the event; slow consumers cannot
// stall the daemon.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.prefix) {
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers a channel with the given buffer for kinds starting
// with prefix. The returned func removes the subscription; the channel is
// never closed, so ranging over it requires the unsubscribe plus drain.
func (b *Bus) Subscribe(prefix string, buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{prefix: prefix, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
