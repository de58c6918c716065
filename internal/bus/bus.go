// Package bus is a synchronous in-process publish/subscribe registry.
//
// Subscribers of a topic are called in subscription order on the
// goroutine that publishes. A subscriber may publish or (un)subscribe
// from inside its handler.
package bus

import (
	"sync"
)

type Topic string

// Event is implemented by every typed event variant.
type Event interface {
	Topic() Topic
}

type subscriber struct {
	id int
	fn func(Event)
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[Topic][]subscriber
	nextID      int
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[Topic][]subscriber),
	}
}

// Subscribe registers fn for topic and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(topic Topic, fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[topic] = append(b.subscribers[topic], subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[topic]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to the subscribers registered at call time.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := b.subscribers[ev.Topic()]
	snapshot := make([]subscriber, len(subs))
	copy(snapshot, subs)
	b.mu.RUnlock()

	for _, s := range snapshot {
		s.fn(ev)
	}
}

// On subscribes fn to the topic of E. Events published under that topic
// with a different dynamic type are ignored.
func On[E Event](b *Bus, fn func(E)) (unsubscribe func()) {
	var zero E
	return b.Subscribe(zero.Topic(), func(ev Event) {
		if e, ok := ev.(E); ok {
			fn(e)
		}
	})
}
