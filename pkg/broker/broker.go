// Package broker provides the synchronous publish/subscribe channel that
// carries command lifecycle events between an execution context and its
// observers. Topics are plain strings; a single Publish call invokes every
// current subscriber of the topic, in registration order, before returning.
package broker

import "sync"

// Handler receives every message published on a subscribed topic.
type Handler func(msg any)

// Broker is a synchronous topic bus. The zero value is not usable; call New.
// Safe for concurrent use.
type Broker struct {
	mu     sync.Mutex
	nextID int
	topics map[string][]subscription
}

type subscription struct {
	id      int
	handler Handler
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{topics: make(map[string][]subscription)}
}

// Subscribe registers a handler for a topic and returns its release
// function. Releasing twice is a no-op, not an error, so teardown paths
// can call it unconditionally.
func (b *Broker) Subscribe(topic string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(topic, id)
		})
	}
}

// Publish delivers msg to all current subscribers of the topic, in the
// order they subscribed. Delivery is synchronous: Publish returns only
// after every handler has returned.
func (b *Broker) Publish(topic string, msg any) {
	b.mu.Lock()
	subs := make([]subscription, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.Unlock()

	for _, s := range subs {
		s.handler(msg)
	}
}

func (b *Broker) remove(topic string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, s := range subs {
		if s.id == id {
			b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
