// Package live turns store writes into live query results.
//
// Every committed write publishes the collection paths it touched
// ("posts", "users/{uid}/events", ...) to a Publisher. A Subscription
// re-runs its query whenever one of its topics is signalled and delivers the
// full result list, the way a standing document query re-delivers its whole
// result set on every relevant write.
//
// Signals are coalesced: a subscriber that is busy re-querying sees at most
// one pending change, so a burst of writes costs one extra query, not one per
// write.
package live

import "sync"

// Publisher receives the topics touched by a committed write.
type Publisher interface {
	Publish(topics ...string)
}

// Broker is the in-process topic fan-out. The zero value is not usable; call
// NewBroker.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[uint64]chan struct{}
	nextID uint64
}

var _ Publisher = (*Broker)(nil)

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]chan struct{})}
}

// Publish signals every watcher of the given topics. It never blocks.
func (b *Broker) Publish(topics ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, topic := range topics {
		for _, ch := range b.subs[topic] {
			select {
			case ch <- struct{}{}:
			default:
				// a signal is already pending for this watcher
			}
		}
	}
}

// Watchers returns how many watchers are registered on topic.
func (b *Broker) Watchers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// watch registers one signal channel on all topics. The returned stop
// function unregisters it and is safe to call more than once.
func (b *Broker) watch(topics []string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[uint64]chan struct{})
		}
		b.subs[topic][id] = ch
	}
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, topic := range topics {
				delete(b.subs[topic], id)
				if len(b.subs[topic]) == 0 {
					delete(b.subs, topic)
				}
			}
		})
	}
	return ch, stop
}
