package live

import (
	"context"
	"sync"
)

// Snapshot is one full delivery of a live query. When Err is set, Items is
// whatever the query returned (usually nil).
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// QueryFunc produces the current full result list.
type QueryFunc[T any] func(ctx context.Context) ([]T, error)

// Subscription is a cancellable handle producing a sequence of full-list
// snapshots on C. C is closed once the subscription ends.
type Subscription[T any] struct {
	C <-chan Snapshot[T]

	out    chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe registers on topics, runs query once for the initial snapshot
// and again after every signal on any of the topics.
//
// Only the newest snapshot is kept for a slow reader: an undelivered older
// snapshot is replaced, never queued behind the new one.
//
// The subscription ends when ctx is done or Cancel is called.
func Subscribe[T any](ctx context.Context, b *Broker, topics []string, query QueryFunc[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot[T], 1)
	s := &Subscription[T]{
		C:      out,
		out:    out,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Register before the first query so a write racing with it still
	// triggers a re-query.
	signal, stop := b.watch(topics)

	go func() {
		defer close(s.done)
		defer close(out)
		defer stop()

		for {
			items, err := query(ctx)
			if ctx.Err() != nil {
				return
			}

			select {
			case <-out:
			default:
			}
			out <- Snapshot[T]{Items: items, Err: err}

			select {
			case <-ctx.Done():
				return
			case <-signal:
			}
		}
	}()

	return s
}

// Static returns an already-finished subscription that delivers items once.
// No topic is watched and no query runs.
func Static[T any](items []T) *Subscription[T] {
	out := make(chan Snapshot[T], 1)
	out <- Snapshot[T]{Items: items}
	close(out)

	done := make(chan struct{})
	close(done)

	return &Subscription[T]{
		C:      out,
		out:    out,
		cancel: func() {},
		done:   done,
	}
}

// Done is closed once the subscription has stopped watching.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the subscription and waits for it to unregister. After Cancel
// returns no further snapshot can be received from C. It is idempotent.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		for range s.out {
		}
	})
}
